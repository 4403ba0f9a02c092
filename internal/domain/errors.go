package domain

import "errors"

var (
	// ErrResourceUnavailable means the requested units are not all FREE at
	// claim time. Callers may retry against a fresh free-list query.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrInvalidTransition means the reservation is not in the status the
	// requested operation needs. Usually a lost race, not a retryable fault.
	ErrInvalidTransition = errors.New("invalid reservation transition")
	// ErrInvalidStateTransition means a unit is not in the expected source
	// status for a pool mark operation.
	ErrInvalidStateTransition = errors.New("invalid unit state transition")
	// ErrPaymentFailed means the payment capability declined; the reservation
	// has already been rolled back to CANCELLED when this is returned.
	ErrPaymentFailed = errors.New("payment failed")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
