package domain

import (
	"context"

	"github.com/google/uuid"
)

// Outcome is what settlement reports to notification and audit sinks.
type Outcome string

const (
	OutcomeConfirmed     Outcome = "confirmed"
	OutcomeCancelled     Outcome = "cancelled"
	OutcomeExpired       Outcome = "expired"
	OutcomePaymentFailed Outcome = "payment_failed"
)

// Payment is supplied by the caller at confirm time. The engine invokes it at
// most once per settlement attempt and never retries on its own.
type Payment interface {
	Pay(ctx context.Context, amount float64) error
}

// Notifier delivers settlement outcomes best-effort. Errors are logged by the
// settlement coordinator, never propagated to the caller.
type Notifier interface {
	Notify(ctx context.Context, requester uuid.UUID, reservationID uuid.UUID, outcome Outcome) error
}

// SettlementRecorder receives terminal reservations for audit or archival.
// Best-effort, same as Notifier.
type SettlementRecorder interface {
	RecordSettlement(ctx context.Context, res Reservation, outcome Outcome) error
}
