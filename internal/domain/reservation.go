package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusExpired   ReservationStatus = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusExpired
}

// CanTransitionTo enforces the monotonic lifecycle: PENDING may move to any
// terminal status, terminal statuses never move again.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	return s == StatusPending && next.Terminal()
}

// Reservation is a claim over one or more resource units on behalf of a
// requester. The unit set is fixed at creation; only Status and SettledAt
// change afterwards.
type Reservation struct {
	ID        uuid.UUID
	Requester uuid.UUID
	Units     []UnitID
	Kind      Kind
	Amount    float64
	Status    ReservationStatus
	CreatedAt time.Time
	SettledAt *time.Time
}

func NewReservation(requester uuid.UUID, units []UnitID, kind Kind, amount float64) Reservation {
	return Reservation{
		ID:        uuid.New(),
		Requester: requester,
		Units:     append([]UnitID(nil), units...),
		Kind:      kind,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}
