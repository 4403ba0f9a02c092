package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/domain"
)

// Ledger owns every reservation from creation on. Entries are never deleted,
// only transitioned; terminal entries stay readable for audit.
type Ledger struct {
	mu           sync.RWMutex
	reservations map[uuid.UUID]*domain.Reservation
}

func New() *Ledger {
	return &Ledger{reservations: make(map[uuid.UUID]*domain.Reservation)}
}

func (l *Ledger) Record(res domain.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.reservations[res.ID]; exists {
		return errors.Wrapf(domain.ErrInvalidInput, "reservation %s already recorded", res.ID)
	}
	l.reservations[res.ID] = &res
	return nil
}

func (l *Ledger) Get(id uuid.UUID) (domain.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res, ok := l.reservations[id]
	if !ok {
		return domain.Reservation{}, errors.Wrapf(domain.ErrNotFound, "reservation %s", id)
	}
	return snapshot(res), nil
}

// Transition moves a reservation to next under the monotonic rule. It is the
// linearization point for settlement: for concurrent confirm/cancel on the
// same id, exactly one Transition succeeds and the loser observes
// ErrInvalidTransition.
func (l *Ledger) Transition(id uuid.UUID, next domain.ReservationStatus) (domain.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.reservations[id]
	if !ok {
		return domain.Reservation{}, errors.Wrapf(domain.ErrNotFound, "reservation %s", id)
	}
	if !res.Status.CanTransitionTo(next) {
		return snapshot(res), errors.Wrapf(domain.ErrInvalidTransition, "reservation %s is %s, cannot move to %s", id, res.Status, next)
	}
	res.Status = next
	now := time.Now()
	res.SettledAt = &now
	return snapshot(res), nil
}

// Snapshot returns copies of all reservations ordered by creation time.
func (l *Ledger) Snapshot() []domain.Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Reservation, 0, len(l.reservations))
	for _, res := range l.reservations {
		out = append(out, snapshot(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func snapshot(res *domain.Reservation) domain.Reservation {
	cp := *res
	cp.Units = append([]domain.UnitID(nil), res.Units...)
	if res.SettledAt != nil {
		t := *res.SettledAt
		cp.SettledAt = &t
	}
	return cp
}
