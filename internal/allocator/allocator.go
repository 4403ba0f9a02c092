package allocator

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/ledger"
	"github.com/seatgrid/reservation-engine/internal/pool"
)

// Allocator turns a set of FREE units into a PENDING reservation, or fails
// with nothing claimed. The FREE check and the flip to HELD happen inside a
// single pool mark, so overlapping concurrent claims resolve to at most one
// winner.
type Allocator struct {
	pool   *pool.Pool
	ledger *ledger.Ledger
}

func New(p *pool.Pool, l *ledger.Ledger) *Allocator {
	return &Allocator{pool: p, ledger: l}
}

func (a *Allocator) Claim(requester uuid.UUID, unitIDs []domain.UnitID, kind domain.Kind, amount float64) (domain.Reservation, error) {
	if len(unitIDs) == 0 {
		return domain.Reservation{}, errors.Wrap(domain.ErrInvalidInput, "empty unit set")
	}
	seen := make(map[domain.UnitID]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		if _, dup := seen[id]; dup {
			return domain.Reservation{}, errors.Wrapf(domain.ErrInvalidInput, "duplicate unit %s", id)
		}
		seen[id] = struct{}{}

		// Kind is immutable, safe to check outside the claim lock.
		u, ok := a.pool.Get(id)
		if !ok {
			return domain.Reservation{}, errors.Wrapf(domain.ErrInvalidInput, "unknown unit %s", id)
		}
		if u.Kind != kind {
			return domain.Reservation{}, errors.Wrapf(domain.ErrInvalidInput, "unit %s is %s, want %s", id, u.Kind, kind)
		}
	}

	if err := a.pool.MarkHeld(unitIDs); err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			return domain.Reservation{}, errors.Wrap(domain.ErrResourceUnavailable, err.Error())
		}
		return domain.Reservation{}, err
	}

	res := domain.NewReservation(requester, unitIDs, kind, amount)
	if err := a.ledger.Record(res); err != nil {
		// Undo the hold so no unit is left HELD without an owner.
		_ = a.pool.MarkFree(unitIDs)
		return domain.Reservation{}, err
	}
	return res, nil
}
