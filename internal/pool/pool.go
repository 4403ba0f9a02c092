package pool

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/seatgrid/reservation-engine/internal/domain"
)

// Pool owns the fixed set of allocatable units and their status. Status moves
// only through the mark operations below; each call validates and flips all
// requested units under one lock acquisition, so a mark is all-or-nothing
// with respect to concurrent marks on the same units.
type Pool struct {
	mu    sync.Mutex
	units map[domain.UnitID]*domain.ResourceUnit
	order []domain.UnitID
}

func New(units []domain.ResourceUnit) *Pool {
	p := &Pool{units: make(map[domain.UnitID]*domain.ResourceUnit, len(units))}
	for _, u := range units {
		u := u
		u.Status = domain.UnitFree
		p.units[u.ID] = &u
		p.order = append(p.order, u.ID)
	}
	sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
	return p
}

// FindFree returns up to count FREE unit ids of the given kind in ascending
// id order. Read-only; the result can go stale the moment the lock drops,
// which is why claims re-validate inside MarkHeld.
func (p *Pool) FindFree(count int, kind domain.Kind) []domain.UnitID {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ids []domain.UnitID
	for _, id := range p.order {
		if len(ids) == count {
			break
		}
		u := p.units[id]
		if u.Status == domain.UnitFree && u.Kind == kind {
			ids = append(ids, id)
		}
	}
	return ids
}

// MarkHeld transitions FREE → HELD for every id, or none of them.
func (p *Pool) MarkHeld(ids []domain.UnitID) error {
	return p.mark(ids, domain.UnitHeld, domain.UnitFree)
}

// MarkOccupied transitions HELD → OCCUPIED for every id, or none of them.
func (p *Pool) MarkOccupied(ids []domain.UnitID) error {
	return p.mark(ids, domain.UnitOccupied, domain.UnitHeld)
}

// MarkFree releases units back to FREE from either HELD or OCCUPIED.
func (p *Pool) MarkFree(ids []domain.UnitID) error {
	return p.mark(ids, domain.UnitFree, domain.UnitHeld, domain.UnitOccupied)
}

func (p *Pool) mark(ids []domain.UnitID, to domain.UnitStatus, from ...domain.UnitStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		u, ok := p.units[id]
		if !ok {
			return errors.Wrapf(domain.ErrInvalidStateTransition, "unknown unit %s", id)
		}
		valid := false
		for _, f := range from {
			if u.Status == f {
				valid = true
				break
			}
		}
		if !valid {
			return errors.Wrapf(domain.ErrInvalidStateTransition, "unit %s is %s, cannot move to %s", id, u.Status, to)
		}
	}
	for _, id := range ids {
		p.units[id].Status = to
	}
	return nil
}

// Get returns a copy of the unit, if present.
func (p *Pool) Get(id domain.UnitID) (domain.ResourceUnit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.units[id]
	if !ok {
		return domain.ResourceUnit{}, false
	}
	return *u, true
}

// Snapshot returns copies of all units in ascending id order.
func (p *Pool) Snapshot() []domain.ResourceUnit {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.ResourceUnit, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.units[id])
	}
	return out
}

// PriceOf sums unit prices; unknown ids contribute nothing.
func (p *Pool) PriceOf(ids []domain.UnitID) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total float64
	for _, id := range ids {
		if u, ok := p.units[id]; ok {
			total += u.Price
		}
	}
	return total
}
