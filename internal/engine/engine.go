package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/allocator"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/ledger"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"github.com/seatgrid/reservation-engine/internal/pool"
	"github.com/seatgrid/reservation-engine/internal/settlement"
)

// Engine is the only surface external callers touch. It is constructed once
// at process start and passed by reference; none of its collaborators are
// reachable from outside.
type Engine struct {
	pool    *pool.Pool
	ledger  *ledger.Ledger
	alloc   *allocator.Allocator
	settle  *settlement.Coordinator
	logger  observability.Logger
	holdTTL time.Duration
}

func New(p *pool.Pool, l *ledger.Ledger, a *allocator.Allocator, s *settlement.Coordinator, logger observability.Logger, holdTTL time.Duration) *Engine {
	return &Engine{pool: p, ledger: l, alloc: a, settle: s, logger: logger, holdTTL: holdTTL}
}

// Reserve holds count units of the given kind for the requester and returns
// the PENDING reservation without settling. Amount 0 means price the units
// from the pool. A claim lost to a concurrent overlapping reserve is retried
// once against a fresh free list before giving up.
func (e *Engine) Reserve(ctx context.Context, requester uuid.UUID, count int, kind domain.Kind, amount float64) (domain.Reservation, error) {
	if count <= 0 {
		return domain.Reservation{}, errors.Wrapf(domain.ErrInvalidInput, "count %d", count)
	}

	for attempt := 0; ; attempt++ {
		ids := e.pool.FindFree(count, kind)
		if len(ids) < count {
			observability.ReservationsTotal.WithLabelValues("reserve", "unavailable").Inc()
			return domain.Reservation{}, errors.Wrapf(domain.ErrResourceUnavailable, "%d free %s units, want %d", len(ids), kind, count)
		}

		total := amount
		if total == 0 {
			total = e.pool.PriceOf(ids)
		}

		res, err := e.alloc.Claim(requester, ids, kind, total)
		if errors.Is(err, domain.ErrResourceUnavailable) && attempt == 0 {
			continue
		}
		if err != nil {
			observability.ReservationsTotal.WithLabelValues("reserve", "unavailable").Inc()
			return domain.Reservation{}, err
		}

		observability.ReservationsTotal.WithLabelValues("reserve", "pending").Inc()
		observability.UnitsHeld.Add(float64(len(res.Units)))
		return res, nil
	}
}

// Confirm settles the reservation with the caller-supplied payment
// capability.
func (e *Engine) Confirm(ctx context.Context, id uuid.UUID, payment domain.Payment) (domain.Reservation, error) {
	res, err := e.settle.Settle(ctx, id, payment)
	switch {
	case err == nil:
		observability.ReservationsTotal.WithLabelValues("confirm", "confirmed").Inc()
	case errors.Is(err, domain.ErrPaymentFailed):
		observability.ReservationsTotal.WithLabelValues("confirm", "payment_failed").Inc()
	default:
		observability.ReservationsTotal.WithLabelValues("confirm", "rejected").Inc()
	}
	return res, err
}

func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	res, err := e.settle.Cancel(ctx, id)
	if err == nil {
		observability.ReservationsTotal.WithLabelValues("cancel", "cancelled").Inc()
	} else {
		observability.ReservationsTotal.WithLabelValues("cancel", "rejected").Inc()
	}
	return res, err
}

func (e *Engine) Get(id uuid.UUID) (domain.Reservation, error) {
	return e.ledger.Get(id)
}

func (e *Engine) List() []domain.Reservation {
	return e.ledger.Snapshot()
}

func (e *Engine) Units() []domain.ResourceUnit {
	return e.pool.Snapshot()
}

// RunExpirySweep expires PENDING reservations older than the hold TTL until
// ctx is done. Expiry goes through the same transition path as cancel, so a
// reservation resolved mid-sweep just loses the race.
func (e *Engine) RunExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.sweepOnce(ctx, now)
		}
	}
}

func (e *Engine) sweepOnce(ctx context.Context, now time.Time) {
	for _, res := range e.ledger.Snapshot() {
		if res.Status != domain.StatusPending || now.Before(res.CreatedAt.Add(e.holdTTL)) {
			continue
		}
		if _, err := e.settle.Expire(ctx, res.ID); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				e.logger.WithField("reservation_id", res.ID.String()).Debug("expiry lost to concurrent settlement")
				continue
			}
			e.logger.WithField("reservation_id", res.ID.String()).Error("expire failed", err)
			continue
		}
		observability.ExpirySweepReleases.Inc()
	}
}
