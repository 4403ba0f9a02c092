package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/ledger"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"github.com/seatgrid/reservation-engine/internal/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Coordinator drives a PENDING reservation to a terminal status. Settlement
// of a given reservation id is serialized by a per-reservation mutex, so a
// cancel issued while a payment is in flight waits the settlement out and
// then fails with ErrInvalidTransition; a successful charge can never land
// on a concurrently cancelled reservation. Unrelated reservations settle
// fully in parallel.
type Coordinator struct {
	pool      *pool.Pool
	ledger    *ledger.Ledger
	notifier  domain.Notifier
	recorders []domain.SettlementRecorder
	logger    observability.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewCoordinator(p *pool.Pool, l *ledger.Ledger, notifier domain.Notifier, logger observability.Logger, recorders ...domain.SettlementRecorder) *Coordinator {
	return &Coordinator{
		pool:      p,
		ledger:    l,
		notifier:  notifier,
		recorders: recorders,
		logger:    logger,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor returns the settle mutex for id, locked. One entry per reservation,
// retained like the ledger entry it guards.
func (c *Coordinator) lockFor(id uuid.UUID) *sync.Mutex {
	c.mu.Lock()
	m, ok := c.locks[id]
	if !ok {
		m = &sync.Mutex{}
		c.locks[id] = m
	}
	c.mu.Unlock()
	m.Lock()
	return m
}

// Settle invokes the payment capability once and resolves the reservation.
// On decline the reservation is CANCELLED, its units freed, and the returned
// error wraps domain.ErrPaymentFailed. The per-reservation mutex is held for
// the whole call, payment wait included; no pool lock is held during the
// payment wait.
func (c *Coordinator) Settle(ctx context.Context, id uuid.UUID, payment domain.Payment) (domain.Reservation, error) {
	lock := c.lockFor(id)
	defer lock.Unlock()

	res, err := c.ledger.Get(id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if res.Status != domain.StatusPending {
		return res, errors.Wrapf(domain.ErrInvalidTransition, "reservation %s is %s", id, res.Status)
	}

	start := time.Now()
	tracer := otel.Tracer("settlement")
	payCtx, span := tracer.Start(ctx, "payment.pay")
	span.SetAttributes(
		attribute.String("reservation.id", id.String()),
		attribute.Float64("reservation.amount", res.Amount),
	)
	payErr := payment.Pay(payCtx, res.Amount)
	span.End()
	observability.SettlementDuration.Observe(time.Since(start).Seconds())

	if payErr != nil {
		cancelled, terr := c.ledger.Transition(id, domain.StatusCancelled)
		if terr != nil {
			return cancelled, terr
		}
		c.releaseUnits(cancelled)
		c.fanOut(ctx, cancelled, domain.OutcomePaymentFailed)
		return cancelled, errors.Wrap(domain.ErrPaymentFailed, payErr.Error())
	}

	confirmed, terr := c.ledger.Transition(id, domain.StatusConfirmed)
	if terr != nil {
		// Unreachable while every resolver goes through lockFor; kept so a
		// bypassing caller can never occupy units it no longer holds.
		c.logger.WithField("reservation_id", id.String()).Warn("payment succeeded for a reservation resolved elsewhere")
		return confirmed, terr
	}
	// Units have been exclusively HELD by this reservation since claim; the
	// move to OCCUPIED cannot race.
	if err := c.pool.MarkOccupied(confirmed.Units); err != nil {
		c.logger.WithField("reservation_id", id.String()).Error("mark occupied failed", err)
	}
	observability.UnitsHeld.Sub(float64(len(confirmed.Units)))
	c.fanOut(ctx, confirmed, domain.OutcomeConfirmed)
	return confirmed, nil
}

// Cancel resolves a PENDING reservation without payment and frees its units.
// Terminal reservations fail with ErrInvalidTransition; callers should read
// that as "already resolved".
func (c *Coordinator) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return c.release(ctx, id, domain.StatusCancelled, domain.OutcomeCancelled)
}

// Expire is the sweep-owned variant of Cancel. Same transition path, so a
// unit can never be double-released between an explicit cancel and a sweep.
func (c *Coordinator) Expire(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return c.release(ctx, id, domain.StatusExpired, domain.OutcomeExpired)
}

func (c *Coordinator) release(ctx context.Context, id uuid.UUID, status domain.ReservationStatus, outcome domain.Outcome) (domain.Reservation, error) {
	lock := c.lockFor(id)
	defer lock.Unlock()

	res, err := c.ledger.Transition(id, status)
	if err != nil {
		return res, err
	}
	c.releaseUnits(res)
	c.fanOut(ctx, res, outcome)
	return res, nil
}

func (c *Coordinator) releaseUnits(res domain.Reservation) {
	if err := c.pool.MarkFree(res.Units); err != nil {
		c.logger.WithField("reservation_id", res.ID.String()).Error("release units failed", err)
		return
	}
	observability.UnitsHeld.Sub(float64(len(res.Units)))
}

// fanOut delivers the outcome to the notifier and recorders. Best-effort:
// failures are logged, never propagated, so settlement outcome stays
// determined solely by payment outcome.
func (c *Coordinator) fanOut(ctx context.Context, res domain.Reservation, outcome domain.Outcome) {
	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, res.Requester, res.ID, outcome); err != nil {
			c.logger.WithField("reservation_id", res.ID.String()).WithError(err).Warn("notify failed")
		}
	}
	for _, rec := range c.recorders {
		if err := rec.RecordSettlement(ctx, res, outcome); err != nil {
			c.logger.WithField("reservation_id", res.ID.String()).WithError(err).Warn("settlement record failed")
		}
	}
}
