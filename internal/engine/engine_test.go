package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/allocator"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/engine"
	"github.com/seatgrid/reservation-engine/internal/ledger"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"github.com/seatgrid/reservation-engine/internal/payment"
	"github.com/seatgrid/reservation-engine/internal/pool"
	"github.com/seatgrid/reservation-engine/internal/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newEngine(t *testing.T, units []domain.ResourceUnit, holdTTL time.Duration) *engine.Engine {
	t.Helper()
	p := pool.New(units)
	l := ledger.New()
	a := allocator.New(p, l)
	logger := observability.NewLogger()
	coord := settlement.NewCoordinator(p, l, nil, logger)
	return engine.New(p, l, a, coord, logger, holdTTL)
}

func seats(ids ...string) []domain.ResourceUnit {
	var units []domain.ResourceUnit
	for _, id := range ids {
		units = append(units, domain.ResourceUnit{ID: domain.UnitID(id), Kind: domain.KindSeat, Price: 100})
	}
	return units
}

func TestHoldThenPayScenario(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, seats("A", "B", "C"), time.Hour)
	req1, req2 := uuid.New(), uuid.New()

	r1, err := eng.Reserve(ctx, req1, 2, domain.KindSeat, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, r1.Status)
	assert.Equal(t, []domain.UnitID{"A", "B"}, r1.Units)

	_, err = eng.Reserve(ctx, req2, 2, domain.KindSeat, 0)
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)

	confirmed, err := eng.Confirm(ctx, r1.ID, payment.Cash{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)

	for _, u := range eng.Units() {
		if u.ID == "A" || u.ID == "B" {
			assert.Equal(t, domain.UnitOccupied, u.Status)
		}
	}

	_, err = eng.Reserve(ctx, req2, 2, domain.KindSeat, 0)
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)

	_, err = eng.Cancel(ctx, r1.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReserveCancelReserve_ReselectsFreedUnits(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, seats("A", "B", "C"), time.Hour)

	r1, err := eng.Reserve(ctx, uuid.New(), 2, domain.KindSeat, 0)
	require.NoError(t, err)

	_, err = eng.Cancel(ctx, r1.ID)
	require.NoError(t, err)

	r2, err := eng.Reserve(ctx, uuid.New(), 2, domain.KindSeat, 0)
	require.NoError(t, err)
	assert.Equal(t, r1.Units, r2.Units)
	assert.NotEqual(t, r1.ID, r2.ID)
}

func TestFailedPaymentFreesUnitsForReuse(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, seats("A", "B"), time.Hour)

	r1, err := eng.Reserve(ctx, uuid.New(), 2, domain.KindSeat, 0)
	require.NoError(t, err)

	declined, err := eng.Confirm(ctx, r1.ID, payment.Card{Limit: 50})
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	assert.Equal(t, domain.StatusCancelled, declined.Status)

	r2, err := eng.Reserve(ctx, uuid.New(), 2, domain.KindSeat, 0)
	require.NoError(t, err)
	assert.Equal(t, r1.Units, r2.Units)
}

func TestReserve_DefaultAmountFromUnitPrices(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, seats("A", "B", "C"), time.Hour)

	res, err := eng.Reserve(ctx, uuid.New(), 2, domain.KindSeat, 0)
	require.NoError(t, err)
	assert.Equal(t, 200.0, res.Amount)

	explicit, err := eng.Reserve(ctx, uuid.New(), 1, domain.KindSeat, 42)
	require.NoError(t, err)
	assert.Equal(t, 42.0, explicit.Amount)
}

func TestReserve_InvalidCount(t *testing.T) {
	eng := newEngine(t, seats("A"), time.Hour)
	_, err := eng.Reserve(context.Background(), uuid.New(), 0, domain.KindSeat, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExpirySweep_ReleasesStaleHolds(t *testing.T) {
	ctx := context.Background()
	p := pool.New(seats("A", "B"))
	l := ledger.New()
	a := allocator.New(p, l)
	logger := observability.NewLogger()
	coord := settlement.NewCoordinator(p, l, nil, logger)
	eng := engine.New(p, l, a, coord, logger, 10*time.Millisecond)

	r1, err := eng.Reserve(ctx, uuid.New(), 2, domain.KindSeat, 0)
	require.NoError(t, err)

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.RunExpirySweep(sweepCtx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		res, err := eng.Get(r1.ID)
		return err == nil && res.Status == domain.StatusExpired
	}, time.Second, 5*time.Millisecond)

	// Expired behaves like cancelled: units selectable again.
	r2, err := eng.Reserve(ctx, uuid.New(), 2, domain.KindSeat, 0)
	require.NoError(t, err)
	assert.Equal(t, r1.Units, r2.Units)
}

func TestConcurrentReserves_NoSharedUnits(t *testing.T) {
	ctx := context.Background()
	var units []domain.ResourceUnit
	for i := 0; i < 40; i++ {
		units = append(units, domain.ResourceUnit{ID: domain.UnitID(fmt.Sprintf("S%03d", i)), Kind: domain.KindSeat, Price: 100})
	}
	eng := newEngine(t, units, time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 64; i++ {
		g.Go(func() error {
			_, err := eng.Reserve(gctx, uuid.New(), 3, domain.KindSeat, 0)
			if err != nil && !errors.Is(err, domain.ErrResourceUnavailable) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// Exhaustive overlap scan: no unit appears in two live reservations.
	owned := make(map[domain.UnitID]uuid.UUID)
	for _, res := range eng.List() {
		if res.Status != domain.StatusPending && res.Status != domain.StatusConfirmed {
			continue
		}
		for _, u := range res.Units {
			prev, taken := owned[u]
			require.False(t, taken, "unit %s owned by both %s and %s", u, prev, res.ID)
			owned[u] = res.ID
		}
	}
}
