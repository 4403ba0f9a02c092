package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/allocator"
	"github.com/seatgrid/reservation-engine/internal/config"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/engine"
	"github.com/seatgrid/reservation-engine/internal/ledger"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"github.com/seatgrid/reservation-engine/internal/pool"
	"github.com/seatgrid/reservation-engine/internal/settlement"
)

// Standalone demonstration of the expiry sweep: seeds a pool, places a few
// holds, and lets the sweep reclaim them once the hold TTL lapses. The pool
// and ledger are process-local, so this binary runs its own engine rather
// than sweeping on behalf of cmd/api.

func seedUnits(cfg *config.Config) []domain.ResourceUnit {
	var units []domain.ResourceUnit
	for i := 0; i < cfg.PoolSeats; i++ {
		units = append(units, domain.ResourceUnit{
			ID:    domain.UnitID(fmt.Sprintf("S%03d", i+1)),
			Kind:  domain.KindSeat,
			Price: cfg.SeatPrice,
		})
	}
	for i := 0; i < cfg.PoolSpots; i++ {
		units = append(units, domain.ResourceUnit{
			ID:    domain.UnitID(fmt.Sprintf("P%03d", i+1)),
			Kind:  domain.KindSpot,
			Price: cfg.SpotPrice,
		})
	}
	return units
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	unitPool := pool.New(seedUnits(cfg))
	resLedger := ledger.New()
	alloc := allocator.New(unitPool, resLedger)
	coord := settlement.NewCoordinator(unitPool, resLedger, nil, logger)
	eng := engine.New(unitPool, resLedger, alloc, coord, logger, cfg.HoldTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.RunExpirySweep(ctx, cfg.SweepInterval)

	held, err := placeHolds(ctx, eng, 3)
	if err != nil {
		log.Fatalf("failed to place demo holds: %v", err)
	}
	for _, res := range held {
		logger.WithField("reservation_id", res.ID.String()).Info("hold placed")
	}

	done := make(chan struct{})
	go func() {
		waitExpired(ctx, eng, held, cfg.SweepInterval)
		close(done)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("Shutdown expiry sweeper")
	case <-done:
		logger.Info("All demo holds expired")
	}
}

func placeHolds(ctx context.Context, eng *engine.Engine, count int) ([]domain.Reservation, error) {
	var held []domain.Reservation
	for i := 0; i < count; i++ {
		res, err := eng.Reserve(ctx, uuid.New(), 1, domain.KindSeat, 0)
		if err != nil {
			return nil, err
		}
		held = append(held, res)
	}
	return held, nil
}

// waitExpired polls the ledger until every demo hold has been swept.
func waitExpired(ctx context.Context, eng *engine.Engine, held []domain.Reservation, poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	remaining := make(map[uuid.UUID]struct{}, len(held))
	for _, res := range held {
		remaining[res.ID] = struct{}{}
	}
	for len(remaining) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for id := range remaining {
				res, err := eng.Get(id)
				if err == nil && res.Status == domain.StatusExpired {
					delete(remaining, id)
				}
			}
		}
	}
}
