package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/seatgrid/reservation-engine/internal/adapters/crdb"
	kafkaadapter "github.com/seatgrid/reservation-engine/internal/adapters/kafka"
	mongoadapter "github.com/seatgrid/reservation-engine/internal/adapters/mongo"
	"github.com/seatgrid/reservation-engine/internal/adapters/rabbit"
	redisadapter "github.com/seatgrid/reservation-engine/internal/adapters/redis"
	"github.com/seatgrid/reservation-engine/internal/allocator"
	"github.com/seatgrid/reservation-engine/internal/config"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/engine"
	httphandler "github.com/seatgrid/reservation-engine/internal/http"
	"github.com/seatgrid/reservation-engine/internal/idempotency"
	"github.com/seatgrid/reservation-engine/internal/ledger"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"github.com/seatgrid/reservation-engine/internal/pool"
	"github.com/seatgrid/reservation-engine/internal/rateLimit"
	"github.com/seatgrid/reservation-engine/internal/settlement"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

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

	var notifier domain.Notifier
	switch cfg.Notifier {
	case "rabbit":
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitConn.Close()
		notifier, err = rabbit.NewNotifier(rabbitConn)
		if err != nil {
			log.Fatalf("failed to create rabbit notifier: %v", err)
		}
	case "kafka":
		kn := kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kn.Close()
		notifier = kn
	default:
		notifier = nil // settlement logs outcomes either way
	}

	var recorders []domain.SettlementRecorder
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		recorders = append(recorders, mongoadapter.NewAuditLogger(mongoClient.Database("reservations"), logger))
	}
	if cfg.CRDBDSN != "" {
		pgPool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pgPool.Close()
		recorders = append(recorders, crdb.NewArchive(pgPool))
	}

	unitPool := pool.New(seedUnits(cfg))
	resLedger := ledger.New()
	alloc := allocator.New(unitPool, resLedger)
	coord := settlement.NewCoordinator(unitPool, resLedger, notifier, logger, recorders...)
	eng := engine.New(unitPool, resLedger, alloc, coord, logger, cfg.HoldTTL)

	var rl *rateLimit.RateLimiter
	var idemp *idempotency.Idempotency
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		rl = rateLimit.NewRateLimiter(redisadapter.NewCache(redisClient))
		idemp = idempotency.NewIdempotency(redisadapter.NewReplayStore(redisClient), time.Hour)
	}

	handlers := httphandler.NewHandlers(cfg, eng, idemp)
	r := httphandler.SetupRouter(handlers, logger, rl)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go eng.RunExpirySweep(sweepCtx, cfg.SweepInterval)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
