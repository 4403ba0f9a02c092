package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr      string
	HoldTTL       time.Duration
	SweepInterval time.Duration
	PoolSeats     int
	PoolSpots     int
	SeatPrice     float64
	SpotPrice     float64
	Notifier      string // rabbit, kafka or log
	RedisAddr     string
	RabbitURL     string
	KafkaBrokers  []string
	KafkaTopic    string
	MongoURI      string
	CRDBDSN       string
	OTLPEndpoint  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		HoldTTL:       getDuration("HOLD_TTL", 5*time.Minute),
		SweepInterval: getDuration("SWEEP_INTERVAL", time.Minute),
		PoolSeats:     getInt("POOL_SEATS", 64),
		PoolSpots:     getInt("POOL_SPOTS", 0),
		SeatPrice:     getFloat("SEAT_PRICE", 100),
		SpotPrice:     getFloat("SPOT_PRICE", 10),
		Notifier:      getEnv("NOTIFIER", "log"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "reservation.events"),
		MongoURI:      os.Getenv("MONGO_URI"),
		CRDBDSN:       os.Getenv("CRDB_DSN"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	d, _ := time.ParseDuration(os.Getenv(key))
	if d == 0 {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return f
}
