package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/seatgrid/reservation-engine/internal/adapters/redis"
)

// Idempotency replays the stored response for a repeated Idempotency-Key so
// a retried reserve cannot claim units twice.
type Idempotency struct {
	store *redisadapter.ReplayStore
	ttl   time.Duration
}

func NewIdempotency(store *redisadapter.ReplayStore, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Body}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.store.Set(ctx, key, redisadapter.StoredReply{Status: resp.Status, Body: resp.Result}, i.ttl)
}
