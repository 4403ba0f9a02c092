package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "resv:idemp:"

// ReplayStore keeps the serialized HTTP reply of a completed reserve request,
// keyed by Idempotency-Key. A client retrying the same key gets the original
// reservation back instead of claiming a second set of units. Entries carry a
// TTL chosen by the caller to outlive the hold window, so a retry arriving
// after the hold expired still sees the reservation it created.
type ReplayStore struct {
	client *redis.Client
}

func NewReplayStore(client *redis.Client) *ReplayStore {
	return &ReplayStore{client: client}
}

// StoredReply is the replayable portion of a reserve response.
type StoredReply struct {
	Status int
	Body   []byte
}

// Get returns the stored reply for key, or nil when the key was never seen
// or its entry has lapsed.
func (s *ReplayStore) Get(ctx context.Context, key string) (*StoredReply, error) {
	val, err := s.client.Get(ctx, replayKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var reply StoredReply
	err = json.Unmarshal(val, &reply)
	return &reply, err
}

func (s *ReplayStore) Set(ctx context.Context, key string, reply StoredReply, ttl time.Duration) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, replayKeyPrefix+key, data, ttl).Err()
}
