package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue list and key names shared by producers and workers.
const (
	PendingList    = "queue:pending"
	ProcessingList = "queue:processing"
)

// AudioKey is the payload key for a job.
func AudioKey(jobID string) string {
	return "audio:" + jobID
}

// ResultKey is the result key for a job.
func ResultKey(jobID string) string {
	return "result:" + jobID
}

// Store is the minimal key/list contract the queue relies on. The store's
// own primitives provide all atomicity; no multi-step transactions are used.
type Store interface {
	// MoveBlocking atomically moves one value from the tail of from to the
	// head of to, waiting up to timeout. Returns "" when the wait times out.
	MoveBlocking(ctx context.Context, from, to string, timeout time.Duration) (string, error)

	// Push appends a value to the head of a list.
	Push(ctx context.Context, list, value string) error

	// Get returns the value under key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with no expiry.
	Set(ctx context.Context, key string, value []byte) error

	// SetWithExpiry stores value under key with the given TTL.
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// RemoveOne removes one matching entry from a list.
	RemoveOne(ctx context.Context, list, value string) error
}

// RedisStore implements Store on a redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis at addr.
func NewRedisStore(addr, password string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) MoveBlocking(ctx context.Context, from, to string, timeout time.Duration) (string, error) {
	value, err := s.client.BLMove(ctx, from, to, "RIGHT", "LEFT", timeout).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *RedisStore) Push(ctx context.Context, list, value string) error {
	return s.client.LPush(ctx, list, value).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.SetEx(ctx, key, value, ttl).Err()
}

func (s *RedisStore) RemoveOne(ctx context.Context, list, value string) error {
	return s.client.LRem(ctx, list, 1, value).Err()
}
