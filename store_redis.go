package wrap

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient captures the subset of redis.Client used by the store.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

type redisStore struct {
	client RedisClient
	prefix string
}

func newRedisStore(client RedisClient, prefix string) SlotStore {
	if prefix == "" {
		prefix = defaultSlotPrefix
	}
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *redisStore) Driver() Driver {
	return DriverRedis
}

func (s *redisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errors.New("redis slot client unavailable")
	}
	value, err := s.client.Get(ctx, s.slotKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *redisStore) Store(ctx context.Context, key string, value []byte) (bool, error) {
	if s.client == nil {
		return false, errors.New("redis slot client unavailable")
	}
	// Slots never expire; SetNX with zero expiration gives first-writer-wins.
	created, err := s.client.SetNX(ctx, s.slotKey(key), value, 0).Result()
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *redisStore) Forget(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("redis slot client unavailable")
	}
	return s.client.Del(ctx, s.slotKey(key)).Err()
}

func (s *redisStore) Flush(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis slot client unavailable")
	}
	pattern := s.slotKey("*")
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *redisStore) slotKey(key string) string {
	return s.prefix + ":" + key
}
