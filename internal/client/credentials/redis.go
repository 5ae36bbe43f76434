package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials under prefix+key in Redis.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisStore(rdb, prefix), nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set credential[%s]: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}
	return nil
}

// GetMany uses MGET, which Redis executes atomically.
func (r *RedisStore) GetMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	values, err := r.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			result[keys[i]] = []byte(s)
		}
	}
	return result, nil
}

func (r *RedisStore) PutMany(ctx context.Context, values map[string][]byte) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set credentials: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
