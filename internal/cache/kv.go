// Package cache stores overview snapshots in Redis.
package cache

import (
    "context"
    "errors"
    "time"

    "github.com/go-redis/redis/v8"

    "maturity/internal/ports"
)

type Options struct {
    Addr     string
    Password string
    DB       int
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, o Options) (*redis.Client, error) {
    c := redis.NewClient(&redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB})
    if err := c.Ping(ctx).Err(); err != nil {
        _ = c.Close()
        return nil, err
    }
    return c, nil
}

// RedisKVStore implements ports.KVStore on go-redis.
type RedisKVStore struct {
    client *redis.Client
}

var _ ports.KVStore = (*RedisKVStore)(nil)

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
    return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
    val, err := r.client.Get(ctx, key).Result()
    if err != nil {
        if errors.Is(err, redis.Nil) {
            return "", ports.ErrCacheMiss
        }
        return "", err
    }
    return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
    return r.client.Set(ctx, key, value, ttl).Err()
}
