package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a Redis connection: address, password, DB. DefaultDurationInSeconds
// is carried but not applied by NewRedisL2; each entry's TTL is the one passed to Set.
type RedisOptions struct {
	Address                  string
	Password                 string
	DB                       int
	DefaultDurationInSeconds int
}

// DefaultRedisOptions returns a local Redis, DB 0 configuration with DefaultDurationInSeconds
// set to 24h.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Address:                  "localhost:6379",
		DefaultDurationInSeconds: 24 * 60 * 60,
	}
}

type redisL2 struct {
	client *redis.Client
}

// NewRedisL2 returns an L2 cache backed by go-redis.
func NewRedisL2(opt RedisOptions) L2 {
	client := redis.NewClient(&redis.Options{
		Addr:     opt.Address,
		Password: opt.Password,
		DB:       opt.DB,
	})
	return &redisL2{client: client}
}

func (r *redisL2) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *redisL2) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisL2) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
