package cache

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type redisClient struct {
	c      *rdb.Client
	prefix string
}

// NewRedis crea un cache distribuido sobre Redis.
func NewRedis(cfg Config) (Client, error) {
	c := rdb.NewClient(&rdb.Options{Addr: cfg.Addr, DB: cfg.DB})
	return &redisClient{c: c, prefix: cfg.Prefix}, nil
}

func (r *redisClient) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.c.Get(ctx, r.key(key)).Result()
	if err == rdb.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.c.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *redisClient) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, r.key(key)).Err()
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *redisClient) Close() error { return r.c.Close() }
