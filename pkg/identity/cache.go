package identity

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"klunkaz/pkg/registry"
)

// TokenCache remembers verified tokens so repeated requests skip signature
// checks. Misses and backend failures both report ok=false.
type TokenCache interface {
	Get(ctx context.Context, key string) (registry.Identity, bool)
	Set(ctx context.Context, key string, id registry.Identity, ttl time.Duration)
}

type MemoryTokenCache struct {
	c *cache.Cache
}

func NewMemoryTokenCache(defaultTTL time.Duration) *MemoryTokenCache {
	return &MemoryTokenCache{c: cache.New(defaultTTL, 2*defaultTTL)}
}

func (m *MemoryTokenCache) Get(_ context.Context, key string) (registry.Identity, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false
	}
	id, ok := v.(registry.Identity)
	return id, ok
}

func (m *MemoryTokenCache) Set(_ context.Context, key string, id registry.Identity, ttl time.Duration) {
	m.c.Set(key, id, ttl)
}

const redisKeyPrefix = "klunkaz:token:"

type RedisTokenCache struct {
	client *redis.Client
	log    registry.Logger
}

// NewRedisTokenCache connects to url (redis://...) and pings it.
func NewRedisTokenCache(ctx context.Context, url string, log registry.Logger) (*RedisTokenCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisTokenCache{client: client, log: log}, nil
}

func (r *RedisTokenCache) Get(ctx context.Context, key string) (registry.Identity, bool) {
	v, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && r.log != nil {
			r.log.Warnf("token cache get: %s", err)
		}
		return "", false
	}
	return registry.Identity(v), true
}

func (r *RedisTokenCache) Set(ctx context.Context, key string, id registry.Identity, ttl time.Duration) {
	if err := r.client.Set(ctx, redisKeyPrefix+key, string(id), ttl).Err(); err != nil && r.log != nil {
		r.log.Warnf("token cache set: %s", err)
	}
}

func (r *RedisTokenCache) Close() error {
	return r.client.Close()
}
