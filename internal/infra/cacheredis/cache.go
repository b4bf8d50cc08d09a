package cacheredis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"intentd/internal/domain"
	"intentd/internal/usecase"

	"github.com/redis/go-redis/v9"
)

// Cache is the redis-backed token cache store, for deployments where
// several authority replicas should share issued tokens. Entries carry
// the remaining token validity as their TTL.
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

const defaultKeyPrefix = "intentd:token:"

func New(addr, password string, db int) (*Cache, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: client, keyPrefix: defaultKeyPrefix}, nil
}

func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client, keyPrefix: defaultKeyPrefix}
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.IntentToken, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var token domain.IntentToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, false, err
	}
	return &token, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, token domain.IntentToken, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

var _ usecase.TokenCacheStore = (*Cache)(nil)
