package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wallet-flow-tracker/internal/types"
)

const kindKeyPrefix = "kind:"

// RedisKindCache persists address kinds in Redis so contract lookups survive
// across runs. Only contract and external-wallet kinds are stored; own-wallet
// membership is decided against the current registry on every run.
type RedisKindCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewRedisKindCache creates a kind cache with the given TTL
func NewRedisKindCache(cache *RedisCache, ttl time.Duration) *RedisKindCache {
	return &RedisKindCache{cache: cache, ttl: ttl}
}

// GetKind returns the cached kind for an address, with a hit indicator
func (c *RedisKindCache) GetKind(ctx context.Context, address string) (types.AddressKind, bool, error) {
	value, err := c.cache.Get(ctx, kindKeyPrefix+address)
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read kind cache: %w", err)
	}

	kind := types.AddressKind(value)
	switch kind {
	case types.KindContract, types.KindExternalWallet:
		return kind, true, nil
	default:
		// Unknown payload, treat as a miss so the lookup re-resolves it.
		return "", false, nil
	}
}

// SetKind stores the kind for an address. Own-wallet kinds are ignored.
func (c *RedisKindCache) SetKind(ctx context.Context, address string, kind types.AddressKind) error {
	if kind == types.KindOwnWallet {
		return nil
	}
	if err := c.cache.Set(ctx, kindKeyPrefix+address, string(kind), c.ttl); err != nil {
		return fmt.Errorf("failed to write kind cache: %w", err)
	}
	return nil
}
