package tenantinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/redis/go-redis/v9"
)

// RedisCacheStore implements tenant.CacheStore backed by Redis. The client
// is constructed by the composition root; there is no lazy connect here.
type RedisCacheStore struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

// NewRedisCacheStore creates a Redis-backed cache store. Every operation
// runs under opTimeout so a slow cache cannot stall an authentication.
func NewRedisCacheStore(rdb *redis.Client, opTimeout time.Duration) *RedisCacheStore {
	if opTimeout == 0 {
		opTimeout = 3 * time.Second
	}
	return &RedisCacheStore{rdb: rdb, opTimeout: opTimeout}
}

func cacheKey(key string) string { return fmt.Sprintf("tenant:%s", key) }

// Get returns the cached payload for a key. Absence is not an error.
func (s *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, tenant.ErrRegistry.NewWithCause(tenant.CodeCacheUnavailable, err).
			WithDetail("key", key)
	}
	return data, true, nil
}

// SetAll writes the whole batch in one transactional pipeline. Either every
// key lands or the previous snapshot stays untouched.
func (s *RedisCacheStore) SetAll(ctx context.Context, entries map[string][]byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, cacheKey(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return tenant.ErrRegistry.NewWithCause(tenant.CodeCacheUnavailable, err).
			WithDetail("keys", len(entries))
	}
	return nil
}
