package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// NetworkTable caches exchange reference records in Redis so that replicas
// share one latency probe instead of each hammering the exchanges. A miss
// falls through to the wrapped table and the result is stored with a TTL.
type NetworkTable struct {
	rdb      *redis.Client
	fallback domain.NetworkTable
	ttl      time.Duration
}

// NewNetworkTable wraps fallback with a Redis cache.
func NewNetworkTable(c *Client, fallback domain.NetworkTable, ttl time.Duration) *NetworkTable {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &NetworkTable{rdb: c.Underlying(), fallback: fallback, ttl: ttl}
}

func exchangeInfoKey(source domain.SourceID) string {
	return "exchangeinfo:" + string(source)
}

// ExchangeInfo returns the cached record for source, filling from the
// wrapped table on a miss. Redis failures degrade to the fallback rather
// than erroring the enrichment pass.
func (t *NetworkTable) ExchangeInfo(ctx context.Context, source domain.SourceID) (domain.ExchangeInfo, error) {
	key := exchangeInfoKey(source)

	raw, err := t.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var info domain.ExchangeInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			return info, nil
		}
		// A corrupt entry is dropped and refetched.
		t.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return domain.ExchangeInfo{}, ctx.Err()
	}

	info, err := t.fallback.ExchangeInfo(ctx, source)
	if err != nil {
		return domain.ExchangeInfo{}, err
	}

	if data, err := json.Marshal(info); err == nil {
		// Cache write failures are not fatal.
		_ = t.rdb.Set(ctx, key, data, t.ttl).Err()
	}
	return info, nil
}

var _ domain.NetworkTable = (*NetworkTable)(nil)
