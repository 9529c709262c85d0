package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CachedOracle wraps another Oracle with a Redis read-through cache. Reads
// check Redis first and fall back to the underlying source; fresh quotes
// are cached with a TTL so hot tickers don't hammer the provider.
type CachedOracle struct {
	next Oracle
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedOracle creates a cached wrapper around a price source.
func NewCachedOracle(next Oracle, rdb *redis.Client, ttl time.Duration) *CachedOracle {
	return &CachedOracle{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
	}
}

func (o *CachedOracle) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	// Try cache.
	if raw, err := o.rdb.Get(ctx, priceKey(ticker)).Result(); err == nil {
		if price, perr := decimal.NewFromString(raw); perr == nil && price.IsPositive() {
			return price, nil
		}
	}

	// Cache miss: fetch from source.
	price, err := o.next.GetPrice(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}

	// Best-effort cache write; a failure here must not fail the quote.
	o.rdb.Set(ctx, priceKey(ticker), price.String(), o.ttl)
	return price, nil
}

func priceKey(ticker string) string { return fmt.Sprintf("price:%s", ticker) }
