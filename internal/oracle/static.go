package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticOracle serves prices from a fixed in-memory map. Used for tests and
// offline development; unknown tickers fail with ErrPriceUnavailable.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticOracle creates a static oracle seeded with the given prices.
func NewStaticOracle(prices map[string]decimal.Decimal) *StaticOracle {
	o := &StaticOracle{prices: make(map[string]decimal.Decimal, len(prices))}
	for t, p := range prices {
		o.prices[t] = p
	}
	return o
}

// SetPrice sets or replaces the quote for a ticker.
func (o *StaticOracle) SetPrice(ticker string, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[ticker] = price
}

// Remove drops a ticker so subsequent fetches fail.
func (o *StaticOracle) Remove(ticker string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.prices, ticker)
}

func (o *StaticOracle) GetPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[ticker]
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, ticker)
	}
	return price, nil
}
