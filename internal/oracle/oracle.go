// Package oracle provides current market prices per ticker. Implementations
// include Yahoo Finance (default), Alpaca market data, a Redis read-through
// cache wrapper, and a static in-memory oracle for tests and offline use.
package oracle

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is the failure mode for every oracle: unknown ticker,
// network error, or a non-positive quote. Callers treat it as an
// infrastructure error — no order record is created for it.
var ErrPriceUnavailable = errors.New("oracle: price unavailable")

// Oracle returns the current market price for a ticker. The price is
// strictly positive on success.
type Oracle interface {
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}
