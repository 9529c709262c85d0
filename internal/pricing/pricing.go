// Package pricing implements the execution-price policy for incoming orders.
//
// The policy is a pure function of the order's side, type, the live market
// price, and (for limit orders) the requested limit price. It performs no
// I/O and touches no account state, which is what keeps the rule set
// unit-testable in isolation.
//
// All monetary values use shopspring/decimal — never float64 for money.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/model"
)

// Slippage is the fixed fractional adjustment applied to market-order fills
// to simulate execution cost: buys fill above market, sells below.
var Slippage = decimal.RequireFromString("0.001")

var (
	// ErrLimitBelowMarket rejects a buy limit whose ceiling the market has
	// not yet reached or fallen below.
	ErrLimitBelowMarket = errors.New("limit price below market")

	// ErrLimitAboveMarket rejects a sell limit whose floor sits above the
	// current market.
	ErrLimitAboveMarket = errors.New("limit price above market")

	// ErrInvalidMarketPrice is returned when the quoted market price is not
	// strictly positive. This is a validation failure, not a rejection.
	ErrInvalidMarketPrice = errors.New("pricing: market price must be positive")
)

var one = decimal.NewFromInt(1)

// Decide maps (side, type, market price, limit price) to an execution price.
//
//   - Market buy fills at market * (1 + Slippage).
//   - Market sell fills at market * (1 - Slippage).
//   - Limit buy fills at the market price iff limit >= market.
//   - Limit sell fills at the market price iff limit <= market.
//
// Limit fills execute at the market price, not the limit price: the limit
// only gates whether the market has already met the requested bound.
// The limit price is ignored for market orders.
func Decide(side model.Side, typ model.OrderType, market, limit decimal.Decimal) (decimal.Decimal, error) {
	if market.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidMarketPrice
	}

	if typ == model.Market {
		if side == model.Buy {
			return market.Mul(one.Add(Slippage)), nil
		}
		return market.Mul(one.Sub(Slippage)), nil
	}

	if side == model.Buy {
		if limit.LessThan(market) {
			return decimal.Zero, ErrLimitBelowMarket
		}
		return market, nil
	}
	if limit.GreaterThan(market) {
		return decimal.Zero, ErrLimitAboveMarket
	}
	return market, nil
}
