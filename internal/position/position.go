// Package position owns the cost-basis arithmetic for open holdings: how a
// fill changes a position's quantity and weighted-average cost basis.
//
// All quantities and prices use shopspring/decimal so repeated small buys
// never accumulate rounding drift in the cost basis.
package position

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/model"
)

// ErrInsufficientHoldings is returned when a sell exceeds the held quantity
// (or there is no position at all). Callers must reject the order before
// any cash or position mutation occurs — sells are never clamped.
var ErrInsufficientHoldings = errors.New("position: insufficient holdings")

// ApplyFill applies a fill to an existing position (nil for no holding) and
// returns the resulting position. A buy accumulates into the weighted-average
// cost basis:
//
//	basis' = (qty*basis + fillQty*fillPrice) / (qty + fillQty)
//
// A sell reduces quantity and leaves the basis unchanged; a position that
// reaches exactly zero is returned as nil and must be removed by the caller.
// ApplyFill never mutates its input.
func ApplyFill(pos *model.Position, ticker string, side model.Side, qty, price decimal.Decimal) (*model.Position, error) {
	if side == model.Buy {
		if pos == nil {
			return &model.Position{
				Ticker:       ticker,
				Quantity:     qty,
				AvgCostBasis: price,
			}, nil
		}
		newQty := pos.Quantity.Add(qty)
		totalCost := pos.Quantity.Mul(pos.AvgCostBasis).Add(qty.Mul(price))
		return &model.Position{
			Ticker:       pos.Ticker,
			Quantity:     newQty,
			AvgCostBasis: totalCost.Div(newQty),
		}, nil
	}

	if pos == nil || pos.Quantity.LessThan(qty) {
		return nil, ErrInsufficientHoldings
	}
	newQty := pos.Quantity.Sub(qty)
	if newQty.IsZero() {
		return nil, nil
	}
	return &model.Position{
		Ticker:       pos.Ticker,
		Quantity:     newQty,
		AvgCostBasis: pos.AvgCostBasis,
	}, nil
}
