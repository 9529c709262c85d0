// Package model defines the core domain types shared across the paper
// trading engine. All monetary values use shopspring/decimal — never
// float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartingCash is the cash balance every account begins (and resets) with.
var StartingCash = decimal.RequireFromString("100000.00")

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool { return s == Buy || s == Sell }

// OrderType distinguishes market from limit orders. There are no resting
// orders: a limit order either fills immediately or is rejected.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// Valid reports whether the order type is one of the two known values.
func (t OrderType) Valid() bool { return t == Market || t == Limit }

// OrderStatus is the terminal state of an order.
type OrderStatus string

const (
	Filled   OrderStatus = "filled"
	Rejected OrderStatus = "rejected"
)

// Order is an immutable record of one order decision. Once appended to an
// account's history it is never modified or removed — rejections included.
type Order struct {
	OrderID        string           `json:"orderId"`
	Ticker         string           `json:"ticker"`
	Type           OrderType        `json:"type"`
	Side           Side             `json:"side"`
	Quantity       decimal.Decimal  `json:"quantity"`
	LimitPrice     *decimal.Decimal `json:"limitPrice,omitempty"`
	FilledPrice    *decimal.Decimal `json:"filledPrice,omitempty"`
	FilledQuantity *decimal.Decimal `json:"filledQuantity,omitempty"`
	Status         OrderStatus      `json:"status"`
	Reason         string           `json:"reason,omitempty"` // set iff status = rejected
	Timestamp      time.Time        `json:"timestamp"`
}

// Position is an open holding in one ticker. Quantity is always positive;
// a position that closes to exactly zero is deleted from the account.
type Position struct {
	Ticker       string          `json:"ticker"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgCostBasis decimal.Decimal `json:"avgCostBasis"`
}

// Account is the persisted state for one user: cash, open positions keyed
// by normalized ticker, and the append-only order history (oldest first).
// Derived valuation fields are never stored here — see AccountView.
type Account struct {
	UserID    string               `json:"userId"`
	Cash      decimal.Decimal      `json:"cash"`
	Positions map[string]*Position `json:"positions"`
	Orders    []Order              `json:"orders"`
	CreatedAt time.Time            `json:"createdAt"`
}

// NewAccount returns a fresh account with starting cash and no history.
func NewAccount(userID string) *Account {
	return &Account{
		UserID:    userID,
		Cash:      StartingCash,
		Positions: make(map[string]*Position),
		Orders:    []Order{},
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy. Stores hand out and accept clones so callers
// can never mutate persisted state behind the store's back.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Positions = make(map[string]*Position, len(a.Positions))
	for t, p := range a.Positions {
		cp := *p
		c.Positions[t] = &cp
	}
	c.Orders = make([]Order, len(a.Orders))
	copy(c.Orders, a.Orders)
	return &c
}

// PositionView is a position plus the valuation fields derived from a live
// price. When the price fetch for the ticker fails, PriceError is set and
// the derived fields are absent.
type PositionView struct {
	Ticker              string           `json:"ticker"`
	Quantity            decimal.Decimal  `json:"quantity"`
	AvgCostBasis        decimal.Decimal  `json:"avgCostBasis"`
	CurrentPrice        *decimal.Decimal `json:"currentPrice,omitempty"`
	MarketValue         *decimal.Decimal `json:"marketValue,omitempty"`
	UnrealizedPL        *decimal.Decimal `json:"unrealizedPL,omitempty"`
	UnrealizedPLPercent *decimal.Decimal `json:"unrealizedPLPercent,omitempty"`
	PriceError          string           `json:"priceError,omitempty"`
}

// AccountView is the valuated account returned to callers. Totals cover
// cash plus every position that could be priced.
type AccountView struct {
	UserID         string          `json:"userId"`
	Cash           decimal.Decimal `json:"cash"`
	Positions      []PositionView  `json:"positions"`
	Orders         []Order         `json:"orders"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	TotalPL        decimal.Decimal `json:"totalPL"`
	TotalPLPercent decimal.Decimal `json:"totalPLPercent"`
	CreatedAt      time.Time       `json:"createdAt"`
}
