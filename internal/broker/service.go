// Package broker implements the account ledger and order execution engine:
// it prices incoming orders, mutates cash and positions atomically, keeps
// the append-only order history, and exposes the HTTP handlers consumed by
// the router.
//
// All monetary values use shopspring/decimal — never float64 for money.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/metrics"
	"github.com/papertrade/engine/internal/model"
	"github.com/papertrade/engine/internal/oracle"
	"github.com/papertrade/engine/internal/position"
	"github.com/papertrade/engine/internal/pricing"
	"github.com/papertrade/engine/internal/store"
	"github.com/papertrade/engine/internal/symbol"
)

// ErrInvalidRequest marks structurally malformed order requests. These are
// request-level errors: no order record is appended for them.
var ErrInvalidRequest = errors.New("broker: invalid request")

// Business rejection reasons recorded on rejected orders.
const (
	reasonInsufficientCash     = "insufficient cash"
	reasonInsufficientHoldings = "insufficient holdings"
)

// Service owns all account operations. Each operation serializes per user
// id: the read-modify-write against the store happens inside the user's
// critical section so concurrent orders against one account cannot
// interleave, while distinct accounts proceed independently.
type Service struct {
	store  store.Store
	oracle oracle.Oracle
	locks  *userLocks
	wsHub  *WSHub // optional WebSocket hub for order event broadcasts
}

// NewService creates a new broker service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, o oracle.Oracle, hub *WSHub) *Service {
	return &Service{
		store:  st,
		oracle: o,
		locks:  newUserLocks(),
		wsHub:  hub,
	}
}

// OrderRequest is the JSON body for POST .../orders.
type OrderRequest struct {
	Ticker     string           `json:"ticker"`
	Type       model.OrderType  `json:"type"`
	Side       model.Side       `json:"side"`
	Quantity   decimal.Decimal  `json:"quantity"`
	LimitPrice *decimal.Decimal `json:"limitPrice,omitempty"`
}

// --- Core operations ---

// GetAccount returns the valuated account for a user, creating a default
// account on first touch.
func (s *Service) GetAccount(ctx context.Context, userID string) (*model.AccountView, error) {
	mu := s.locks.acquire(userID)
	acct, err := s.loadOrCreate(ctx, userID)
	mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.valuate(ctx, acct), nil
}

// Reset unconditionally replaces the user's account with a fresh one,
// discarding all positions and history.
func (s *Service) Reset(ctx context.Context, userID string) (*model.AccountView, error) {
	mu := s.locks.acquire(userID)
	defer mu.Unlock()

	acct := model.NewAccount(userID)
	if err := s.store.Save(ctx, userID, acct); err != nil {
		return nil, err
	}

	metrics.AccountResets.Inc()
	slog.Info("account reset", "user", userID, "starting_cash", acct.Cash.String())
	return s.valuate(ctx, acct), nil
}

// Orders returns the chronological order history for a user. A user with
// no account has an empty history.
func (s *Service) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	acct, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return []model.Order{}, nil
	}
	return acct.Orders, nil
}

// PlaceOrder runs one order end to end: validate, price, decide, apply.
// Business rejections come back as a terminal rejected Order with nil
// error; only structural and infrastructure failures return errors, and
// those never append an order record or mutate account state.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req OrderRequest) (*model.Order, error) {
	// Step 1: request shape. Fails before touching any account state.
	ticker, err := validate(req)
	if err != nil {
		return nil, err
	}

	mu := s.locks.acquire(userID)
	defer mu.Unlock()

	acct, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Step 2: current market price. A failure here is infrastructure, not
	// a rejection — no order record. The oracle counts its own fetch
	// failures by source.
	marketPrice, err := s.oracle.GetPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}

	order := model.Order{
		OrderID:    uuid.New().String(),
		Ticker:     ticker,
		Type:       req.Type,
		Side:       req.Side,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		Timestamp:  time.Now().UTC(),
	}

	// Step 3: sells must be covered by the held quantity — never clamped.
	if req.Side == model.Sell {
		pos := acct.Positions[ticker]
		if pos == nil || pos.Quantity.LessThan(req.Quantity) {
			return s.reject(ctx, acct, order, reasonInsufficientHoldings)
		}
	}

	// Step 4: pricing policy.
	var limit decimal.Decimal
	if req.LimitPrice != nil {
		limit = *req.LimitPrice
	}
	fillPrice, err := pricing.Decide(req.Side, req.Type, marketPrice, limit)
	if errors.Is(err, pricing.ErrLimitBelowMarket) || errors.Is(err, pricing.ErrLimitAboveMarket) {
		return s.reject(ctx, acct, order, err.Error())
	}
	if err != nil {
		return nil, err
	}

	// Step 5: cash check against the actual fill price. Slippage on a buy
	// raises the effective cost, so this runs after pricing, not before.
	cost := req.Quantity.Mul(fillPrice)
	if req.Side == model.Buy && cost.GreaterThan(acct.Cash) {
		return s.reject(ctx, acct, order, reasonInsufficientCash)
	}

	// Step 6: apply cash and position together, append, persist. The
	// working copy is discarded on save failure, so no partial mutation
	// ever becomes visible.
	newPos, err := position.ApplyFill(acct.Positions[ticker], ticker, req.Side, req.Quantity, fillPrice)
	if err != nil {
		return s.reject(ctx, acct, order, reasonInsufficientHoldings)
	}
	if req.Side == model.Buy {
		acct.Cash = acct.Cash.Sub(cost)
	} else {
		acct.Cash = acct.Cash.Add(cost)
	}
	if newPos == nil {
		delete(acct.Positions, ticker)
	} else {
		acct.Positions[ticker] = newPos
	}

	qty := req.Quantity
	order.Status = model.Filled
	order.FilledPrice = &fillPrice
	order.FilledQuantity = &qty
	acct.Orders = append(acct.Orders, order)

	if err := s.store.Save(ctx, userID, acct); err != nil {
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues(string(order.Side), string(order.Status)).Inc()

	slog.Info("order filled",
		"order_id", order.OrderID,
		"user", userID,
		"ticker", ticker,
		"side", order.Side,
		"qty", order.Quantity.String(),
		"fill_price", fillPrice.String(),
		"cash", acct.Cash.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "order_filled",
			UserID:   userID,
			OrderID:  order.OrderID,
			Ticker:   ticker,
			Side:     string(order.Side),
			Quantity: order.Quantity.String(),
			Price:    fillPrice.String(),
		})
	}

	return &order, nil
}

// reject appends a terminal rejected order without touching cash or
// positions, persists, and returns it. Rejections are normal outcomes,
// not errors.
func (s *Service) reject(ctx context.Context, acct *model.Account, order model.Order, reason string) (*model.Order, error) {
	order.Status = model.Rejected
	order.Reason = reason
	acct.Orders = append(acct.Orders, order)

	if err := s.store.Save(ctx, acct.UserID, acct); err != nil {
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues(string(order.Side), string(order.Status)).Inc()
	metrics.OrderRejections.WithLabelValues(reason).Inc()

	slog.Info("order rejected",
		"order_id", order.OrderID,
		"user", acct.UserID,
		"ticker", order.Ticker,
		"side", order.Side,
		"qty", order.Quantity.String(),
		"reason", reason,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "order_rejected",
			UserID:   acct.UserID,
			OrderID:  order.OrderID,
			Ticker:   order.Ticker,
			Side:     string(order.Side),
			Quantity: order.Quantity.String(),
			Reason:   reason,
		})
	}

	return &order, nil
}

// loadOrCreate materializes the account, creating and persisting a default
// one on first touch. Must be called inside the user's critical section.
func (s *Service) loadOrCreate(ctx context.Context, userID string) (*model.Account, error) {
	acct, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct != nil {
		return acct, nil
	}
	acct = model.NewAccount(userID)
	if err := s.store.Save(ctx, userID, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// validate checks the request shape and returns the normalized ticker.
func validate(req OrderRequest) (string, error) {
	ticker, err := symbol.Normalize(req.Ticker)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !req.Side.Valid() {
		return "", fmt.Errorf("%w: side must be buy or sell", ErrInvalidRequest)
	}
	if !req.Type.Valid() {
		return "", fmt.Errorf("%w: type must be market or limit", ErrInvalidRequest)
	}
	if !req.Quantity.IsPositive() {
		return "", fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if req.Type == model.Limit && req.LimitPrice == nil {
		return "", fmt.Errorf("%w: limit price required for limit orders", ErrInvalidRequest)
	}
	if req.Type == model.Market && req.LimitPrice != nil {
		return "", fmt.Errorf("%w: limit price only valid for limit orders", ErrInvalidRequest)
	}
	if req.LimitPrice != nil && !req.LimitPrice.IsPositive() {
		return "", fmt.Errorf("%w: limit price must be positive", ErrInvalidRequest)
	}
	return ticker, nil
}

// --- HTTP Handlers ---

// HandleGetAccount handles GET /api/paper/accounts/{userID}
func (s *Service) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	view, err := s.GetAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandlePlaceOrder handles POST /api/paper/accounts/{userID}/orders
// Both filled and rejected orders return 200 — a rejection is a business
// outcome, not a failure.
func (s *Service) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	order, err := s.PlaceOrder(r.Context(), userID, req)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	metrics.OrderLatency.WithLabelValues(string(order.Side)).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, order)
}

// HandleListOrders handles GET /api/paper/accounts/{userID}/orders
// Returns the chronological, append-only order history.
func (s *Service) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	orders, err := s.Orders(r.Context(), userID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// HandleReset handles POST /api/paper/accounts/{userID}/reset
func (s *Service) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	view, err := s.Reset(r.Context(), userID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// statusFor maps engine errors to HTTP status codes: request errors to 400,
// price oracle failures to 502, store failures to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, oracle.ErrPriceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
