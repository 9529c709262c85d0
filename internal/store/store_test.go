package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/model"
)

func seedAccount(userID string) *model.Account {
	acct := model.NewAccount(userID)
	acct.Cash = decimal.RequireFromString("98497.50")
	acct.Positions["AAPL"] = &model.Position{
		Ticker:       "AAPL",
		Quantity:     decimal.RequireFromString("10"),
		AvgCostBasis: decimal.RequireFromString("150.15"),
	}
	fill := decimal.RequireFromString("150.15")
	qty := decimal.RequireFromString("10")
	acct.Orders = append(acct.Orders, model.Order{
		OrderID:        "order-1",
		Ticker:         "AAPL",
		Type:           model.Market,
		Side:           model.Buy,
		Quantity:       qty,
		FilledPrice:    &fill,
		FilledQuantity: &qty,
		Status:         model.Filled,
		Timestamp:      acct.CreatedAt,
	})
	return acct
}

func checkRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	// Absence is nil, not an error.
	got, err := s.Load(ctx, "nobody")
	if err != nil {
		t.Fatalf("load absent: unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("load absent: expected nil, got %+v", got)
	}

	acct := seedAccount("user1")
	if err := s.Save(ctx, "user1", acct); err != nil {
		t.Fatalf("save: unexpected error: %v", err)
	}

	got, err = s.Load(ctx, "user1")
	if err != nil {
		t.Fatalf("load: unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("load: expected account, got nil")
	}
	if !got.Cash.Equal(acct.Cash) {
		t.Errorf("cash: expected %s, got %s", acct.Cash, got.Cash)
	}
	pos, ok := got.Positions["AAPL"]
	if !ok {
		t.Fatal("expected AAPL position to survive round trip")
	}
	if !pos.AvgCostBasis.Equal(decimal.RequireFromString("150.15")) {
		t.Errorf("basis: expected 150.15, got %s", pos.AvgCostBasis)
	}
	if len(got.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got.Orders))
	}
	if got.Orders[0].Status != model.Filled {
		t.Errorf("expected filled order, got %s", got.Orders[0].Status)
	}
	if got.Orders[0].FilledPrice == nil || !got.Orders[0].FilledPrice.Equal(decimal.RequireFromString("150.15")) {
		t.Errorf("filled price did not survive round trip: %v", got.Orders[0].FilledPrice)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	checkRoundTrip(t, NewMemoryStore())
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	checkRoundTrip(t, NewFileStore(path))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.json")

	first := NewFileStore(path)
	if err := first.Save(ctx, "user1", seedAccount("user1")); err != nil {
		t.Fatalf("save: unexpected error: %v", err)
	}

	second := NewFileStore(path)
	got, err := second.Load(ctx, "user1")
	if err != nil {
		t.Fatalf("load: unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected account persisted on disk")
	}
	if !got.Cash.Equal(decimal.RequireFromString("98497.50")) {
		t.Errorf("cash: expected 98497.50, got %s", got.Cash)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Save(ctx, "user1", seedAccount("user1")); err != nil {
		t.Fatalf("save: unexpected error: %v", err)
	}

	first, _ := s.Load(ctx, "user1")
	first.Cash = decimal.Zero
	first.Positions["AAPL"].Quantity = decimal.Zero

	second, _ := s.Load(ctx, "user1")
	if second.Cash.IsZero() {
		t.Error("mutating a loaded account must not affect stored state")
	}
	if second.Positions["AAPL"].Quantity.IsZero() {
		t.Error("mutating a loaded position must not affect stored state")
	}
}
