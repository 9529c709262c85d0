package position

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyFill_FirstBuy(t *testing.T) {
	pos, err := ApplyFill(nil, "AAPL", model.Buy, d("10"), d("150.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %s", pos.Ticker)
	}
	if !pos.Quantity.Equal(d("10")) {
		t.Errorf("expected quantity 10, got %s", pos.Quantity)
	}
	if !pos.AvgCostBasis.Equal(d("150.00")) {
		t.Errorf("expected basis 150.00, got %s", pos.AvgCostBasis)
	}
}

func TestApplyFill_WeightedAverage(t *testing.T) {
	pos, err := ApplyFill(nil, "AAPL", model.Buy, d("10"), d("150.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, err = ApplyFill(pos, "AAPL", model.Buy, d("10"), d("160.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.Quantity.Equal(d("20")) {
		t.Errorf("expected quantity 20, got %s", pos.Quantity)
	}
	if !pos.AvgCostBasis.Equal(d("155")) {
		t.Errorf("expected basis 155, got %s", pos.AvgCostBasis)
	}
}

func TestApplyFill_FractionalQuantities(t *testing.T) {
	pos, err := ApplyFill(nil, "AAPL", model.Buy, d("0.5"), d("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, err = ApplyFill(pos, "AAPL", model.Buy, d("1.5"), d("200"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (0.5*100 + 1.5*200) / 2 = 175
	if !pos.AvgCostBasis.Equal(d("175")) {
		t.Errorf("expected basis 175, got %s", pos.AvgCostBasis)
	}
}

func TestApplyFill_SellKeepsBasis(t *testing.T) {
	pos, _ := ApplyFill(nil, "AAPL", model.Buy, d("10"), d("150.00"))
	pos, err := ApplyFill(pos, "AAPL", model.Sell, d("4"), d("170.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.Quantity.Equal(d("6")) {
		t.Errorf("expected quantity 6, got %s", pos.Quantity)
	}
	if !pos.AvgCostBasis.Equal(d("150.00")) {
		t.Errorf("sell should not change basis, got %s", pos.AvgCostBasis)
	}
}

func TestApplyFill_SellToZeroRemoves(t *testing.T) {
	pos, _ := ApplyFill(nil, "AAPL", model.Buy, d("10"), d("150.00"))
	pos, err := ApplyFill(pos, "AAPL", model.Sell, d("10"), d("170.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != nil {
		t.Errorf("position closed to zero should be nil, got %+v", pos)
	}
}

func TestApplyFill_OversellRejected(t *testing.T) {
	pos, _ := ApplyFill(nil, "AAPL", model.Buy, d("10"), d("150.00"))

	_, err := ApplyFill(pos, "AAPL", model.Sell, d("10.0001"), d("170.00"))
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Errorf("expected ErrInsufficientHoldings, got %v", err)
	}
	// Input must be untouched — oversells never clamp.
	if !pos.Quantity.Equal(d("10")) {
		t.Errorf("input position mutated: quantity %s", pos.Quantity)
	}
}

func TestApplyFill_SellWithNoPosition(t *testing.T) {
	_, err := ApplyFill(nil, "AAPL", model.Sell, d("1"), d("170.00"))
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Errorf("expected ErrInsufficientHoldings, got %v", err)
	}
}

func TestApplyFill_NoDriftAcrossManySmallBuys(t *testing.T) {
	// 1000 buys of 0.001 shares at 0.10 each: basis must stay exactly 0.10.
	var pos *model.Position
	var err error
	for i := 0; i < 1000; i++ {
		pos, err = ApplyFill(pos, "PENNY", model.Buy, d("0.001"), d("0.10"))
		if err != nil {
			t.Fatalf("unexpected error on buy %d: %v", i, err)
		}
	}
	if !pos.Quantity.Equal(d("1")) {
		t.Errorf("expected quantity 1, got %s", pos.Quantity)
	}
	if !pos.AvgCostBasis.Equal(d("0.10")) {
		t.Errorf("basis drifted: expected 0.10, got %s", pos.AvgCostBasis)
	}
}
