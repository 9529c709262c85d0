package oracle

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/metrics"
)

// AlpacaOracle quotes from Alpaca market data using the latest trade price.
// Credentials come from the standard APCA_* environment variables read by
// the SDK client.
type AlpacaOracle struct {
	md *marketdata.Client
}

// NewAlpacaOracle creates an Alpaca-backed oracle.
func NewAlpacaOracle() *AlpacaOracle {
	return &AlpacaOracle{
		md: marketdata.NewClient(marketdata.ClientOpts{}),
	}
}

func (o *AlpacaOracle) GetPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	price, err := o.latestTradePrice(ticker)
	if err != nil {
		metrics.PriceFetchErrors.WithLabelValues("alpaca").Inc()
		return decimal.Zero, err
	}
	return price, nil
}

func (o *AlpacaOracle) latestTradePrice(ticker string) (decimal.Decimal, error) {
	trade, err := o.md.GetLatestTrade(ticker, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, ticker, err)
	}
	if trade == nil {
		return decimal.Zero, fmt.Errorf("%w: %s: no trade", ErrPriceUnavailable, ticker)
	}
	price := decimal.NewFromFloat(trade.Price)
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive quote", ErrPriceUnavailable, ticker)
	}
	return price, nil
}
