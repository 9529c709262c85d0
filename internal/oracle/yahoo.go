package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/metrics"
)

const (
	defaultYahooBaseURL = "https://query2.finance.yahoo.com"

	// Yahoo intermittently returns empty chart data or throttles; a few
	// bounded attempts smooth that over without hiding real outages.
	yahooMaxAttempts = 3
	yahooRetryDelay  = 200 * time.Millisecond
)

// YahooOracle fetches quotes from the Yahoo Finance chart endpoint.
type YahooOracle struct {
	client     *http.Client
	baseURL    string
	retryDelay time.Duration
}

// NewYahooOracle creates a Yahoo-backed oracle with a 10s request timeout.
func NewYahooOracle() *YahooOracle {
	return &YahooOracle{
		client:     &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultYahooBaseURL,
		retryDelay: yahooRetryDelay,
	}
}

// NewYahooOracleWithBaseURL overrides the endpoint and removes the retry
// backoff, used in tests.
func NewYahooOracleWithBaseURL(baseURL string) *YahooOracle {
	o := NewYahooOracle()
	o.baseURL = baseURL
	o.retryDelay = 0
	return o
}

// GetPrice fetches the quote, retrying transient failures up to
// yahooMaxAttempts times before giving up.
func (o *YahooOracle) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 0; attempt < yahooMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				metrics.PriceFetchErrors.WithLabelValues("yahoo").Inc()
				return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, ticker, ctx.Err())
			case <-time.After(o.retryDelay):
			}
		}
		price, err := o.fetch(ctx, ticker)
		if err == nil {
			return price, nil
		}
		lastErr = err
	}
	metrics.PriceFetchErrors.WithLabelValues("yahoo").Inc()
	return decimal.Zero, lastErr
}

func (o *YahooOracle) fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d",
		o.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, ticker, err)
	}
	// Yahoo rejects requests without a browser-like user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: %s: status %d", ErrPriceUnavailable, ticker, resp.StatusCode)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string  `json:"symbol"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, ticker, err)
	}

	if len(payload.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s: no quote", ErrPriceUnavailable, ticker)
	}
	price := decimal.NewFromFloat(payload.Chart.Result[0].Meta.RegularMarketPrice)
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive quote", ErrPriceUnavailable, ticker)
	}
	return price, nil
}
