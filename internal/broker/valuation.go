package broker

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/model"
)

var hundred = decimal.NewFromInt(100)

// percentScale bounds the decimal places of the percent fields; values and
// P&L amounts stay at full precision.
const percentScale int32 = 4

// valuate derives the account view: per-position market value and
// unrealized P&L against one fresh price fetch per distinct held ticker,
// plus account totals against starting cash.
//
// Valuation degrades per position: a ticker whose price fetch fails gets a
// priceError marker and contributes nothing to the totals, and the rest of
// the view is still produced.
func (s *Service) valuate(ctx context.Context, acct *model.Account) *model.AccountView {
	view := &model.AccountView{
		UserID:    acct.UserID,
		Cash:      acct.Cash,
		Positions: make([]model.PositionView, 0, len(acct.Positions)),
		Orders:    acct.Orders,
		CreatedAt: acct.CreatedAt,
	}
	if view.Orders == nil {
		view.Orders = []model.Order{}
	}

	// Stable position order for deterministic responses.
	tickers := make([]string, 0, len(acct.Positions))
	for t := range acct.Positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	total := acct.Cash
	for _, t := range tickers {
		pos := acct.Positions[t]
		pv := model.PositionView{
			Ticker:       pos.Ticker,
			Quantity:     pos.Quantity,
			AvgCostBasis: pos.AvgCostBasis,
		}

		price, err := s.oracle.GetPrice(ctx, t)
		if err != nil {
			pv.PriceError = "price unavailable"
			view.Positions = append(view.Positions, pv)
			continue
		}

		marketValue := pos.Quantity.Mul(price)
		costBasis := pos.Quantity.Mul(pos.AvgCostBasis)
		unrealized := marketValue.Sub(costBasis)

		pv.CurrentPrice = &price
		pv.MarketValue = &marketValue
		pv.UnrealizedPL = &unrealized
		if costBasis.IsPositive() {
			unrealizedPct := unrealized.Div(costBasis).Mul(hundred).Round(percentScale)
			pv.UnrealizedPLPercent = &unrealizedPct
		}

		total = total.Add(marketValue)
		view.Positions = append(view.Positions, pv)
	}

	view.TotalValue = total
	view.TotalPL = total.Sub(model.StartingCash)
	view.TotalPLPercent = view.TotalPL.Div(model.StartingCash).Mul(hundred).Round(percentScale)
	return view
}
