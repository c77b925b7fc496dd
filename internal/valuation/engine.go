// Package valuation computes display rows and aggregate totals from raw
// holdings, a price map and a display FX rate. It is pure: no I/O, never
// fails, never panics on odd inputs.
package valuation

import (
	"github.com/jansteinbacher/stock-dashboard/internal/models"

	"github.com/shopspring/decimal"
)

// Quote is one previous-close observation. Known distinguishes "no data"
// from a genuine zero close.
type Quote struct {
	Price decimal.Decimal
	Known bool
}

// PriceMap maps ticker to its latest known previous close. Rebuilt from
// scratch on every refresh.
type PriceMap map[string]Quote

// Row is a holding extended with derived valuation figures, all in the
// canonical storage currency (USD). Lifetime is one render cycle.
type Row struct {
	models.Holding
	CurrentPrice    decimal.Decimal `json:"current_price"`
	PriceKnown      bool            `json:"price_known"`
	MarketValue     decimal.Decimal `json:"market_value"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
}

// Totals aggregates all rows, converted into the display currency by the
// scalar FX rate.
type Totals struct {
	MarketValue     decimal.Decimal `json:"market_value"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
}

var hundred = decimal.NewFromInt(100)

// Compute derives rows and totals. Tickers absent from the price map yield
// a zero market value with PriceKnown false. Totals are summed in USD and
// then multiplied by displayFx; converting before or after summation is
// equivalent since the rate is a scalar. A zero cost basis yields percent 0,
// never a division error.
func Compute(holdings []models.Holding, prices PriceMap, displayFx decimal.Decimal) ([]Row, Totals) {
	rows := make([]Row, 0, len(holdings))
	totalMV := decimal.Zero
	totalCB := decimal.Zero

	for _, h := range holdings {
		quote := prices[h.Ticker]
		price := decimal.Zero
		if quote.Known {
			price = quote.Price
		}

		mv := h.Quantity.Mul(price)
		cb := h.Quantity.Mul(h.PurchasePriceUSD)
		rows = append(rows, Row{
			Holding:         h,
			CurrentPrice:    price,
			PriceKnown:      quote.Known,
			MarketValue:     mv,
			CostBasis:       cb,
			GainLoss:        mv.Sub(cb),
			GainLossPercent: percent(mv.Sub(cb), cb),
		})

		totalMV = totalMV.Add(mv)
		totalCB = totalCB.Add(cb)
	}

	convMV := totalMV.Mul(displayFx)
	convCB := totalCB.Mul(displayFx)
	return rows, Totals{
		MarketValue:     convMV,
		CostBasis:       convCB,
		GainLoss:        convMV.Sub(convCB),
		GainLossPercent: percent(convMV.Sub(convCB), convCB),
	}
}

// UniqueTickers returns the distinct tickers across holdings, preserving
// first-seen order.
func UniqueTickers(holdings []models.Holding) []string {
	seen := make(map[string]bool, len(holdings))
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if !seen[h.Ticker] {
			seen[h.Ticker] = true
			out = append(out, h.Ticker)
		}
	}
	return out
}

func percent(gainLoss, costBasis decimal.Decimal) decimal.Decimal {
	if costBasis.IsZero() {
		return decimal.Zero
	}
	return gainLoss.Div(costBasis).Mul(hundred).Round(2)
}
