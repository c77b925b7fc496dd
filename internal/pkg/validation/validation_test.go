package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func form() HoldingForm {
	return HoldingForm{
		Ticker:   "aapl",
		Quantity: decimal.NewFromInt(10),
		Price:    decimal.RequireFromString("100.50"),
		Currency: "usd",
		Date:     "2023-06-01",
	}
}

func TestCheck_ValidForm(t *testing.T) {
	assert.Empty(t, form().Check())
	assert.Equal(t, "AAPL", form().NormalizedTicker())
	assert.Equal(t, "USD", form().NormalizedCurrency())
}

func TestCheck_TickerRules(t *testing.T) {
	f := form()
	f.Ticker = ""
	assert.Contains(t, f.Check(), "ticker")

	f.Ticker = "toolongsymbol"
	assert.Contains(t, f.Check(), "ticker")

	f.Ticker = "BRK.B"
	assert.NotContains(t, f.Check(), "ticker")
}

func TestCheck_QuantityAndPriceBounds(t *testing.T) {
	f := form()
	f.Quantity = decimal.RequireFromString("0.5")
	f.Price = decimal.RequireFromString("0.009")
	errs := f.Check()
	assert.Equal(t, "Quantity must be at least 1", errs["quantity"])
	assert.Equal(t, "Price must be at least 0.01", errs["price"])

	f.Quantity = decimal.NewFromInt(1)
	f.Price = decimal.RequireFromString("0.01")
	assert.Empty(t, f.Check())
}

func TestCheck_DateAndCurrency(t *testing.T) {
	f := form()
	f.Date = "01.06.2023"
	f.Currency = "GBP"
	errs := f.Check()
	assert.Equal(t, "Purchase date must be YYYY-MM-DD", errs["date"])
	assert.Equal(t, "Currency must be USD or EUR", errs["currency"])

	f.Date = ""
	assert.Equal(t, "Purchase date is required", f.Check()["date"])

	f.Date = "2023-06-01"
	f.Currency = "eur"
	assert.NotContains(t, f.Check(), "currency")
}
