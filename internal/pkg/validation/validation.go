package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Exchange symbols: 1-10 uppercase letters/digits with optional "." or "-"
// separators (BRK.B, RDS-A).
var tickerRe = regexp.MustCompile(`^[A-Z0-9]{1,10}([.\-][A-Z0-9]{1,4})?$`)

var (
	minQuantity = decimal.NewFromInt(1)
	minPrice    = decimal.RequireFromString("0.01")
)

// Currencies accepted at input time. Stored prices are always USD.
var allowedCurrencies = map[string]bool{"USD": true, "EUR": true}

// HoldingForm carries the raw add/edit dialog fields.
type HoldingForm struct {
	Ticker   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Currency string
	Date     string
}

// Check validates the form schema and returns field-level errors keyed by
// field name. An empty map means the form is valid. Ticker existence is
// checked separately against the market-data API.
func (f HoldingForm) Check() map[string]string {
	errs := make(map[string]string)

	ticker := strings.ToUpper(strings.TrimSpace(f.Ticker))
	if ticker == "" {
		errs["ticker"] = "Ticker is required"
	} else if !tickerRe.MatchString(ticker) {
		errs["ticker"] = "Ticker must be a valid exchange symbol"
	}

	if f.Quantity.LessThan(minQuantity) {
		errs["quantity"] = "Quantity must be at least 1"
	}
	if f.Price.LessThan(minPrice) {
		errs["price"] = "Price must be at least 0.01"
	}

	if strings.TrimSpace(f.Date) == "" {
		errs["date"] = "Purchase date is required"
	} else if _, err := time.Parse("2006-01-02", f.Date); err != nil {
		errs["date"] = "Purchase date must be YYYY-MM-DD"
	}

	if !allowedCurrencies[strings.ToUpper(f.Currency)] {
		errs["currency"] = "Currency must be USD or EUR"
	}

	return errs
}

// NormalizedTicker returns the uppercased trimmed ticker.
func (f HoldingForm) NormalizedTicker() string {
	return strings.ToUpper(strings.TrimSpace(f.Ticker))
}

// NormalizedCurrency returns the uppercased currency code.
func (f HoldingForm) NormalizedCurrency() string {
	return strings.ToUpper(strings.TrimSpace(f.Currency))
}
