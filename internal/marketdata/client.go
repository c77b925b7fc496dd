package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jansteinbacher/stock-dashboard/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TickerDetails is the projection of a ticker lookup used by the add flow.
type TickerDetails struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// Client wraps the two read-only market data endpoints (ticker details and
// previous-close aggregate). The API key travels as the apiKey query param.
type Client struct {
	http   *resty.Client
	apiKey string
}

func New(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.MarketDataURL).
		SetTimeout(cfg.MarketDataTimeout)
	return &Client{http: client, apiKey: cfg.MarketDataAPIKey}
}

type tickerDetailsResponse struct {
	Status  string        `json:"status"`
	Results TickerDetails `json:"results"`
}

type prevCloseResponse struct {
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		Close float64 `json:"c"`
	} `json:"results"`
}

// LookupTicker resolves a symbol to its details. Success requires an exact
// match: the returned ticker must equal the uppercased input; anything else
// is ErrNotFound. Transport failures propagate so callers can tell a dead
// network from a missing symbol.
func (c *Client) LookupTicker(ctx context.Context, symbol string) (TickerDetails, error) {
	if c.apiKey == "" {
		return TickerDetails{}, ErrMissingAPIKey
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("apiKey", c.apiKey).
		Get("/tickers/" + symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("ticker lookup request failed")
		return TickerDetails{}, fmt.Errorf("lookup ticker %s: %w", symbol, err)
	}
	if resp.StatusCode() == 404 {
		return TickerDetails{}, ErrNotFound
	}
	if resp.IsError() {
		return TickerDetails{}, fmt.Errorf("lookup ticker %s: unexpected status %d", symbol, resp.StatusCode())
	}

	var body tickerDetailsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return TickerDetails{}, fmt.Errorf("lookup ticker %s: decode response: %w", symbol, err)
	}
	if body.Results.Ticker != symbol {
		return TickerDetails{}, ErrNotFound
	}
	return body.Results, nil
}

// PreviousClose returns the last completed session's closing price for a
// symbol. A response without a bar is ErrNoData, never a zero price.
func (c *Client) PreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if c.apiKey == "" {
		return decimal.Zero, ErrMissingAPIKey
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("apiKey", c.apiKey).
		Get("/aggs/ticker/" + symbol + "/prev")
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("previous-close request failed")
		return decimal.Zero, fmt.Errorf("previous close %s: %w", symbol, err)
	}
	if resp.StatusCode() == 404 {
		return decimal.Zero, ErrNoData
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("previous close %s: unexpected status %d", symbol, resp.StatusCode())
	}

	var body prevCloseResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return decimal.Zero, fmt.Errorf("previous close %s: decode response: %w", symbol, err)
	}
	if len(body.Results) == 0 {
		return decimal.Zero, ErrNoData
	}
	return decimal.NewFromFloat(body.Results[0].Close), nil
}

// FxRate returns the previous-close conversion rate base->quote, fetched via
// the synthetic currency ticker C:{BASE}{QUOTE}. Identical currencies are
// always 1 without a network call.
func (c *Client) FxRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	return c.PreviousClose(ctx, "C:"+base+quote)
}
