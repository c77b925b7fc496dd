package portfolio

import (
	"context"
	"time"

	"github.com/jansteinbacher/stock-dashboard/internal/valuation"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PreviousCloser is the slice of the market data client the fetcher needs.
type PreviousCloser interface {
	PreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PriceFetcher fetches previous closes one ticker at a time with a fixed
// idle gap between requests, respecting the external API's free-tier rate
// limit. The sleep func is injectable so tests run without real delays.
type PriceFetcher struct {
	source   PreviousCloser
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPriceFetcher(source PreviousCloser, interval time.Duration) *PriceFetcher {
	return &PriceFetcher{
		source:   source,
		interval: interval,
		sleep:    sleepCtx,
	}
}

// WithSleep overrides the inter-request wait (tests).
func (f *PriceFetcher) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *PriceFetcher {
	f.sleep = sleep
	return f
}

// FetchAll builds a fresh price map for the given tickers. A failed ticker
// is recorded as not-known and the loop continues; cancelling the context
// stops the loop and returns what was gathered so far along with ctx.Err().
func (f *PriceFetcher) FetchAll(ctx context.Context, tickers []string) (valuation.PriceMap, error) {
	prices := make(valuation.PriceMap, len(tickers))
	for i, ticker := range tickers {
		if i > 0 {
			if err := f.sleep(ctx, f.interval); err != nil {
				return prices, err
			}
		}
		price, err := f.source.PreviousClose(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return prices, ctx.Err()
			}
			log.Warn().Err(err).Str("ticker", ticker).Msg("previous close unavailable, valuing at zero")
			prices[ticker] = valuation.Quote{}
			continue
		}
		prices[ticker] = valuation.Quote{Price: price, Known: true}
	}
	return prices, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
