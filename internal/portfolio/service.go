package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/jansteinbacher/stock-dashboard/internal/marketdata"
	"github.com/jansteinbacher/stock-dashboard/internal/models"
	"github.com/jansteinbacher/stock-dashboard/internal/pkg/validation"
	"github.com/jansteinbacher/stock-dashboard/internal/valuation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MarketData is the slice of the market data client the service consumes.
type MarketData interface {
	LookupTicker(ctx context.Context, symbol string) (marketdata.TickerDetails, error)
	FxRate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// Service owns the holdings store operations and the refresh orchestration.
type Service struct {
	DB      *gorm.DB
	Market  MarketData
	Fetcher *PriceFetcher

	// FxFallback is the EUR->USD rate applied whenever an FX fetch fails.
	// One constant for every call site.
	FxFallback decimal.Decimal
}

// RefreshResult is one full render cycle: rows in USD plus totals converted
// into the display currency.
type RefreshResult struct {
	Rows     []valuation.Row  `json:"rows"`
	Totals   valuation.Totals `json:"totals"`
	Currency string           `json:"currency"`
	FxRate   decimal.Decimal  `json:"fx_rate"`
}

// List returns the user's holdings ordered by ticker.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("ticker").
		Find(&holdings).Error
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

// Add validates the form, re-checks the ticker against the market data API
// (submission is blocked unless the ticker is valid) and stores the holding
// with its price normalized to USD.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, form validation.HoldingForm) (models.Holding, error) {
	if errs := form.Check(); len(errs) > 0 {
		return models.Holding{}, &ValidationError{Fields: errs}
	}
	ticker := form.NormalizedTicker()

	if _, err := s.Market.LookupTicker(ctx, ticker); err != nil {
		// Not-found and transport failure both block submission the same way.
		if !errors.Is(err, marketdata.ErrNotFound) {
			log.Warn().Err(err).Str("ticker", ticker).Msg("ticker check failed")
		}
		return models.Holding{}, &ValidationError{Fields: map[string]string{"ticker": "Ticker not found"}}
	}

	price := form.Price
	if form.NormalizedCurrency() == "EUR" {
		price = price.Mul(s.eurToUsd(ctx))
	}

	date, _ := time.Parse("2006-01-02", form.Date) // format guaranteed by Check

	holding := models.Holding{
		UserID:           userID,
		Ticker:           ticker,
		Quantity:         form.Quantity,
		PurchasePriceUSD: price,
		PurchaseDate:     datatypes.Date(date),
	}
	if err := s.DB.WithContext(ctx).Create(&holding).Error; err != nil {
		return models.Holding{}, err
	}
	return holding, nil
}

// UpdateInput carries the editable fields; nil means leave unchanged.
// Price is already in the canonical currency (the edit dialog works in USD).
type UpdateInput struct {
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
	Date     *string
}

// Update mutates the caller's own row only.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (models.Holding, error) {
	var holding models.Holding
	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&holding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Holding{}, ErrHoldingNotFound
		}
		return models.Holding{}, err
	}

	errs := make(map[string]string)
	if in.Quantity != nil {
		if in.Quantity.LessThan(decimal.NewFromInt(1)) {
			errs["quantity"] = "Quantity must be at least 1"
		} else {
			holding.Quantity = *in.Quantity
		}
	}
	if in.Price != nil {
		if in.Price.LessThan(decimal.RequireFromString("0.01")) {
			errs["price"] = "Price must be at least 0.01"
		} else {
			holding.PurchasePriceUSD = *in.Price
		}
	}
	if in.Date != nil {
		d, err := time.Parse("2006-01-02", *in.Date)
		if err != nil {
			errs["date"] = "Purchase date must be YYYY-MM-DD"
		} else {
			holding.PurchaseDate = datatypes.Date(d)
		}
	}
	if len(errs) > 0 {
		return models.Holding{}, &ValidationError{Fields: errs}
	}

	if err := s.DB.WithContext(ctx).Save(&holding).Error; err != nil {
		return models.Holding{}, err
	}
	return holding, nil
}

// Delete removes the caller's own row only.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Holding{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

// Refresh runs the full render cycle: load holdings, resolve distinct
// tickers, fetch previous closes sequentially, fetch the display FX rate
// and run the valuation engine. Stored data is never touched; the currency
// toggle is display-only.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID, displayCurrency string) (RefreshResult, error) {
	if displayCurrency != "EUR" {
		displayCurrency = "USD"
	}

	holdings, err := s.List(ctx, userID)
	if err != nil {
		return RefreshResult{}, err
	}

	prices, err := s.Fetcher.FetchAll(ctx, valuation.UniqueTickers(holdings))
	if err != nil {
		return RefreshResult{}, err
	}

	fx := s.DisplayFxRate(ctx, displayCurrency)
	rows, totals := valuation.Compute(holdings, prices, fx)
	return RefreshResult{
		Rows:     rows,
		Totals:   totals,
		Currency: displayCurrency,
		FxRate:   fx,
	}, nil
}

// DisplayFxRate converts the canonical currency into the display currency.
// USD is always 1; on fetch failure the configured fallback (inverted, as
// it is quoted EUR->USD) applies.
func (s *Service) DisplayFxRate(ctx context.Context, displayCurrency string) decimal.Decimal {
	if displayCurrency == "" || displayCurrency == "USD" {
		return decimal.NewFromInt(1)
	}
	rate, err := s.Market.FxRate(ctx, "USD", displayCurrency)
	if err != nil {
		log.Warn().Err(err).Str("currency", displayCurrency).Msg("display FX fetch failed, using fallback")
		return decimal.NewFromInt(1).DivRound(s.FxFallback, 8)
	}
	return rate
}

func (s *Service) eurToUsd(ctx context.Context) decimal.Decimal {
	rate, err := s.Market.FxRate(ctx, "EUR", "USD")
	if err != nil {
		log.Warn().Err(err).Msg("EUR->USD fetch failed, using fallback")
		return s.FxFallback
	}
	return rate
}
