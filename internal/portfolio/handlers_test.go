package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jansteinbacher/stock-dashboard/internal/models"
	"github.com/jansteinbacher/stock-dashboard/internal/tickercheck"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupHandlersTest(t *testing.T, market *fakeMarket, closer *fakeCloser) (*Handlers, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Holding{}))
	if closer == nil {
		closer = &fakeCloser{}
	}
	svc := &Service{
		DB:         db,
		Market:     market,
		Fetcher:    NewPriceFetcher(closer, 0).WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
		FxFallback: decimal.RequireFromString("1.08"),
	}
	checkers := tickercheck.NewRegistry(func(ctx context.Context, symbol string) (string, error) {
		d, err := market.LookupTicker(ctx, symbol)
		return d.Name, err
	}, time.Millisecond)
	return &Handlers{Service: svc, Checkers: checkers}, db
}

func testApp(h *Handlers, userID uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != uuid.Nil {
			c.Locals("user", map[string]interface{}{"user_id": userID.String()})
			c.Locals("session_id", "test-session")
		}
		return c.Next()
	})
	app.Get("/api/v1/portfolio/holdings", h.ListHoldings)
	app.Post("/api/v1/portfolio/holdings", h.AddHolding)
	app.Put("/api/v1/portfolio/holdings/:id", h.UpdateHolding)
	app.Delete("/api/v1/portfolio/holdings/:id", h.DeleteHolding)
	app.Get("/api/v1/portfolio/summary", h.Summary)
	app.Get("/api/v1/portfolio/fx-rate", h.FxRate)
	app.Post("/api/v1/tickers/validate", h.ValidateTicker)
	app.Get("/api/v1/tickers/validate", h.TickerState)
	return app
}

func toBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestAddHolding_CreatesRow(t *testing.T) {
	h, db := setupHandlersTest(t, &fakeMarket{tickers: map[string]string{"AAPL": "Apple Inc."}}, nil)
	userID := uuid.New()
	app := testApp(h, userID)

	req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings", toBody(t, fiber.Map{
		"ticker":        "aapl",
		"quantity":      10,
		"price":         100,
		"currency":      "USD",
		"purchase_date": "2023-06-01",
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var holding models.Holding
	require.NoError(t, db.First(&holding).Error)
	assert.Equal(t, "AAPL", holding.Ticker)
	assert.Equal(t, userID, holding.UserID)
}

func TestAddHolding_EURStoresConvertedPrice(t *testing.T) {
	market := &fakeMarket{
		tickers: map[string]string{"SAP": "SAP SE"},
		fx:      map[string]string{"EURUSD": "1.10"},
	}
	h, db := setupHandlersTest(t, market, nil)
	app := testApp(h, uuid.New())

	req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings", toBody(t, fiber.Map{
		"ticker":        "SAP",
		"quantity":      2,
		"price":         100,
		"currency":      "EUR",
		"purchase_date": "2023-06-01",
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var holding models.Holding
	require.NoError(t, db.First(&holding).Error)
	assert.True(t, holding.PurchasePriceUSD.Equal(decimal.NewFromInt(110)))
}

func TestAddHolding_InvalidTickerIs400WithFieldError(t *testing.T) {
	h, _ := setupHandlersTest(t, &fakeMarket{tickers: map[string]string{}}, nil)
	app := testApp(h, uuid.New())

	req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings", toBody(t, fiber.Map{
		"ticker":        "NOPE",
		"quantity":      1,
		"price":         1,
		"currency":      "USD",
		"purchase_date": "2023-06-01",
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	details := body["error"].(map[string]interface{})["details"].(map[string]interface{})
	fields := details["fields"].(map[string]interface{})
	assert.Equal(t, "Ticker not found", fields["ticker"])
}

func TestListHoldings_RequiresAuth(t *testing.T) {
	h, _ := setupHandlersTest(t, &fakeMarket{}, nil)
	app := testApp(h, uuid.Nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/portfolio/holdings", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSummary_ReturnsRowsAndTotals(t *testing.T) {
	market := &fakeMarket{tickers: map[string]string{"AAPL": "Apple Inc."}}
	closer := &fakeCloser{prices: map[string]string{"AAPL": "150"}}
	h, _ := setupHandlersTest(t, market, closer)
	userID := uuid.New()
	app := testApp(h, userID)

	req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings", toBody(t, fiber.Map{
		"ticker":        "AAPL",
		"quantity":      10,
		"price":         100,
		"currency":      "USD",
		"purchase_date": "2023-06-01",
	}))
	req.Header.Set("Content-Type", "application/json")
	_, err := app.Test(req)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/portfolio/summary?currency=USD", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Totals struct {
				MarketValue     string `json:"market_value"`
				CostBasis       string `json:"cost_basis"`
				GainLoss        string `json:"gain_loss"`
				GainLossPercent string `json:"gain_loss_percent"`
			} `json:"totals"`
			Currency string `json:"currency"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "1500", body.Data.Totals.MarketValue)
	assert.Equal(t, "1000", body.Data.Totals.CostBasis)
	assert.Equal(t, "500", body.Data.Totals.GainLoss)
	assert.Equal(t, "50", body.Data.Totals.GainLossPercent)
	assert.Equal(t, "USD", body.Data.Currency)
}

func TestDeleteHolding_SecondDeleteIs404(t *testing.T) {
	h, db := setupHandlersTest(t, &fakeMarket{tickers: map[string]string{"AAPL": "Apple Inc."}}, nil)
	userID := uuid.New()
	app := testApp(h, userID)

	holding := models.Holding{
		UserID:           userID,
		Ticker:           "AAPL",
		Quantity:         decimal.NewFromInt(1),
		PurchasePriceUSD: decimal.NewFromInt(1),
	}
	require.NoError(t, db.Create(&holding).Error)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/portfolio/holdings/"+holding.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/v1/portfolio/holdings/"+holding.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateHolding_InvalidUUIDIs400(t *testing.T) {
	h, _ := setupHandlersTest(t, &fakeMarket{}, nil)
	app := testApp(h, uuid.New())

	req := httptest.NewRequest("PUT", "/api/v1/portfolio/holdings/not-a-uuid", toBody(t, fiber.Map{"quantity": 5}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFxRate_RejectsUnknownCurrency(t *testing.T) {
	h, _ := setupHandlersTest(t, &fakeMarket{}, nil)
	app := testApp(h, uuid.New())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/portfolio/fx-rate?currency=GBP", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidateTicker_ImmediateReturnsValidState(t *testing.T) {
	h, _ := setupHandlersTest(t, &fakeMarket{tickers: map[string]string{"AAPL": "Apple Inc."}}, nil)
	app := testApp(h, uuid.New())

	req := httptest.NewRequest("POST", "/api/v1/tickers/validate", toBody(t, fiber.Map{
		"symbol":    "AAPL",
		"immediate": true,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data tickercheck.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, tickercheck.StateValid, body.Data.State)
	assert.Equal(t, "Apple Inc.", body.Data.DisplayName)
}
