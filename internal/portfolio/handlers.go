package portfolio

import (
	"errors"

	"github.com/jansteinbacher/stock-dashboard/internal/middleware"
	"github.com/jansteinbacher/stock-dashboard/internal/pkg/response"
	"github.com/jansteinbacher/stock-dashboard/internal/pkg/validation"
	"github.com/jansteinbacher/stock-dashboard/internal/tickercheck"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handlers bundles portfolio handlers.
type Handlers struct {
	Service  *Service
	Checkers *tickercheck.Registry
}

// ListHoldings GET /api/v1/portfolio/holdings
func (h *Handlers) ListHoldings(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	holdings, err := h.Service.List(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Holdings fetched successfully", holdings, nil)
}

type addHoldingRequest struct {
	Ticker       string          `json:"ticker"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	PurchaseDate string          `json:"purchase_date"`
}

// AddHolding POST /api/v1/portfolio/holdings
func (h *Handlers) AddHolding(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req addHoldingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	holding, err := h.Service.Add(c.Context(), userID, validation.HoldingForm{
		Ticker:   req.Ticker,
		Quantity: req.Quantity,
		Price:    req.Price,
		Currency: req.Currency,
		Date:     req.PurchaseDate,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Holding added successfully", holding, nil)
}

type updateHoldingRequest struct {
	Quantity     *decimal.Decimal `json:"quantity"`
	Price        *decimal.Decimal `json:"price"`
	PurchaseDate *string          `json:"purchase_date"`
}

// UpdateHolding PUT /api/v1/portfolio/holdings/:id
func (h *Handlers) UpdateHolding(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid holding ID format (must be a valid UUID)", 400, nil)
	}
	var req updateHoldingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	holding, err := h.Service.Update(c.Context(), userID, id, UpdateInput{
		Quantity: req.Quantity,
		Price:    req.Price,
		Date:     req.PurchaseDate,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Holding updated successfully", holding, nil)
}

// DeleteHolding DELETE /api/v1/portfolio/holdings/:id
func (h *Handlers) DeleteHolding(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid holding ID format (must be a valid UUID)", 400, nil)
	}
	if err := h.Service.Delete(c.Context(), userID, id); err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Holding deleted successfully", nil, nil)
}

// Summary GET /api/v1/portfolio/summary?currency=EUR
// Runs the full refresh sequence and returns rows plus converted totals.
func (h *Handlers) Summary(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	result, err := h.Service.Refresh(c.Context(), userID, c.Query("currency", "USD"))
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Portfolio refreshed successfully", result, nil)
}

// FxRate GET /api/v1/portfolio/fx-rate?currency=EUR
// Backs the display currency toggle: one FX fetch, the client re-renders
// its cached rows without re-fetching prices.
func (h *Handlers) FxRate(c *fiber.Ctx) error {
	if _, ok := middleware.CurrentUserID(c); !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	currency := c.Query("currency", "USD")
	if currency != "USD" && currency != "EUR" {
		return response.Error(c, "Currency must be USD or EUR", 400, nil)
	}
	rate := h.Service.DisplayFxRate(c.Context(), currency)
	return response.Success(c, "FX rate fetched successfully", fiber.Map{
		"currency": currency,
		"fx_rate":  rate,
	}, nil)
}

type validateTickerRequest struct {
	Symbol    string `json:"symbol"`
	Immediate bool   `json:"immediate"`
}

// ValidateTicker POST /api/v1/tickers/validate
// Schedules a debounced check for the session's add dialog; with immediate
// set (the check button) it pre-empts the pending debounce and waits.
func (h *Handlers) ValidateTicker(c *fiber.Ctx) error {
	sid := middleware.GetSessionID(c)
	if sid == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req validateTickerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	checker := h.Checkers.ForSession(sid)
	if req.Immediate {
		snap := checker.CheckNow(c.Context(), req.Symbol)
		return response.Success(c, "Ticker checked", snap, nil)
	}
	checker.Edit(req.Symbol)
	return response.Success(c, "Ticker check scheduled", checker.Snapshot(), nil)
}

// TickerState GET /api/v1/tickers/validate
func (h *Handlers) TickerState(c *fiber.Ctx) error {
	sid := middleware.GetSessionID(c)
	if sid == "" {
		return response.Unauthorized(c, "Unauthorized")
	}
	return response.Success(c, "Ticker state", h.Checkers.ForSession(sid).Snapshot(), nil)
}

func serviceError(c *fiber.Ctx, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return response.Error(c, "Validation failed", 400, fiber.Map{"fields": verr.Fields})
	case errors.Is(err, ErrHoldingNotFound):
		return response.Error(c, "Holding not found", 404, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}
