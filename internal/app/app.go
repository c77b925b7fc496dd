package app

import (
	"context"

	"github.com/jansteinbacher/stock-dashboard/internal/auth"
	"github.com/jansteinbacher/stock-dashboard/internal/config"
	"github.com/jansteinbacher/stock-dashboard/internal/database"
	"github.com/jansteinbacher/stock-dashboard/internal/health"
	"github.com/jansteinbacher/stock-dashboard/internal/marketdata"
	"github.com/jansteinbacher/stock-dashboard/internal/middleware"
	"github.com/jansteinbacher/stock-dashboard/internal/portfolio"
	"github.com/jansteinbacher/stock-dashboard/internal/tickercheck"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all middleware and routes. Every
// dependency is constructed here and passed down explicitly; there are no
// process-wide client singletons.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis)
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	// db may be nil if DATABASE_URL is not set (e.g. tests); protected
	// routes are only mounted when both stores are available.
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	// Health
	healthHandlers := &health.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", healthHandlers.JSON)

	// Auth (no auth middleware)
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	// --- Protected modules (auth required) ---
	if db != nil && rdb != nil {
		market := marketdata.New(cfg)
		fallback, err := decimal.NewFromString(cfg.FxFallbackRate)
		if err != nil {
			return nil, nil, nil, err
		}

		portfolioService := &portfolio.Service{
			DB:         db,
			Market:     market,
			Fetcher:    portfolio.NewPriceFetcher(market, cfg.PriceFetchInterval),
			FxFallback: fallback,
		}
		checkers := tickercheck.NewRegistry(func(ctx context.Context, symbol string) (string, error) {
			details, err := market.LookupTicker(ctx, symbol)
			return details.Name, err
		}, cfg.TickerSettleDelay)
		portfolioHandlers := &portfolio.Handlers{Service: portfolioService, Checkers: checkers}
		// Checkers live outside Redis, so login/logout must retire them
		// alongside the session keys.
		authHandlers.Cleaner = checkers

		portfolioGroup := app.Group("/api/v1/portfolio", middleware.RequireAuth())
		portfolioGroup.Get("/holdings", portfolioHandlers.ListHoldings)
		portfolioGroup.Post("/holdings", portfolioHandlers.AddHolding)
		portfolioGroup.Put("/holdings/:id", portfolioHandlers.UpdateHolding)
		portfolioGroup.Delete("/holdings/:id", portfolioHandlers.DeleteHolding)
		portfolioGroup.Get("/summary", portfolioHandlers.Summary)
		portfolioGroup.Get("/fx-rate", portfolioHandlers.FxRate)

		tickerGroup := app.Group("/api/v1/tickers", middleware.RequireAuth())
		tickerGroup.Post("/validate", portfolioHandlers.ValidateTicker)
		tickerGroup.Get("/validate", portfolioHandlers.TickerState)
	}

	return app, db, rdb, nil
}
