package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	DatabaseURL   string
	RedisURL      string

	// Market data API (Polygon-style): key is passed as the apiKey query param.
	MarketDataURL     string
	MarketDataAPIKey  string
	MarketDataTimeout time.Duration

	// Idle gap between per-ticker previous-close requests during a portfolio
	// refresh (free-tier rate limit avoidance).
	PriceFetchInterval time.Duration

	// Single fallback applied whenever an FX fetch fails, both in the add
	// flow (EUR->USD) and the display toggle.
	FxFallbackRate string

	// Settle delay before a passive (debounced) ticker check fires.
	TickerSettleDelay time.Duration

	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" {
		if u := viper.GetString("DATABASE_URL_TEST"); u != "" {
			dbURL = u
		}
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		MarketDataURL:       marketDataURL(viper.GetString("MARKET_DATA_URL")),
		MarketDataAPIKey:    viper.GetString("MARKET_DATA_API_KEY"),
		MarketDataTimeout:   durationOr("MARKET_DATA_TIMEOUT", 10*time.Second),
		PriceFetchInterval:  durationOr("PRICE_FETCH_INTERVAL", 1200*time.Millisecond),
		FxFallbackRate:      stringOr("FX_FALLBACK_RATE", "1.08"),
		TickerSettleDelay:   durationOr("TICKER_SETTLE_DELAY", time.Second),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
	}, nil
}

func marketDataURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "https://api.polygon.io"
	}
	return strings.TrimRight(s, "/")
}

func durationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}
	// Require an explicit unit. Viper's own cast would read a bare "1200"
	// as nanoseconds, silently shrinking a rate-limit gap a millionfold.
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Dur("default", def).
			Msg("invalid duration value, using default")
		return def
	}
	return d
}

func stringOr(key, def string) string {
	if s := viper.GetString(key); s != "" {
		return s
	}
	return def
}
