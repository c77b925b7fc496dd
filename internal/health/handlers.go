package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var startedAt = time.Now()

// Handlers reports liveness of the app and its two backing stores.
type Handlers struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	dbStatus := "not configured"
	if h.DB != nil {
		dbStatus = "ok"
		if sqlDB, err := h.DB.DB(); err != nil {
			dbStatus = "error: " + err.Error()
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}

	redisStatus := "not configured"
	if h.Rdb != nil {
		redisStatus = "ok"
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.Rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}
	}

	status := fiber.StatusOK
	if dbStatus != "ok" && dbStatus != "not configured" {
		status = fiber.StatusServiceUnavailable
	}
	if redisStatus != "ok" && redisStatus != "not configured" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         "up",
		"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		"database":       dbStatus,
		"redis":          redisStatus,
	})
}
