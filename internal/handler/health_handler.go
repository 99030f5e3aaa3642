package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// RegisterHealthRoutes wires liveness and readiness probes. rdb may be nil
// when the deployment runs without Redis backed rate limiting.
func RegisterHealthRoutes(app fiber.Router, rdb *redis.Client) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(rdb))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		redisStatus := "skipped"
		status := "ready"
		statusCode := fiber.StatusOK

		if rdb != nil {
			ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
			defer cancel()

			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "down"
				status = "not_ready"
				statusCode = fiber.StatusServiceUnavailable
			} else {
				redisStatus = "ok"
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				"redis": redisStatus,
			},
		})
	}
}
