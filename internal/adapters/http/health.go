package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

// HealthHandler reports liveness and process uptime.
func HealthHandler() fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	}
}

// ReadyHandler checks storage, the event broker and the cache. The database
// must be configured. Cache and broker may be absent, but when configured
// they must answer.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true
		check := func(name string, configured, required bool, ping func() error) {
			if !configured {
				checks[name] = "not configured"
				ready = ready && !required
				return
			}
			if err := ping(); err != nil {
				checks[name] = "error: " + err.Error()
				ready = false
				return
			}
			checks[name] = "ok"
		}

		check("database", deps.DB != nil, true, func() error { return deps.DB.Ping(ctx) })
		check("nats", deps.Events != nil, false, func() error { return deps.Events.Ping() })
		check("cache", deps.Cache != nil, false, func() error { return deps.Cache.Ping(ctx) })

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
