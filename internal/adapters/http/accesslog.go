package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Probes and scrapes are polled every few seconds and stay out of the log.
var quietPaths = map[string]bool{
	"/metrics":   true,
	"/v1/health": true,
	"/v1/ready":  true,
}

// AccessLogMiddleware writes one structured line per request through the
// request-scoped logger. Map-view responses add the chosen mode.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if quietPaths[c.Path()] {
			return c.Next()
		}
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if mode := c.GetRespHeader("X-Map-Mode"); mode != "" {
			attrs = append(attrs,
				slog.String("map_mode", mode),
				slog.String("map_precision", c.GetRespHeader("X-Map-Precision")))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		ctx := c.UserContext()
		LoggerFromCtx(ctx).LogAttrs(ctx, accessLevel(status, err), "request", attrs...)
		return err
	}
}

func accessLevel(status int, err error) slog.Level {
	switch {
	case err != nil || status >= fiber.StatusInternalServerError:
		return slog.LevelError
	case status >= fiber.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
