// Package requestlog writes one structured log line per request.
package requestlog

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the logger used by the middleware
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config configures New
type Config struct {
	Logger Logger
	// Skip excludes requests from logging, e.g. health checks
	Skip func(c *fiber.Ctx) bool
	// UserID returns the id of the request user
	UserID func(c *fiber.Ctx) string
	now    func() time.Time
}

// New returns the request logging middleware. Errors returned by later
// handlers are passed to the app error handler before the line is
// written so the logged status matches the response.
func New(cfg Config) fiber.Handler {
	if cfg.now == nil {
		cfg.now = time.Now
	}

	return func(c *fiber.Ctx) error {
		if cfg.Logger == nil || (cfg.Skip != nil && cfg.Skip(c)) {
			return c.Next()
		}

		start := cfg.now()

		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		args := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", cfg.now().Sub(start).String(),
			"ip", c.IP(),
		}
		if cfg.UserID != nil {
			args = append(args, "user_id", cfg.UserID(c))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			cfg.Logger.Error("request", args...)
		case status >= fiber.StatusBadRequest:
			cfg.Logger.Warn("request", args...)
		default:
			cfg.Logger.Info("request", args...)
		}

		return nil
	}
}
