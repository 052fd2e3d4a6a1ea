package auth

import (
	"github.com/gofiber/fiber/v2"
)

// SessionIdentity resolves the session user once per request and stores
// it in the request context. Invalid sessions continue as anonymous.
func SessionIdentity(sessions SessionBinder, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		user, err := sessions.Resolve(c)
		if err != nil {
			if !HasTextCode(err, TextCodeSessionInvalid) {
				return err
			}
			logger.Warn("discarded session for unknown user",
				"ip", c.IP(),
				"method", c.Method(),
				"path", c.Path(),
			)
		}

		if user != nil {
			setCurrentUser(c, user)
		}

		return c.Next()
	}
}

// RequireUser rejects anonymous requests with ErrUnauthorized
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUser(c); !ok {
			return ErrUnauthorized
		}
		return c.Next()
	}
}
