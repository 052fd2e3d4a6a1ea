package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Strategy verifies the identity carried by a request. Implementations
// are LocalStrategy and the provider callback strategies in the social
// package.
type Strategy interface {
	Name() string
	Verify(c *fiber.Ctx) (*User, error)
}

// FailureHandler renders a rejected authentication attempt
type FailureHandler func(c *fiber.Ctx, err error) error

// LoginPayload is the local login body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate checks the required fields
func (p LoginPayload) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
	if err != nil {
		return NewValidationError("Email and password are required.", validationFields(err))
	}
	return nil
}

// LocalStrategy authenticates email and password pairs
type LocalStrategy struct {
	verifier CredentialVerifier
}

var _ Strategy = (*LocalStrategy)(nil)

// NewLocalStrategy returns a strategy backed by verifier
func NewLocalStrategy(verifier CredentialVerifier) *LocalStrategy {
	return &LocalStrategy{verifier: verifier}
}

func (s *LocalStrategy) Name() string { return "local" }

func (s *LocalStrategy) Verify(c *fiber.Ctx) (*User, error) {
	var payload LoginPayload
	if err := c.BodyParser(&payload); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation)
	}

	payload.Email = strings.TrimSpace(payload.Email)

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return s.verifier.VerifyCredentials(c.UserContext(), payload.Email, payload.Password)
}

// Authenticate runs strategy before the next handler. A verified user is
// bound to the session and the request context, failures go to onFail.
// A nil onFail returns the error to the fiber error handler.
func Authenticate(strategy Strategy, sessions SessionBinder, onFail FailureHandler, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		user, err := strategy.Verify(c)
		if err == nil && user == nil {
			err = ErrIdentityNotFound
		}

		if err != nil {
			logger.Info("authentication rejected", "strategy", strategy.Name(), "error", err)
			if onFail != nil {
				return onFail(c, err)
			}
			return err
		}

		if err := sessions.Login(c, user); err != nil {
			logger.Error("failed to bind session", "strategy", strategy.Name(), "error", err)
			if onFail != nil {
				return onFail(c, err)
			}
			return err
		}

		logger.Info("authentication succeeded", "strategy", strategy.Name(), "user_id", user.ID.String())
		return c.Next()
	}
}
