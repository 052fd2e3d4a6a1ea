package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RegisterUserMessage is the payload for a local registration
type RegisterUserMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the required fields
func (e RegisterUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required),
		validation.Field(&e.Password, validation.Required),
	)
	if err != nil {
		return NewValidationError("Email and password are required.", validationFields(err))
	}
	return nil
}

// RegisterUserHandler creates local accounts
type RegisterUserHandler struct {
	repo    RepositoryManager
	hasher  PasswordAuthenticator
	timeout time.Duration
	logger  Logger
}

var _ Registrar = (*RegisterUserHandler)(nil)

// NewRegisterUserHandler returns a handler bound to the repositories
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:    repo,
		hasher:  BcryptHasher{},
		timeout: 10 * time.Second,
		logger:  defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

// Execute validates the message, checks the email is free, hashes the
// password and stores the user.
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	event.Email = strings.TrimSpace(event.Email)
	event.Name = strings.TrimSpace(event.Name)

	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var user *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email)
		if err == nil && existing != nil {
			return ErrEmailInUse
		}
		if err != nil && !IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up email")
		}

		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		record := &User{
			Email:        event.Email,
			PasswordHash: hash,
			Name:         event.Name,
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, record); err != nil {
			if IsUniqueViolation(err) {
				return ErrEmailInUse
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrEmailInUse
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			if richErr.TextCode == TextCodeEmailInUse {
				h.logger.Warn("registration rejected, email already in use", "email", event.Email)
			}
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.logger.Info("user registered", "user_id", user.ID.String())
	return user, nil
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	if errs, ok := err.(validation.Errors); ok {
		for field, ferr := range errs {
			fields[field] = ferr.Error()
		}
		return fields
	}
	fields["_"] = err.Error()
	return fields
}
