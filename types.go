package auth

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-repository-bun"
)

// Logger is the structured logger used across the package, args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UserFinder retrieves users for session resolution
type UserFinder interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error)
}

// CredentialVerifier validates local credentials
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*User, error)
}

// Registrar creates local accounts
type Registrar interface {
	Execute(ctx context.Context, msg RegisterUserMessage) (*User, error)
}

// SessionBinder binds an authenticated user to the request session
type SessionBinder interface {
	Login(c *fiber.Ctx, user *User) error
	Logout(c *fiber.Ctx) error
	Resolve(c *fiber.Ctx) (*User, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] AUTH %s %v\n", msg, args)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] AUTH %s %v\n", msg, args)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] AUTH %s %v\n", msg, args)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] AUTH %s %v\n", msg, args)
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}
