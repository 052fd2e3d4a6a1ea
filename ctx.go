package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// CurrentUser returns the user resolved for the request, if any
func CurrentUser(c *fiber.Ctx) (*User, bool) {
	return FromContext(c.UserContext())
}

// UserIDOrAnonymous returns the id of the request user or "anonymous"
func UserIDOrAnonymous(c *fiber.Ctx) string {
	if user, ok := CurrentUser(c); ok {
		return user.ID.String()
	}
	return "anonymous"
}

func setCurrentUser(c *fiber.Ctx, user *User) {
	c.SetUserContext(WithContext(c.UserContext(), user))
}
