package social

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-auth-boilerplate"
	goerrors "github.com/goliatone/go-errors"
)

// Session keys holding the handshake between redirect and callback.
const (
	sessionKeyNonce    = "oauth_nonce"
	sessionKeyVerifier = "oauth_verifier"
)

// HandshakeStore keeps handshake values in the visitor session.
// *auth.SessionManager satisfies it.
type HandshakeStore interface {
	Put(c *fiber.Ctx, values map[string]string) error
	Pop(c *fiber.Ctx, keys ...string) (map[string]string, error)
}

// HTTPController handles social auth HTTP routes.
type HTTPController struct {
	authenticator *SocialAuthenticator
	sessions      auth.SessionBinder
	handshakes    HandshakeStore
	logger        auth.Logger
	config        HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// SuccessRedirect is where the browser lands after login, default "/"
	SuccessRedirect string

	// FailureRedirect is where the browser lands after a failed login,
	// default "/login"
	FailureRedirect string

	// FailureReason appends an error query parameter to FailureRedirect
	FailureReason bool

	Logger auth.Logger
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(authenticator *SocialAuthenticator, sessions auth.SessionBinder, handshakes HandshakeStore, cfg HTTPConfig) *HTTPController {
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/"
	}
	if cfg.FailureRedirect == "" {
		cfg.FailureRedirect = "/login"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	return &HTTPController{
		authenticator: authenticator,
		sessions:      sessions,
		handshakes:    handshakes,
		logger:        logger,
		config:        cfg,
	}
}

// RegisterRoutes mounts GET /<provider> and GET /<provider>/callback for
// every configured provider.
func (c *HTTPController) RegisterRoutes(router fiber.Router) {
	for _, name := range c.authenticator.Providers() {
		router.Get("/"+name, c.BeginAuth(name)).
			Name("auth." + name)

		router.Get(
			"/"+name+"/callback",
			auth.Authenticate(c.CallbackStrategy(name), c.sessions, c.failure, c.logger),
			c.success,
		).Name("auth." + name + ".callback")
	}
}

// BeginAuth redirects the browser to the provider consent screen.
func (c *HTTPController) BeginAuth(provider string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		redirect, err := c.authenticator.BeginAuth(ctx.UserContext(), provider)
		if err != nil {
			return err
		}

		values := map[string]string{sessionKeyNonce: redirect.Nonce}
		if redirect.CodeVerifier != "" {
			values[sessionKeyVerifier] = redirect.CodeVerifier
		}

		if err := c.handshakes.Put(ctx, values); err != nil {
			return err
		}

		return ctx.Redirect(redirect.URL, fiber.StatusFound)
	}
}

// CallbackStrategy verifies a provider callback request.
func (c *HTTPController) CallbackStrategy(provider string) auth.Strategy {
	return &CallbackStrategy{
		provider:      provider,
		authenticator: c.authenticator,
		handshakes:    c.handshakes,
	}
}

func (c *HTTPController) success(ctx *fiber.Ctx) error {
	return ctx.Redirect(c.config.SuccessRedirect, fiber.StatusFound)
}

func (c *HTTPController) failure(ctx *fiber.Ctx, err error) error {
	target := c.config.FailureRedirect
	if c.config.FailureReason {
		target = appendQueryParam(target, "error", failureReason(err))
	}
	return ctx.Redirect(target, fiber.StatusFound)
}

// CallbackStrategy is the auth.Strategy for a provider callback.
type CallbackStrategy struct {
	provider      string
	authenticator *SocialAuthenticator
	handshakes    HandshakeStore
}

var _ auth.Strategy = (*CallbackStrategy)(nil)

func (s *CallbackStrategy) Name() string { return s.provider }

// Verify consumes the handshake from the session, it can not be replayed.
func (s *CallbackStrategy) Verify(ctx *fiber.Ctx) (*auth.User, error) {
	hs, err := s.handshakes.Pop(ctx, sessionKeyNonce, sessionKeyVerifier)
	if err != nil {
		return nil, err
	}

	if errCode := ctx.Query("error"); errCode != "" {
		return nil, ErrAccessDenied.Clone().WithMetadata(map[string]any{
			"provider":          s.provider,
			"error":             errCode,
			"error_description": ctx.Query("error_description"),
		})
	}

	result, err := s.authenticator.CompleteAuth(
		ctx.UserContext(),
		s.provider,
		ctx.Query("code"),
		ctx.Query("state"),
		Handshake{
			Nonce:        hs[sessionKeyNonce],
			CodeVerifier: hs[sessionKeyVerifier],
		},
	)
	if err != nil {
		return nil, err
	}

	return result.User, nil
}

func failureReason(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		return strings.ToLower(richErr.TextCode)
	}
	return "auth_failed"
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
