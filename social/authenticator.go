package social

import (
	"context"
	"crypto/subtle"
	"sort"
	"time"

	auth "github.com/goliatone/go-auth-boilerplate"
	goerrors "github.com/goliatone/go-errors"
)

// SocialAuthenticator orchestrates social login flows.
type SocialAuthenticator struct {
	providers    map[string]SocialProvider
	stateManager StateManager
	resolver     UserResolver
	logger       auth.Logger
	config       SocialAuthConfig
}

// SocialAuthConfig configures the social authenticator.
type SocialAuthConfig struct {
	StateSecret []byte
	StateTTL    time.Duration
	// DisablePKCE skips the code challenge for providers that reject it.
	DisablePKCE map[string]bool
}

// SocialAuthOption configures the social authenticator.
type SocialAuthOption func(*SocialAuthenticator)

// NewSocialAuthenticator creates a new social authenticator.
func NewSocialAuthenticator(resolver UserResolver, config SocialAuthConfig, opts ...SocialAuthOption) *SocialAuthenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	sa := &SocialAuthenticator{
		providers: make(map[string]SocialProvider),
		resolver:  resolver,
		logger:    auth.DefaultLogger(),
		config:    cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	if sa.stateManager == nil {
		sa.stateManager = NewJWTStateManager(cfg.StateSecret, cfg.StateTTL)
	}

	return sa
}

// WithProvider registers a social provider.
func WithProvider(provider SocialProvider) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		if provider == nil {
			return
		}
		sa.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		sa.stateManager = sm
	}
}

// WithAuthLogger sets the logger.
func WithAuthLogger(logger auth.Logger) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		if logger != nil {
			sa.logger = logger
		}
	}
}

// AuthRedirect contains the authorization URL and the handshake values the
// caller must keep server side until the callback.
type AuthRedirect struct {
	URL          string
	State        string
	Provider     string
	Nonce        string
	CodeVerifier string
}

// Handshake is the server side half of an authorization request.
type Handshake struct {
	Nonce        string
	CodeVerifier string
}

// AuthResult contains the result of a successful authentication.
type AuthResult struct {
	User      *auth.User
	IsNewUser bool
	Provider  string
	Profile   *SocialProfile
}

// HasProvider reports whether name is configured.
func (sa *SocialAuthenticator) HasProvider(name string) bool {
	_, ok := sa.providers[name]
	return ok
}

// Providers returns the configured provider names, sorted.
func (sa *SocialAuthenticator) Providers() []string {
	names := make([]string, 0, len(sa.providers))
	for name := range sa.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BeginAuth starts the OAuth flow for a provider.
func (sa *SocialAuthenticator) BeginAuth(ctx context.Context, providerName string) (*AuthRedirect, error) {
	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, providerNotFound(providerName)
	}

	state := &OAuthState{
		Nonce:    generateNonce(),
		Provider: providerName,
	}

	stateToken, err := sa.stateManager.Encode(state)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode oauth state").
			WithCode(goerrors.CodeInternal)
	}

	redirect := &AuthRedirect{
		State:    stateToken,
		Provider: providerName,
		Nonce:    state.Nonce,
	}

	var opts []AuthCodeOption
	if !sa.config.DisablePKCE[providerName] {
		verifier, err := generateCodeVerifier()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate code verifier").
				WithCode(goerrors.CodeInternal)
		}
		redirect.CodeVerifier = verifier
		opts = append(opts, WithPKCE(computeCodeChallenge(verifier), "S256"))
	}

	redirect.URL = provider.AuthCodeURL(stateToken, opts...)

	return redirect, nil
}

// CompleteAuth finishes the OAuth flow after callback. The state must be
// valid, unexpired, issued for providerName and carry the handshake nonce.
func (sa *SocialAuthenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken string, hs Handshake) (*AuthResult, error) {
	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, providerNotFound(providerName)
	}

	if code == "" {
		return nil, ErrInvalidState
	}

	state, err := sa.stateManager.Decode(stateToken)
	if err != nil {
		return nil, err
	}

	if state.Provider != providerName {
		return nil, ErrInvalidState.Clone().WithMetadata(map[string]any{"reason": "provider mismatch"})
	}

	if hs.Nonce == "" || subtle.ConstantTimeCompare([]byte(hs.Nonce), []byte(state.Nonce)) != 1 {
		return nil, ErrInvalidState.Clone().WithMetadata(map[string]any{"reason": "nonce mismatch"})
	}

	var exchangeOpts []ExchangeOption
	if hs.CodeVerifier != "" {
		exchangeOpts = append(exchangeOpts, WithCodeVerifier(hs.CodeVerifier))
	}

	token, err := provider.Exchange(ctx, code, exchangeOpts...)
	if err != nil {
		return nil, providerFailure(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, providerFailure(ErrUserInfoFailed, providerName, "user_info", err)
	}
	if profile.Provider == "" {
		profile.Provider = providerName
	}

	result, err := sa.resolver.ResolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	if result == nil || result.User == nil {
		return nil, auth.ErrIdentityNotFound
	}

	sa.logger.Info("social login",
		"provider", providerName,
		"user_id", result.User.ID.String(),
		"is_new_user", result.IsNewUser,
	)

	return &AuthResult{
		User:      result.User,
		IsNewUser: result.IsNewUser,
		Provider:  providerName,
		Profile:   profile,
	}, nil
}

func providerNotFound(name string) error {
	return ErrProviderNotFound.Clone().WithMetadata(map[string]any{"provider": name})
}
