package social

import (
	"context"
	"strings"

	auth "github.com/goliatone/go-auth-boilerplate"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// UserResolver maps a provider profile to a local user.
type UserResolver interface {
	ResolveUser(ctx context.Context, profile *SocialProfile) (*LinkingResult, error)
}

// LinkingResult contains the resolved user.
type LinkingResult struct {
	User      *auth.User
	IsNewUser bool
}

// Linker finds or creates users strictly by provider id. A profile that
// shares an email with an existing user still produces its own user.
type Linker struct {
	repo   auth.RepositoryManager
	logger auth.Logger
}

// NewLinker creates a new Linker.
func NewLinker(repo auth.RepositoryManager) *Linker {
	return &Linker{repo: repo, logger: auth.DefaultLogger()}
}

// WithLogger sets the logger.
func (l *Linker) WithLogger(logger auth.Logger) *Linker {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// ResolveUser implements UserResolver.
func (l *Linker) ResolveUser(ctx context.Context, profile *SocialProfile) (*LinkingResult, error) {
	if profile == nil {
		return nil, ErrUserInfoFailed
	}
	if strings.TrimSpace(profile.ProviderUserID) == "" {
		return nil, ErrProfileIncomplete
	}

	record := &auth.User{
		Email:         strings.TrimSpace(profile.Email),
		Name:          profile.DisplayName(),
		EmailVerified: true,
	}
	if !record.SetProviderID(profile.Provider, profile.ProviderUserID) {
		return nil, ErrProviderNotFound
	}

	users := l.repo.Users()

	existing, err := users.GetByProviderID(ctx, profile.Provider, profile.ProviderUserID)
	if err == nil && existing != nil {
		return &LinkingResult{User: existing}, nil
	}
	if err != nil && !auth.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find linked user").
			WithCode(goerrors.CodeInternal)
	}

	var created *auth.User
	err = l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := users.GetByProviderIDTx(ctx, tx, profile.Provider, profile.ProviderUserID)
		if err == nil {
			existing = found
			return nil
		}
		if !auth.IsNotFound(err) {
			return err
		}

		created, err = users.CreateTx(ctx, tx, record)
		return err
	})

	switch {
	case err == nil && existing != nil:
		return &LinkingResult{User: existing}, nil
	case err == nil:
		l.logger.Info("created user from provider profile", "provider", profile.Provider, "user_id", created.ID.String())
		return &LinkingResult{User: created, IsNewUser: true}, nil
	case auth.IsUniqueViolation(err):
		// lost a race with a concurrent callback for the same account
		return l.reload(ctx, profile)
	}

	return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user from provider profile").
		WithCode(goerrors.CodeInternal)
}

func (l *Linker) reload(ctx context.Context, profile *SocialProfile) (*LinkingResult, error) {
	user, err := l.repo.Users().GetByProviderID(ctx, profile.Provider, profile.ProviderUserID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload linked user").
			WithCode(goerrors.CodeInternal)
	}
	return &LinkingResult{User: user}, nil
}
