package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// LocalUserStore is the store the credential verifier reads from
type LocalUserStore interface {
	GetLocalByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider verifies local credentials
type UserProvider struct {
	store  LocalUserStore
	hasher PasswordAuthenticator
	logger Logger
}

var _ CredentialVerifier = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store LocalUserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		hasher: BcryptHasher{},
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

func (u *UserProvider) WithPasswordAuthenticator(h PasswordAuthenticator) *UserProvider {
	if h != nil {
		u.hasher = h
	}
	return u
}

// VerifyCredentials finds the local user for email and compares the
// password. Unknown emails, accounts without a password and wrong
// passwords all return ErrInvalidCredentials.
func (u *UserProvider) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.GetLocalByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			u.logger.Debug("login rejected", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if !user.HasPassword() {
		u.logger.Debug("login rejected", "reason", "no local password", "user_id", user.ID.String())
		return nil, ErrInvalidCredentials
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err == ErrMismatchedHashAndPassword {
			u.logger.Debug("login rejected", "reason", "password mismatch", "user_id", user.ID.String())
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
	}

	return user, nil
}
