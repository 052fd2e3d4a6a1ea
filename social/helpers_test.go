package social

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-boilerplate"
	"github.com/goliatone/go-auth-boilerplate/persistence"
)

func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared"
	db, dialect, err := persistence.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, persistence.Migrate(context.Background(), db, dialect, nil))

	return auth.NewRepositoryManager(db)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// stubProvider answers every code in profiles with the mapped profile.
type stubProvider struct {
	name        string
	profiles    map[string]*SocialProfile
	lastOptions ExchangeConfig
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	cfg := ApplyAuthCodeOptions(nil, opts...)
	return "https://provider.test/authorize?state=" + state + "&code_challenge=" + cfg.CodeChallenge
}

func (s *stubProvider) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	s.lastOptions = ApplyExchangeOptions(opts...)
	if _, ok := s.profiles[code]; !ok {
		return nil, &ProviderError{Provider: s.name, Operation: "exchange", Status: 400, Code: "invalid_grant"}
	}
	return &Token{AccessToken: code}, nil
}

func (s *stubProvider) UserInfo(ctx context.Context, token *Token) (*SocialProfile, error) {
	profile := *s.profiles[token.AccessToken]
	return &profile, nil
}
