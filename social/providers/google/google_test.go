package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goliatone/go-auth-boilerplate/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/auth/google/callback",
	})

	authURL := provider.AuthCodeURL("state-token", social.WithPKCE("challenge", "S256"))

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/auth/google/callback", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "profile email", query.Get("scope"))
	assert.Equal(t, "challenge", query.Get("code_challenge"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
}

func TestProviderAuthCodeURLWithoutPKCE(t *testing.T) {
	provider := New(Config{ClientID: "client-id"})

	parsed, err := url.Parse(provider.AuthCodeURL("s", social.WithScopes("email")))
	require.NoError(t, err)

	assert.Empty(t, parsed.Query().Get("code_challenge"))
	assert.Equal(t, "email", parsed.Query().Get("scope"))
}

func TestProviderExchangeAndUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)

			assert.Equal(t, "authorization_code", values.Get("grant_type"))
			assert.Equal(t, "client-id", values.Get("client_id"))
			assert.Equal(t, "client-secret", values.Get("client_secret"))
			assert.Equal(t, "auth-code", values.Get("code"))
			assert.Equal(t, "verifier", values.Get("code_verifier"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "token",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"scope":        "email profile",
			})
		case "/userinfo":
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sub":            "g-123",
				"email":          "user@example.com",
				"email_verified": true,
				"name":           "User Example",
				"given_name":     "User",
				"family_name":    "Example",
				"picture":        "https://example.com/avatar.png",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/auth/google/callback",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/userinfo",
	})

	token, err := provider.Exchange(context.Background(), "auth-code", social.WithCodeVerifier("verifier"))
	require.NoError(t, err)
	assert.Equal(t, "token", token.AccessToken)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	profile, err := provider.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "g-123", profile.ProviderUserID)
	assert.Equal(t, "google", profile.Provider)
	assert.Equal(t, "user@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "User Example", profile.DisplayName())
}

func TestProviderErrorsNormalized(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		status int
		body   string
		code   string
	}{
		{
			name:   "oauth error on exchange",
			op:     opExchange,
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant","error_description":"Bad Request"}`,
			code:   "invalid_grant",
		},
		{
			name:   "api error on userinfo",
			op:     opUserInfo,
			status: http.StatusUnauthorized,
			body:   `{"error":{"code":401,"message":"Invalid Credentials","status":"UNAUTHENTICATED"}}`,
			code:   "UNAUTHENTICATED",
		},
		{
			name:   "plain text error",
			op:     opUserInfo,
			status: http.StatusBadGateway,
			body:   "upstream unavailable",
			code:   "",
		},
		{
			name:   "token response without access token",
			op:     opExchange,
			status: http.StatusOK,
			body:   `{"token_type":"Bearer"}`,
			code:   "missing_access_token",
		},
		{
			name:   "userinfo without subject",
			op:     opUserInfo,
			status: http.StatusOK,
			body:   `{"email":"user@example.com"}`,
			code:   "missing_subject",
		},
		{
			name:   "malformed json",
			op:     opExchange,
			status: http.StatusOK,
			body:   `{"access_token":`,
			code:   "invalid_response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := New(Config{TokenURL: server.URL, UserInfoURL: server.URL})

			var err error
			if tt.op == opExchange {
				_, err = provider.Exchange(context.Background(), "code")
			} else {
				_, err = provider.UserInfo(context.Background(), &social.Token{AccessToken: "t"})
			}
			require.Error(t, err)

			var perr *social.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, ProviderName, perr.Provider)
			assert.Equal(t, tt.op, perr.Operation)
			assert.Equal(t, tt.status, perr.Status)
			assert.Equal(t, tt.code, perr.Code)
		})
	}
}

func TestProviderTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := New(Config{TokenURL: addr}).Exchange(context.Background(), "code")

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "transport", perr.Code)
	assert.Error(t, perr.Unwrap())
}

func TestProviderUserInfoRequiresToken(t *testing.T) {
	_, err := New(Config{}).UserInfo(context.Background(), nil)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "missing_access_token", perr.Code)
}
