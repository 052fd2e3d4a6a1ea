package social

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateManager handles OAuth state encoding and verification.
type StateManager interface {
	Encode(state *OAuthState) (string, error)
	Decode(token string) (*OAuthState, error)
}

// OAuthState is carried in the OAuth state parameter. The code verifier
// never leaves the server, it is kept in the session next to the nonce.
type OAuthState struct {
	Nonce     string
	Provider  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type stateClaims struct {
	Provider string `json:"prv"`
	Nonce    string `json:"nce"`
	jwt.RegisteredClaims
}

const stateIssuer = "oauth-state"

// JWTStateManager signs the state as an HS256 token.
type JWTStateManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTStateManager creates a new state manager, ttl defaults to ten minutes.
func NewJWTStateManager(secret []byte, ttl time.Duration) *JWTStateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &JWTStateManager{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Encode signs the state, filling in nonce and timestamps when empty.
func (sm *JWTStateManager) Encode(state *OAuthState) (string, error) {
	if state == nil || state.Provider == "" {
		return "", ErrInvalidState
	}

	now := sm.now()
	if state.IssuedAt.IsZero() {
		state.IssuedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = state.IssuedAt.Add(sm.ttl)
	}
	if state.Nonce == "" {
		state.Nonce = generateNonce()
	}

	claims := stateClaims{
		Provider: state.Provider,
		Nonce:    state.Nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(state.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(state.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sm.secret)
}

// Decode verifies the signature and expiry of a state token.
func (sm *JWTStateManager) Decode(raw string) (*OAuthState, error) {
	if raw == "" {
		return nil, ErrInvalidState
	}

	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, wrapStateError(err)
	}
	if !token.Valid || claims.Provider == "" || claims.Nonce == "" {
		return nil, ErrInvalidState
	}

	state := &OAuthState{
		Nonce:    claims.Nonce,
		Provider: claims.Provider,
	}
	if claims.IssuedAt != nil {
		state.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		state.ExpiresAt = claims.ExpiresAt.Time
	}

	return state, nil
}

func wrapStateError(err error) error {
	clone := ErrInvalidState.Clone()
	clone.Source = err
	return clone
}

func generateNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func generateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func computeCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
