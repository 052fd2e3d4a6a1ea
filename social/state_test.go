package social

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-auth-boilerplate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTStateManager_EncodeDecode(t *testing.T) {
	sm := NewJWTStateManager([]byte("state-secret"), 10*time.Minute)

	state := &OAuthState{Provider: "google"}

	encoded, err := sm.Encode(state)
	require.NoError(t, err)
	assert.NotEmpty(t, state.Nonce)

	decoded, err := sm.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, "google", decoded.Provider)
	assert.Equal(t, state.Nonce, decoded.Nonce)
	assert.WithinDuration(t, state.ExpiresAt, decoded.ExpiresAt, time.Second)
}

func TestJWTStateManager_ExpiredState(t *testing.T) {
	sm := NewJWTStateManager([]byte("state-secret"), time.Minute)
	sm.now = func() time.Time { return time.Now().Add(-time.Hour) }

	encoded, err := sm.Encode(&OAuthState{Provider: "google"})
	require.NoError(t, err)

	sm.now = time.Now
	_, err = sm.Decode(encoded)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestJWTStateManager_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTStateManager([]byte("one-secret"), time.Minute)
	verifier := NewJWTStateManager([]byte("another-secret"), time.Minute)

	encoded, err := issuer.Encode(&OAuthState{Provider: "facebook"})
	require.NoError(t, err)

	_, err = verifier.Decode(encoded)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, TextCodeInvalidState))
}

func TestJWTStateManager_RejectsGarbage(t *testing.T) {
	sm := NewJWTStateManager([]byte("state-secret"), time.Minute)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := sm.Decode(raw)
		require.Error(t, err, raw)
		assert.True(t, auth.HasTextCode(err, TextCodeInvalidState), raw)
	}
}

func TestCodeChallenge(t *testing.T) {
	verifier, err := generateCodeVerifier()
	require.NoError(t, err)
	assert.Len(t, verifier, 43)

	// RFC 7636 appendix B
	assert.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		computeCodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"),
	)
}
