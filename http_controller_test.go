package auth_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-boilerplate"
	"github.com/goliatone/go-auth-boilerplate/repository"
)

var jane = map[string]string{
	"email":    "jane@example.com",
	"password": "correct horse battery staple",
	"name":     "Jane Doe",
}

func TestRegister(t *testing.T) {
	app := newTestApp(t, newTestDB(t))

	res := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	assert.True(t, res.env.Success)
	assert.NotEmpty(t, res.cookie, "registration logs the user in")

	user := dataUser(t, res.env)
	assert.NotEmpty(t, user["id"])
	assert.Equal(t, "jane@example.com", user["email"])
	assert.Equal(t, "Jane Doe", user["name"])
	assert.NotContains(t, res.raw, "password")

	who := doJSON(t, app, http.MethodGet, "/whoami", res.cookie, nil)
	assert.Equal(t, user["id"], who.raw)
}

func TestRegisterRejections(t *testing.T) {
	app := newTestApp(t, newTestDB(t))

	res := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusCreated, res.status, res.raw)

	t.Run("duplicate email", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
		require.Equal(t, http.StatusConflict, res.status, res.raw)
		assert.False(t, res.env.Success)
		assert.Equal(t, "Email already in use.", res.env.Error.Message)
		assert.Equal(t, auth.TextCodeEmailInUse, res.env.Error.Code)
		assert.Empty(t, res.cookie)
	})

	t.Run("duplicate email with padding", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]string{
			"email": "  jane@example.com ", "password": "another-password",
		})
		assert.Equal(t, http.StatusConflict, res.status, res.raw)
	})

	t.Run("missing password", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]string{"email": "x@example.com"})
		require.Equal(t, http.StatusBadRequest, res.status, res.raw)
		assert.Equal(t, auth.TextCodeValidation, res.env.Error.Code)
	})

	t.Run("missing email", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]string{"password": "secret"})
		assert.Equal(t, http.StatusBadRequest, res.status, res.raw)
	})
}

func TestLogin(t *testing.T) {
	app := newTestApp(t, newTestDB(t))

	reg := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusCreated, reg.status, reg.raw)
	userID := dataUser(t, reg.env)["id"]

	t.Run("wrong password", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
			"email": jane["email"], "password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, res.status, res.raw)
		assert.Equal(t, "Incorrect email or password.", res.env.Error.Message)
		assert.Empty(t, res.cookie)
	})

	t.Run("unknown email looks the same", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "ghost@example.com", "password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, res.status, res.raw)
		assert.Equal(t, "Incorrect email or password.", res.env.Error.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": jane["email"]})
		assert.Equal(t, http.StatusBadRequest, res.status, res.raw)
	})

	t.Run("success", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
			"email": jane["email"], "password": jane["password"],
		})
		require.Equal(t, http.StatusOK, res.status, res.raw)
		require.NotEmpty(t, res.cookie)

		user := dataUser(t, res.env)
		assert.Equal(t, userID, user["id"])
		assert.NotContains(t, res.raw, "password_hash")

		me := doJSON(t, app, http.MethodGet, "/auth/me", res.cookie, nil)
		require.Equal(t, http.StatusOK, me.status, me.raw)
		assert.Equal(t, userID, dataUser(t, me.env)["id"])
	})
}

func TestLoginRotatesSession(t *testing.T) {
	app := newTestApp(t, newTestDB(t))

	reg := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusCreated, reg.status, reg.raw)

	login := doJSON(t, app, http.MethodPost, "/auth/login", reg.cookie, map[string]string{
		"email": jane["email"], "password": jane["password"],
	})
	require.Equal(t, http.StatusOK, login.status, login.raw)
	require.NotEmpty(t, login.cookie)
	assert.NotEqual(t, reg.cookie, login.cookie)

	old := doJSON(t, app, http.MethodGet, "/whoami", reg.cookie, nil)
	assert.Equal(t, "anonymous", old.raw)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t, newTestDB(t))

	reg := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusCreated, reg.status, reg.raw)

	out := doJSON(t, app, http.MethodPost, "/auth/logout", reg.cookie, nil)
	require.Equal(t, http.StatusOK, out.status, out.raw)
	assert.Equal(t, "Logged out.", out.env.Data.(map[string]any)["message"])

	me := doJSON(t, app, http.MethodGet, "/auth/me", reg.cookie, nil)
	assert.Equal(t, http.StatusUnauthorized, me.status)

	t.Run("anonymous logout succeeds", func(t *testing.T) {
		res := doJSON(t, app, http.MethodPost, "/auth/logout", "", nil)
		assert.Equal(t, http.StatusOK, res.status, res.raw)
	})
}

// deleteFailingStorage keeps sessions in the database and refuses to remove
// them once failDelete is set
type deleteFailingStorage struct {
	*repository.SessionStorage
	failDelete atomic.Bool
}

func (s *deleteFailingStorage) Delete(key string) error {
	if s.failDelete.Load() {
		return errors.New("storage unavailable")
	}
	return s.SessionStorage.Delete(key)
}

func TestLogoutStorageFailure(t *testing.T) {
	db := newTestDB(t)
	storage := &deleteFailingStorage{SessionStorage: repository.NewSessionStorage(db)}
	app := newTestAppWith(t, auth.NewRepositoryManager(db), storage)

	reg := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusCreated, reg.status, reg.raw)

	storage.failDelete.Store(true)

	res := doJSON(t, app, http.MethodPost, "/auth/logout", reg.cookie, nil)
	require.Equal(t, http.StatusInternalServerError, res.status, res.raw)
	assert.False(t, res.env.Success)
	assert.Equal(t, "Logout failed.", res.env.Error.Message)
	assert.Equal(t, auth.TextCodeLogoutFailed, res.env.Error.Code)
	assert.NotContains(t, res.raw, "storage unavailable")

	me := doJSON(t, app, http.MethodGet, "/auth/me", reg.cookie, nil)
	assert.Equal(t, http.StatusOK, me.status, "the session survives a failed logout")
}

func TestMeRequiresSession(t *testing.T) {
	app := newTestApp(t, newTestDB(t))

	res := doJSON(t, app, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, auth.TextCodeUnauthorized, res.env.Error.Code)

	res = doJSON(t, app, http.MethodGet, "/auth/me", "forged-session-id", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestSessionForDeletedUserIsAnonymous(t *testing.T) {
	db := newTestDB(t)
	app := newTestApp(t, db)

	reg := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusCreated, reg.status, reg.raw)

	_, err := db.NewDelete().
		Model((*auth.User)(nil)).
		Where("email = ?", jane["email"]).
		Exec(context.Background())
	require.NoError(t, err)

	who := doJSON(t, app, http.MethodGet, "/whoami", reg.cookie, nil)
	require.Equal(t, http.StatusOK, who.status)
	assert.Equal(t, "anonymous", who.raw)

	me := doJSON(t, app, http.MethodGet, "/auth/me", reg.cookie, nil)
	assert.Equal(t, http.StatusUnauthorized, me.status)
}
