package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-boilerplate"
	"github.com/goliatone/go-auth-boilerplate/middleware/response"
	"github.com/goliatone/go-auth-boilerplate/persistence"
)

const testCookie = "session_id"

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared"
	db, dialect, err := persistence.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, persistence.Migrate(context.Background(), db, dialect, nil))
	return db
}

// newTestApp mounts the auth routes the same way the server does, with
// sessions kept in memory.
func newTestApp(t *testing.T, db *bun.DB) *fiber.App {
	t.Helper()
	return newTestAppWith(t, auth.NewRepositoryManager(db), nil)
}

// newTestAppWith lets a test swap the repositories or the session storage.
// A nil storage keeps sessions in memory.
func newTestAppWith(t *testing.T, repo auth.RepositoryManager, storage fiber.Storage) *fiber.App {
	t.Helper()

	sessions := auth.NewSessionManager(repo.Users(), auth.SessionConfig{
		CookieName: testCookie,
		Storage:    storage,
	}).WithLogger(nopLogger{})

	app := fiber.New(fiber.Config{
		ErrorHandler: response.ErrorHandler(response.Config{
			Production: true,
			UserID:     auth.UserIDOrAnonymous,
		}),
	})
	app.Use(auth.SessionIdentity(sessions, nopLogger{}))

	auth.RegisterAuthRoutes(app.Group("/auth"),
		auth.WithControllerLogger(nopLogger{}),
		auth.WithRegistrar(auth.NewRegisterUserHandler(repo).WithLogger(nopLogger{})),
		auth.WithCredentialVerifier(auth.NewUserProvider(repo.Users()).WithLogger(nopLogger{})),
		auth.WithSessions(sessions),
	)

	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(auth.UserIDOrAnonymous(c))
	})

	return app
}

type result struct {
	status int
	cookie string
	env    response.Envelope
	raw    string
}

func doJSON(t *testing.T, app *fiber.App, method, path, cookie string, body any) result {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := result{status: resp.StatusCode, raw: string(raw)}
	for _, c := range resp.Cookies() {
		if c.Name == testCookie && c.Value != "" {
			out.cookie = c.Value
		}
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.env))
	}

	return out
}

func dataUser(t *testing.T, env response.Envelope) map[string]any {
	t.Helper()

	data, ok := env.Data.(map[string]any)
	require.True(t, ok, "expected data object, got %#v", env.Data)
	user, ok := data["user"].(map[string]any)
	require.True(t, ok, "expected data.user, got %#v", data)
	return user
}
