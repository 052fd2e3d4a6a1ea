package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	goerrors "github.com/goliatone/go-errors"
)

const sessionUserKey = "uid"

// SessionConfig configures the server side session
type SessionConfig struct {
	// Storage persists session data, nil keeps sessions in memory
	Storage        fiber.Storage
	Expiration     time.Duration
	CookieName     string
	CookieSecure   bool
	CookieSameSite string
}

// SessionManager binds users to server side sessions. Only the user id
// is stored, the user is read back from the store on every request.
type SessionManager struct {
	store  *session.Store
	users  UserFinder
	logger Logger
}

var _ SessionBinder = (*SessionManager)(nil)

// NewSessionManager creates a session manager
func NewSessionManager(users UserFinder, cfg SessionConfig) *SessionManager {
	if cfg.CookieName == "" {
		cfg.CookieName = "session_id"
	}
	if cfg.CookieSameSite == "" {
		cfg.CookieSameSite = fiber.CookieSameSiteLaxMode
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = 24 * time.Hour
	}

	store := session.New(session.Config{
		Storage:        cfg.Storage,
		Expiration:     cfg.Expiration,
		KeyLookup:      "cookie:" + cfg.CookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: cfg.CookieSameSite,
	})

	return &SessionManager{
		store:  store,
		users:  users,
		logger: defLogger{},
	}
}

func (m *SessionManager) WithLogger(l Logger) *SessionManager {
	if l != nil {
		m.logger = l
	}
	return m
}

// Login stores the user id in a freshly regenerated session
func (m *SessionManager) Login(c *fiber.Ctx, user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	sess, err := m.store.Get(c)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	if err := sess.Regenerate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to regenerate session")
	}

	sess.Set(sessionUserKey, user.ID.String())

	if err := sess.Save(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session")
	}

	setCurrentUser(c, user)
	m.logger.Debug("session established", "user_id", user.ID.String())

	return nil
}

// Resolve returns the user bound to the request session. Anonymous
// requests return a nil user and no error. A session whose user no
// longer exists is destroyed and ErrSessionInvalid is returned.
func (m *SessionManager) Resolve(c *fiber.Ctx) (*User, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	id, _ := sess.Get(sessionUserKey).(string)
	if id == "" {
		return nil, nil
	}

	user, err := m.users.GetByID(c.UserContext(), id)
	if err != nil {
		if !IsNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve session user")
		}

		if derr := sess.Destroy(); derr != nil {
			m.logger.Error("failed to destroy invalid session", "error", derr)
		}

		return nil, ErrSessionInvalid
	}

	return user, nil
}

// Logout destroys the session
func (m *SessionManager) Logout(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return logoutFailed(err)
	}

	if err := sess.Destroy(); err != nil {
		return logoutFailed(err)
	}

	return nil
}

// Put stores transient values in the request session. All values are
// written in one save so a visitor without a session cookie gets one session.
func (m *SessionManager) Put(c *fiber.Ctx, values map[string]string) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	for k, v := range values {
		sess.Set(k, v)
	}

	if err := sess.Save(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session")
	}

	return nil
}

// Pop reads and removes transient values from the request session, missing
// keys map to "".
func (m *SessionManager) Pop(c *fiber.Ctx, keys ...string) (map[string]string, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	out := make(map[string]string, len(keys))
	dirty := false
	for _, key := range keys {
		value, _ := sess.Get(key).(string)
		out[key] = value
		if value != "" {
			sess.Delete(key)
			dirty = true
		}
	}

	if !dirty {
		return out, nil
	}

	if err := sess.Save(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session")
	}

	return out, nil
}

func logoutFailed(err error) error {
	clone := ErrLogoutFailed.Clone()
	if clone == nil {
		return ErrLogoutFailed
	}
	clone.Source = err
	return clone
}
