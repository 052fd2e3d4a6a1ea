package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
)

// SessionModel is the Bun model for server side sessions.
type SessionModel struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`

	ID        string     `bun:"sid,pk"`
	Data      []byte     `bun:"data,notnull"`
	ExpiresAt *time.Time `bun:"expires_at,nullzero"`
}

// SessionStorage implements fiber.Storage on top of the sessions table.
type SessionStorage struct {
	db      *bun.DB
	timeout time.Duration
	now     func() time.Time
}

var _ fiber.Storage = (*SessionStorage)(nil)

// NewSessionStorage creates a new storage.
func NewSessionStorage(db *bun.DB) *SessionStorage {
	return &SessionStorage{
		db:      db,
		timeout: 5 * time.Second,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get implements fiber.Storage, missing or expired keys return nil.
func (r *SessionStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	ctx, cancel := r.context()
	defer cancel()

	var model SessionModel
	err := r.db.NewSelect().
		Model(&model).
		Where("sid = ?", key).
		Where("(expires_at IS NULL OR expires_at > ?)", r.now()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return model.Data, nil
}

// Set implements fiber.Storage.
func (r *SessionStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	ctx, cancel := r.context()
	defer cancel()

	model := &SessionModel{
		ID:   key,
		Data: val,
	}
	if exp > 0 {
		expiresAt := r.now().Add(exp)
		model.ExpiresAt = &expiresAt
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (sid) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)

	return err
}

// Delete implements fiber.Storage.
func (r *SessionStorage) Delete(key string) error {
	if key == "" {
		return nil
	}

	ctx, cancel := r.context()
	defer cancel()

	_, err := r.db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("sid = ?", key).
		Exec(ctx)
	return err
}

// Reset implements fiber.Storage.
func (r *SessionStorage) Reset() error {
	ctx, cancel := r.context()
	defer cancel()

	_, err := r.db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}

// Close implements fiber.Storage. The database is owned by the caller.
func (r *SessionStorage) Close() error {
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many
// rows were removed.
func (r *SessionStorage) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", r.now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RunGC sweeps expired sessions every interval until ctx is done.
func (r *SessionStorage) RunGC(ctx context.Context, interval time.Duration, onError func(error)) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.DeleteExpired(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

func (r *SessionStorage) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}
