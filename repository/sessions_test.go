package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-auth-boilerplate/persistence"
)

func newTestStorage(t *testing.T) *SessionStorage {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared"
	db, dialect, err := persistence.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, persistence.Migrate(context.Background(), db, dialect, nil))
	return NewSessionStorage(db)
}

func TestSessionStorage(t *testing.T) {
	storage := newTestStorage(t)

	val, err := storage.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, storage.Set("s1", []byte("one"), time.Hour))
	val, err = storage.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), val)

	// upsert
	require.NoError(t, storage.Set("s1", []byte("uno"), time.Hour))
	val, err = storage.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), val)

	require.NoError(t, storage.Delete("s1"))
	val, err = storage.Get("s1")
	require.NoError(t, err)
	assert.Nil(t, val)

	assert.NoError(t, storage.Set("", []byte("x"), 0))
	assert.NoError(t, storage.Set("empty", nil, 0))
	assert.NoError(t, storage.Delete(""))
}

func TestSessionStorageExpiry(t *testing.T) {
	storage := newTestStorage(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return now }

	require.NoError(t, storage.Set("short", []byte("a"), time.Minute))
	require.NoError(t, storage.Set("long", []byte("b"), time.Hour))
	require.NoError(t, storage.Set("forever", []byte("c"), 0))

	now = now.Add(10 * time.Minute)

	val, err := storage.Get("short")
	require.NoError(t, err)
	assert.Nil(t, val, "expired sessions are not returned")

	removed, err := storage.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	for _, key := range []string{"long", "forever"} {
		val, err := storage.Get(key)
		require.NoError(t, err)
		assert.NotNil(t, val, key)
	}

	require.NoError(t, storage.Reset())
	val, err = storage.Get("forever")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestSessionStorageRunGC(t *testing.T) {
	storage := newTestStorage(t)
	now := time.Now().UTC()
	storage.now = func() time.Time { return now }

	require.NoError(t, storage.Set("old", []byte("a"), time.Millisecond))
	now = now.Add(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		storage.RunGC(ctx, 5*time.Millisecond, func(err error) { t.Errorf("gc: %v", err) })
		close(done)
	}()

	require.Eventually(t, func() bool {
		var count int
		err := storage.db.NewSelect().Model((*SessionModel)(nil)).ColumnExpr("count(*)").Scan(context.Background(), &count)
		return err == nil && count == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunGC did not stop after cancel")
	}
}
