package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	auth "github.com/goliatone/go-auth-boilerplate"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

func TestDatabaseFailuresAreServerErrors(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		db, mock := newMockDB(t)
		app := newTestApp(t, db)

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		res := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
		require.Equal(t, http.StatusInternalServerError, res.status, res.raw)
		assert.False(t, res.env.Success)
		assert.Equal(t, "Internal Server Error", res.env.Error.Message)
		assert.NotContains(t, res.raw, "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("login", func(t *testing.T) {
		db, mock := newMockDB(t)
		app := newTestApp(t, db)

		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

		res := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
			"email": jane["email"], "password": jane["password"],
		})
		require.Equal(t, http.StatusInternalServerError, res.status, res.raw)
		assert.NotEqual(t, "Incorrect email or password.", res.env.Error.Message)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// A concurrent registration can insert the same email between the lookup
// and the insert. The database constraint still answers with a conflict.
func TestRegisterLateUniqueViolationIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	app := newTestApp(t, db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT").WillReturnError(&pgconn.PgError{
		Code:           "23505",
		Message:        `duplicate key value violates unique constraint "uq_users_local_email"`,
		ConstraintName: "uq_users_local_email",
	})
	mock.ExpectRollback()

	res := doJSON(t, app, http.MethodPost, "/auth/register", "", jane)
	require.Equal(t, http.StatusConflict, res.status, res.raw)
	assert.False(t, res.env.Success)
	assert.Equal(t, "Email already in use.", res.env.Error.Message)
	assert.Equal(t, auth.TextCodeEmailInUse, res.env.Error.Code)
	assert.Empty(t, res.cookie)
	assert.NoError(t, mock.ExpectationsWereMet())
}
