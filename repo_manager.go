package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager groups the repositories the handlers depend on and
// runs work that spans them in a single transaction.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
}

type repositories struct {
	db    *bun.DB
	users Users
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &repositories{db: db, users: NewUsersRepository(db)}
}

func (r *repositories) Users() Users { return r.users }

func (r *repositories) Validate() error {
	switch {
	case r.db == nil:
		return errors.New("repository manager requires a database")
	case r.users == nil:
		return errors.New("users repository is not initialized")
	}
	return nil
}

func (r *repositories) MustValidate() {
	if err := r.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx refuses to open a transaction once ctx is done.
func (r *repositories) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.RunInTx(ctx, opts, f)
}
