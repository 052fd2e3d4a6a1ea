package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user store
type Users interface {
	repository.Repository[*User]

	GetLocalByEmail(ctx context.Context, email string) (*User, error)
	GetByProviderID(ctx context.Context, provider, providerID string) (*User, error)
	GetByProviderIDTx(ctx context.Context, tx bun.IDB, provider, providerID string) (*User, error)

	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ UserFinder                   = (*users)(nil)
)

// NewUsersRepository creates the bun backed user store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id, criteria...)
}

// GetByIDTx answers record not found for ids that are not UUIDs
func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*User, error) {
	meta := map[string]any{"id": id}

	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, repository.NewRecordNotFound().WithMetadata(meta)
	}

	return a.findOneTx(ctx, tx, meta, "id", uid, criteria...)
}

// GetLocalByEmail finds the user holding local credentials for email
func (a *users) GetLocalByEmail(ctx context.Context, email string) (*User, error) {
	return a.findOneTx(ctx, a.db, map[string]any{"email": email}, "email", email,
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.password_hash IS NOT NULL")
		},
	)
}

func (a *users) GetByProviderID(ctx context.Context, provider, providerID string) (*User, error) {
	return a.GetByProviderIDTx(ctx, a.db, provider, providerID)
}

func (a *users) GetByProviderIDTx(ctx context.Context, tx bun.IDB, provider, providerID string) (*User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{
		"provider":    provider,
		"provider_id": providerID,
	}

	if strings.TrimSpace(providerID) == "" {
		return nil, repository.NewRecordNotFound().WithMetadata(meta)
	}

	return a.findOneTx(ctx, tx, meta, column, providerID)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

// GetByIdentifierTx accepts a user id or an email
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	trimmed := strings.TrimSpace(identifier)
	meta := map[string]any{"identifier": identifier}

	if id, err := uuid.Parse(trimmed); err == nil {
		return a.findOneTx(ctx, tx, meta, "id", id, criteria...)
	}
	return a.findOneTx(ctx, tx, meta, "email", trimmed, criteria...)
}

// findOneTx loads the single user whose column equals value. A miss is
// reported as a record not found error carrying meta.
func (a *users) findOneTx(ctx context.Context, tx bun.IDB, meta map[string]any, column string, value any, criteria ...repository.SelectCriteria) (*User, error) {
	record := &User{}
	q := tx.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value)

	for _, c := range criteria {
		q.Apply(c)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if IsNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(meta)
		}
		return nil, err
	}

	return record, nil
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func providerColumn(provider string) (string, error) {
	switch provider {
	case ProviderGoogle:
		return "google_id", nil
	case ProviderFacebook:
		return "facebook_id", nil
	}
	return "", fmt.Errorf("unsupported identity provider %q", provider)
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
