package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provider names with a dedicated id column on users
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email         string     `bun:"email,notnull" json:"email"`
	PasswordHash  string     `bun:"password_hash,nullzero" json:"-"`
	Name          string     `bun:"name,nullzero" json:"name"`
	GoogleID      string     `bun:"google_id,nullzero" json:"google_id,omitempty"`
	FacebookID    string     `bun:"facebook_id,nullzero" json:"facebook_id,omitempty"`
	EmailVerified bool       `bun:"email_verified,notnull" json:"email_verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasPassword is true for users created through local registration
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// ProviderID returns the external id stored for provider
func (u *User) ProviderID(provider string) string {
	if u == nil {
		return ""
	}
	switch provider {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderFacebook:
		return u.FacebookID
	}
	return ""
}

// SetProviderID sets the external id column for provider, it reports false
// for providers without a column.
func (u *User) SetProviderID(provider, id string) bool {
	switch provider {
	case ProviderGoogle:
		u.GoogleID = id
	case ProviderFacebook:
		u.FacebookID = id
	default:
		return false
	}
	return true
}

// PublicUser is the response shape for a user, it never carries credentials
type PublicUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	GoogleID      string `json:"google_id,omitempty"`
	FacebookID    string `json:"facebook_id,omitempty"`
}

// NewPublicUser maps a user into its response shape
func NewPublicUser(u *User) PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		GoogleID:      u.GoogleID,
		FacebookID:    u.FacebookID,
	}
}

// RegisteredUser is the minimal shape returned after registration
type RegisteredUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
