package authd

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the verification state of a user account
type AccountStatus = string

const (
	// AccountUnverified is a freshly registered account with a pending code
	AccountUnverified AccountStatus = "unverified"
	// AccountVerified means the email verification code was redeemed
	AccountVerified AccountStatus = "verified"
)

// User is the user model
type User struct {
	bun.BaseModel         `bun:"table:users,alias:usr"`
	ID                    uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                  string         `bun:"name,notnull" json:"name,omitempty"`
	Email                 string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash          string         `bun:"password_hash" json:"-"`
	IsVerified            bool           `bun:"is_verified" json:"isVerified"`
	VerificationCode      string         `bun:"verification_code,nullzero" json:"-"`
	VerificationExpiresAt *time.Time     `bun:"verification_expires_at,nullzero" json:"-"`
	ResetToken            string         `bun:"reset_password_token,nullzero" json:"-"`
	ResetExpiresAt        *time.Time     `bun:"reset_password_expires_at,nullzero" json:"-"`
	LoginAttempts         int            `bun:"login_attempts" json:"-"`
	LoginAttemptAt        *time.Time     `bun:"login_attempt_at" json:"-"`
	LastLoginAt           *time.Time     `bun:"last_login_at,nullzero" json:"lastLogin,omitempty"`
	Metadata              map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt             *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt             *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt             *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Status derives the verification state from the record
func (u *User) Status() AccountStatus {
	if u.IsVerified {
		return AccountVerified
	}
	return AccountUnverified
}

// ResetPending reports whether an unexpired reset token is outstanding
func (u *User) ResetPending(now time.Time) bool {
	if u.ResetToken == "" || u.ResetExpiresAt == nil {
		return false
	}
	return u.ResetExpiresAt.After(now)
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]interface{})
	}
	u.Metadata[key] = val
	return u
}
