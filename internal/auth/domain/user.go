package domain

import "time"

// UserStatus is the lifecycle state of an account. Users are never hard
// deleted; they move between these states.
type UserStatus string

const (
	StatusActive      UserStatus = "active"
	StatusDeactivated UserStatus = "deactivated"
	StatusBanned      UserStatus = "banned"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusDeactivated, StatusBanned:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string // lowercase, unique
	Username     string // lowercase, unique
	PasswordHash string // bcrypt, empty for OAuth/Telegram-only accounts
	Role         Role
	Status       UserStatus
	Verified     bool

	FirstName string
	LastName  string

	OAuthProvider string
	OAuthSubject  string

	TelegramID       *int64
	TelegramUsername string

	MFAEnabledAt *time.Time
	MFASecret    []byte // sealed TOTP secret

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool { return u.Status == StatusActive }

// HasPassword reports whether a password credential is set.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// MFAEnabled reports whether a second factor is required at login.
func (u User) MFAEnabled() bool { return u.MFAEnabledAt != nil && len(u.MFASecret) > 0 }

// TelegramLinked reports whether a Telegram account is attached.
func (u User) TelegramLinked() bool { return u.TelegramID != nil }
