package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Conflict fields reported by ConflictError.
const (
	FieldEmail      = "email"
	FieldUsername   = "username"
	FieldTelegramID = "telegram_id"
	FieldOAuth      = "oauth"
	FieldJTI        = "jti"
	FieldUnknown    = "unknown"
)

// ConflictError is returned when a write violates a UNIQUE constraint. It
// matches ErrAlreadyExists with errors.Is and names the offending field so
// callers can turn it into a precise domain error.
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	return "store: already exists: " + e.Field
}

func (e *ConflictError) Is(target error) bool { return target == ErrAlreadyExists }

func (e *ConflictError) Unwrap() error { return e.Err }

// ConflictField returns the field of a ConflictError in err's chain, or "".
func ConflictField(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx can hand out the same repos bound to a transaction.
type Store interface {
	Users() Users
	BackupCodes() BackupCodes
	RevokedTokens() RevokedTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Never call the outer Store from inside fn.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users persists accounts. Email and username arguments must already be
// normalized to lowercase. Mutations return ErrNotFound when no row matched.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (domain.User, error)
	GetUserByOAuth(ctx context.Context, provider, subject string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Unique violations are returned as *ConflictError.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdateStatus(ctx context.Context, userID string, status domain.UserStatus, now time.Time) error
	UpdateRole(ctx context.Context, userID string, role domain.Role, now time.Time) error
	MarkVerified(ctx context.Context, userID string, now time.Time) error

	// LinkOAuth attaches a provider identity; *ConflictError{FieldOAuth} if
	// another account owns it.
	LinkOAuth(ctx context.Context, userID, provider, subject string, now time.Time) error

	// LinkTelegram attaches a Telegram account; *ConflictError{FieldTelegramID}
	// if another account owns it.
	LinkTelegram(ctx context.Context, userID string, tg domain.TelegramIdentity, now time.Time) error
	UnlinkTelegram(ctx context.Context, userID string, now time.Time) error

	// UpdateMFASecret stores a sealed TOTP secret without enabling MFA.
	UpdateMFASecret(ctx context.Context, userID string, sealed []byte, now time.Time) error
	EnableMFA(ctx context.Context, userID string, at time.Time) error

	// DisableMFA clears both mfa_enabled_at and mfa_secret.
	DisableMFA(ctx context.Context, userID string, now time.Time) error
}

// BackupCodes stores fingerprints of one-time MFA recovery codes.
type BackupCodes interface {
	CreateBackupCode(ctx context.Context, userID, codeHash string) error

	// ConsumeBackupCode deletes the code and reports whether it existed, so
	// a code can only ever be redeemed once.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error)

	DeleteAllBackupCodes(ctx context.Context, userID string) error
	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}

// RevokedTokens is the durable set of token IDs that must no longer be
// accepted: consumed password reset tokens and logged out sessions.
type RevokedTokens interface {
	// RevokeToken records jti until expiresAt. A jti that is already present
	// yields *ConflictError{FieldJTI}.
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpiredRevokedTokens purges entries whose token has expired
	// anyway and returns how many were removed.
	DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}
