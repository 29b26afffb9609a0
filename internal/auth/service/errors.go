package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
)

// ErrDuplicateIdentity is the parent of every "already taken" error.
var ErrDuplicateIdentity = errors.New("duplicate_identity")

// duplicateError is a specific duplicate that still matches
// ErrDuplicateIdentity with errors.Is.
type duplicateError struct{ code string }

func (e *duplicateError) Error() string { return e.code }
func (e *duplicateError) Unwrap() error { return ErrDuplicateIdentity }

var (
	ErrDuplicateEmail          error = &duplicateError{"duplicate_email"}
	ErrDuplicateUsername       error = &duplicateError{"duplicate_username"}
	ErrTelegramIDAlreadyLinked error = &duplicateError{"telegram_id_already_linked"}
	ErrIdentityAlreadyLinked   error = &duplicateError{"identity_already_linked"}
)

var (
	ErrInvalidCredentials       = errors.New("invalid_credentials")
	ErrInvalidToken             = errors.New("invalid_token")
	ErrInvalidOrExpiredToken    = errors.New("invalid_or_expired_token")
	ErrIncorrectCurrentPassword = errors.New("incorrect_current_password")
	ErrAccountInactive          = errors.New("account_inactive")
	ErrMFARequired              = errors.New("mfa_required")
	ErrUserNotFound             = errors.New("user_not_found")
	ErrInvalidRole              = errors.New("invalid_role")
	ErrInvalidStatus            = errors.New("invalid_status")
	ErrForbidden                = errors.New("forbidden")
	ErrLastLoginMethod          = errors.New("last_login_method")

	// ErrInternal hides persistence and other unexpected failures. The
	// cause is logged, never returned.
	ErrInternal = errors.New("internal_error")
)

// publicErrors may cross the service boundary unchanged.
var publicErrors = []error{
	ErrDuplicateIdentity,
	ErrInvalidCredentials,
	ErrInvalidToken,
	ErrInvalidOrExpiredToken,
	ErrIncorrectCurrentPassword,
	ErrAccountInactive,
	ErrMFARequired,
	ErrUserNotFound,
	ErrInvalidRole,
	ErrInvalidStatus,
	ErrForbidden,
	ErrLastLoginMethod,
	ErrInvalidTOTPCode,
	ErrMFANotEnabled,
	ErrMFANotEnrolled,
	ErrMFAAlreadyEnabled,
	ErrInternal,
}

// conflictError turns a storage UNIQUE violation into the matching typed
// duplicate error. It returns nil when err is not a conflict.
func conflictError(err error) error {
	if !errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	switch store.ConflictField(err) {
	case store.FieldEmail:
		return ErrDuplicateEmail
	case store.FieldUsername:
		return ErrDuplicateUsername
	case store.FieldTelegramID:
		return ErrTelegramIDAlreadyLinked
	case store.FieldOAuth:
		return ErrIdentityAlreadyLinked
	}
	return ErrDuplicateIdentity
}

// finish is the last step of every operation: public errors pass through,
// constraint violations become duplicate errors, and anything else is
// logged and replaced by ErrInternal.
func finish(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if dup := conflictError(err); dup != nil {
		return dup
	}
	for _, pub := range publicErrors {
		if errors.Is(err, pub) {
			return err
		}
	}
	slogx.FromContext(ctx).Error("auth operation failed", "op", op, slogx.Err(err))
	return ErrInternal
}
