package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
)

// RequestPasswordReset always returns nil so responses never reveal whether
// the email belongs to an account. For an active account a reset token is
// handed to the notifier; it is never returned to the caller.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	logger := slogx.FromContext(ctx)
	email = normalize(email)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error("password reset lookup failed", slogx.Err(err))
		}
		return nil
	}
	if !u.IsActive() || domain.IsPlaceholderEmail(u.Email) {
		return nil
	}

	token, err := s.Tokens.IssuePasswordReset(u.Email, s.now())
	if err != nil {
		logger.Error("failed to issue password reset token", "user_id", u.ID, slogx.Err(err))
		return nil
	}

	s.notifier().NotifyPasswordReset(ctx, u.Email, token)
	logger.Info("password reset requested", "user_id", u.ID)
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token. Tokens are
// single use: the jti is consumed before the password changes, so a replay
// or a concurrent second use fails. Every failure is
// ErrInvalidOrExpiredToken.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	now := s.now()

	claims, ok := s.Tokens.Inspect(token, jwtx.PurposePasswordReset, now)
	if !ok {
		return ErrInvalidOrExpiredToken
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return finish(ctx, "confirm_password_reset", err)
	}

	if err := s.Revocations.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		if errors.Is(err, revocation.ErrAlreadyRevoked) {
			return ErrInvalidOrExpiredToken
		}
		return finish(ctx, "confirm_password_reset", err)
	}

	var userID string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByEmail(ctx, normalize(claims.Subject))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidOrExpiredToken
			}
			return err
		}
		if !u.IsActive() {
			return ErrInvalidOrExpiredToken
		}
		userID = u.ID
		return tx.Users().UpdatePasswordHash(ctx, u.ID, hash, now)
	})
	if err != nil {
		return finish(ctx, "confirm_password_reset", err)
	}

	slogx.FromContext(ctx).Info("password reset completed", "user_id", userID)
	return nil
}

// ChangePassword replaces the password after checking the current one.
// Accounts without a password (OAuth or Telegram only) always fail with
// ErrIncorrectCurrentPassword; they set one through the reset flow.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return finish(ctx, "change_password", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if !u.HasPassword() || !s.Hasher.Verify(currentPassword, u.PasswordHash) {
			return ErrIncorrectCurrentPassword
		}
		return tx.Users().UpdatePasswordHash(ctx, u.ID, hash, s.now().UTC().Truncate(time.Second))
	})
	if err != nil {
		return finish(ctx, "change_password", err)
	}

	slogx.FromContext(ctx).Info("password changed", "user_id", userID)
	return nil
}
