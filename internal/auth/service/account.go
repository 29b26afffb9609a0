package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
)

// VerifyEmail marks the account named by an email verification token as
// verified. Verifying twice is harmless.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	now := s.now()

	email := s.Tokens.Verify(token, jwtx.PurposeEmailVerification, now)
	if email == "" {
		return ErrInvalidOrExpiredToken
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByEmail(ctx, normalize(email))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidOrExpiredToken
			}
			return err
		}
		if u.Verified {
			return nil
		}
		return tx.Users().MarkVerified(ctx, u.ID, now.UTC().Truncate(time.Second))
	})
	return finish(ctx, "verify_email", err)
}

// ResendVerification sends a fresh verification email if the account still
// needs one.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if u.Verified || domain.IsPlaceholderEmail(u.Email) {
		return nil
	}
	s.sendVerification(ctx, u.Email, s.now())
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, email string, now time.Time) {
	token, err := s.Tokens.IssueEmailVerification(email, now)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to issue verification token", slogx.Err(err))
		return
	}
	s.notifier().NotifyEmailVerification(ctx, email, token)
}

// SetStatus moves a user between active, deactivated and banned. The actor
// must currently be an active admin; the role in their token is not
// trusted. Admins cannot change their own status.
func (s *AuthService) SetStatus(ctx context.Context, actorID, userID string, status domain.UserStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := requireAdmin(ctx, tx, actorID, userID); err != nil {
			return err
		}
		return mapUserNotFound(tx.Users().UpdateStatus(ctx, userID, status, s.now().UTC().Truncate(time.Second)))
	})
	if err != nil {
		return finish(ctx, "set_status", err)
	}

	slogx.FromContext(ctx).Info("user status changed", "user_id", userID, "status", status, "actor_id", actorID)
	return nil
}

// SetRole changes a user's role, with the same actor rules as SetStatus.
// The new role shows up in access tokens issued from then on.
func (s *AuthService) SetRole(ctx context.Context, actorID, userID string, role domain.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := requireAdmin(ctx, tx, actorID, userID); err != nil {
			return err
		}
		return mapUserNotFound(tx.Users().UpdateRole(ctx, userID, role, s.now().UTC().Truncate(time.Second)))
	})
	if err != nil {
		return finish(ctx, "set_role", err)
	}

	slogx.FromContext(ctx).Info("user role changed", "user_id", userID, "role", role, "actor_id", actorID)
	return nil
}

func requireAdmin(ctx context.Context, tx store.Tx, actorID, targetID string) error {
	if actorID == targetID {
		return ErrForbidden
	}
	actor, err := tx.Users().GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if actor.Role != domain.RoleAdmin || !actor.IsActive() {
		return ErrForbidden
	}
	return nil
}

func mapUserNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
