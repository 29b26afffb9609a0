package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/idx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
	"github.com/aussiebroadwan/inkwell/pkg/validx"
)

// maxUsernameAttempts bounds the base, base_1, base_2, ... search.
const maxUsernameAttempts = 1000

// LinkOAuth attaches a verified external identity to an account.
//
// With a userID the identity is attached to that user. Without one the
// account already owning the identity is returned; failing that a verified
// Google email is matched against existing accounts, and otherwise a new
// password-less account is created with a generated username.
func (s *AuthService) LinkOAuth(ctx context.Context, userID string, id domain.ExternalIdentity) (domain.User, error) {
	if id == nil {
		return domain.User{}, ErrInvalidCredentials
	}
	now := s.now().UTC().Truncate(time.Second)

	var out domain.User
	created := false
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		owner, err := findByIdentity(ctx, tx, id)
		switch {
		case err == nil:
			if userID != "" && owner.ID != userID {
				return ErrIdentityAlreadyLinked
			}
			out = owner

		case !errors.Is(err, store.ErrNotFound):
			return err

		case userID != "":
			u, err := tx.Users().GetUserByID(ctx, userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrUserNotFound
				}
				return err
			}
			if out, err = attach(ctx, tx, u, id, now); err != nil {
				return err
			}

		default:
			if g, ok := id.(domain.GoogleIdentity); ok && g.EmailVerified {
				u, err := tx.Users().GetUserByEmail(ctx, normalize(g.Email))
				if err == nil {
					out, err = attach(ctx, tx, u, id, now)
					if err != nil {
						return err
					}
					break
				}
				if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			if out, err = createFromIdentity(ctx, tx, id, now); err != nil {
				return err
			}
			created = true
		}

		if !out.IsActive() {
			return ErrAccountInactive
		}
		return nil
	})
	if err != nil {
		return domain.User{}, finish(ctx, "link_oauth", err)
	}

	if created {
		slogx.FromContext(ctx).Info("user created from external identity",
			"user_id", out.ID, "provider", id.Provider())
		if !domain.IsPlaceholderEmail(out.Email) {
			s.notifier().NotifyWelcome(ctx, out.Email, out.Username)
		}
	}
	return out, nil
}

// LoginWithIdentity signs in (or signs up) with a verified external
// identity. Accounts with MFA still need the second factor.
func (s *AuthService) LoginWithIdentity(ctx context.Context, id domain.ExternalIdentity, otp string) (domain.Session, error) {
	u, err := s.LinkOAuth(ctx, "", id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.secondFactor(ctx, u, otp); err != nil {
		return domain.Session{}, err
	}
	return s.startSession(ctx, u)
}

// LinkTelegram attaches a Telegram account to userID. Relinking the same
// Telegram id to the same user is a no-op.
func (s *AuthService) LinkTelegram(ctx context.Context, userID string, tg domain.TelegramIdentity) error {
	now := s.now().UTC().Truncate(time.Second)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		owner, err := tx.Users().GetUserByTelegramID(ctx, tg.ID)
		switch {
		case err == nil && owner.ID != userID:
			return ErrTelegramIDAlreadyLinked
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := tx.Users().LinkTelegram(ctx, userID, tg, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return finish(ctx, "link_telegram", err)
	}

	slogx.FromContext(ctx).Info("telegram linked", "user_id", userID)
	return nil
}

// UnlinkTelegram detaches the Telegram account unless it is the only way
// left to sign in.
func (s *AuthService) UnlinkTelegram(ctx context.Context, userID string) error {
	now := s.now().UTC().Truncate(time.Second)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if !u.TelegramLinked() {
			return nil
		}
		if !u.HasPassword() && u.OAuthProvider == "" {
			return ErrLastLoginMethod
		}
		return tx.Users().UnlinkTelegram(ctx, userID, now)
	})
	return finish(ctx, "unlink_telegram", err)
}

func findByIdentity(ctx context.Context, tx store.Tx, id domain.ExternalIdentity) (domain.User, error) {
	switch v := id.(type) {
	case domain.GoogleIdentity:
		return tx.Users().GetUserByOAuth(ctx, domain.ProviderGoogle, v.Sub)
	case domain.TelegramIdentity:
		return tx.Users().GetUserByTelegramID(ctx, v.ID)
	}
	return domain.User{}, fmt.Errorf("unsupported identity %T", id)
}

// attach links id to u and returns the updated row. An account holds one
// identity per provider; a different one already linked is never replaced.
func attach(ctx context.Context, tx store.Tx, u domain.User, id domain.ExternalIdentity, now time.Time) (domain.User, error) {
	switch v := id.(type) {
	case domain.GoogleIdentity:
		if u.OAuthProvider != "" && (u.OAuthProvider != domain.ProviderGoogle || u.OAuthSubject != v.Sub) {
			return domain.User{}, ErrIdentityAlreadyLinked
		}
		if err := tx.Users().LinkOAuth(ctx, u.ID, domain.ProviderGoogle, v.Sub, now); err != nil {
			return domain.User{}, err
		}
		// Google vouching for the same address counts as verification.
		if v.EmailVerified && normalize(v.Email) == u.Email && !u.Verified {
			if err := tx.Users().MarkVerified(ctx, u.ID, now); err != nil {
				return domain.User{}, err
			}
		}
	case domain.TelegramIdentity:
		if u.TelegramID != nil && *u.TelegramID != v.ID {
			return domain.User{}, ErrIdentityAlreadyLinked
		}
		if err := tx.Users().LinkTelegram(ctx, u.ID, v, now); err != nil {
			return domain.User{}, err
		}
	default:
		return domain.User{}, fmt.Errorf("unsupported identity %T", id)
	}
	return tx.Users().GetUserByID(ctx, u.ID)
}

// createFromIdentity creates a password-less account for id.
func createFromIdentity(ctx context.Context, tx store.Tx, id domain.ExternalIdentity, now time.Time) (domain.User, error) {
	u := domain.User{
		ID:        idx.NewAt(now).String(),
		Role:      domain.RoleUser,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var base string
	switch v := id.(type) {
	case domain.GoogleIdentity:
		u.Email = normalize(v.Email)
		u.Verified = v.EmailVerified
		u.FirstName = v.GivenName
		u.LastName = v.FamilyName
		u.OAuthProvider = domain.ProviderGoogle
		u.OAuthSubject = v.Sub
		base = v.GivenName
		if sanitizeUsername(base) == "" {
			base, _, _ = strings.Cut(u.Email, "@")
		}
	case domain.TelegramIdentity:
		tgID := v.ID
		u.Email = v.PlaceholderEmail()
		u.FirstName = v.FirstName
		u.LastName = v.LastName
		u.TelegramID = &tgID
		u.TelegramUsername = v.Username
		base = v.Username
		if len(sanitizeUsername(base)) < validx.UsernameMinLen {
			base = "user_" + strconv.FormatInt(v.ID, 10)
		}
	default:
		return domain.User{}, fmt.Errorf("unsupported identity %T", id)
	}

	username, err := uniqueUsername(ctx, tx, base)
	if err != nil {
		return domain.User{}, err
	}
	u.Username = username

	if err := tx.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// uniqueUsername returns base, or base_1, base_2, ... whichever is free.
func uniqueUsername(ctx context.Context, tx store.Tx, base string) (string, error) {
	base = sanitizeUsername(base)
	if len(base) < validx.UsernameMinLen {
		base = "user"
	}

	for i := 0; i < maxUsernameAttempts; i++ {
		candidate := base
		if i > 0 {
			suffix := "_" + strconv.Itoa(i)
			candidate = truncate(base, validx.UsernameMaxLen-len(suffix)) + suffix
		}

		_, err := tx.Users().GetUserByUsername(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free username for base %q", base)
}

// sanitizeUsername lowercases s and keeps [a-z0-9_], mapping anything else
// to '_' and collapsing runs.
func sanitizeUsername(s string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && sb.Len() > 0:
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	return truncate(strings.Trim(sb.String(), "_"), validx.UsernameMaxLen)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
