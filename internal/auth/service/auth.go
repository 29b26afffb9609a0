package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/idx"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
	"github.com/aussiebroadwan/inkwell/pkg/validx"
)

// Notifier delivers account emails. Implementations must not block: the
// caller is on the request path and never learns about delivery failures.
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string)
	NotifyWelcome(ctx context.Context, email, username string)
	NotifyEmailVerification(ctx context.Context, email, token string)
}

type noopNotifier struct{}

func (noopNotifier) NotifyPasswordReset(context.Context, string, string)     {}
func (noopNotifier) NotifyWelcome(context.Context, string, string)           {}
func (noopNotifier) NotifyEmailVerification(context.Context, string, string) {}

// AuthService implements registration, login and the credential lifecycle.
type AuthService struct {
	Store       store.Store
	Tokens      *jwtx.Tokens
	Hasher      *cryptox.PasswordHasher
	Revocations revocation.Set
	Notifier    Notifier

	// MFA is consulted at login when the account has a second factor.
	MFA *MFAService

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) notifier() Notifier {
	if s.Notifier == nil {
		return noopNotifier{}
	}
	return s.Notifier
}

// normalize is applied to every email and username before lookup or storage.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates an active, unverified account with role user.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (domain.User, error) {
	email = normalize(email)
	username = normalize(username)

	if domain.IsPlaceholderEmail(email) {
		return domain.User{}, validx.Errors{"email": "must not use a reserved domain"}
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, finish(ctx, "register", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// The lookups give a precise error on the common path; the UNIQUE
		// constraints still decide concurrent inserts.
		if _, err := tx.Users().GetUserByEmail(ctx, email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := tx.Users().GetUserByUsername(ctx, username); err == nil {
			return ErrDuplicateUsername
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return tx.Users().CreateUser(ctx, u)
	})
	if err != nil {
		return domain.User{}, finish(ctx, "register", err)
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", u.ID)

	s.notifier().NotifyWelcome(ctx, u.Email, u.Username)
	s.sendVerification(ctx, u.Email, now)

	return u, nil
}

// Login authenticates by email and password. Unknown email, missing or
// wrong password and a non-active account all yield ErrInvalidCredentials.
// When MFA is enabled an otp (TOTP or backup code) is also required.
func (s *AuthService) Login(ctx context.Context, email, password, otp string) (domain.Session, error) {
	email = normalize(email)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		s.Hasher.VerifyDummy(password)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, finish(ctx, "login", err)
	}

	if !u.HasPassword() {
		s.Hasher.VerifyDummy(password)
		return domain.Session{}, ErrInvalidCredentials
	}
	if !s.Hasher.Verify(password, u.PasswordHash) || !u.IsActive() {
		return domain.Session{}, ErrInvalidCredentials
	}

	if err := s.secondFactor(ctx, u, otp); err != nil {
		return domain.Session{}, err
	}

	if s.Hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u.ID, password)
	}

	return s.startSession(ctx, u)
}

// secondFactor enforces MFA for accounts that enabled it.
func (s *AuthService) secondFactor(ctx context.Context, u domain.User, otp string) error {
	if !u.MFAEnabled() {
		return nil
	}
	if strings.TrimSpace(otp) == "" {
		return ErrMFARequired
	}
	if s.MFA == nil {
		return finish(ctx, "second_factor", errors.New("mfa service not configured"))
	}
	if err := s.MFA.CheckSecondFactor(ctx, u, otp); err != nil {
		if errors.Is(err, ErrInvalidTOTPCode) {
			return ErrInvalidCredentials
		}
		return finish(ctx, "second_factor", err)
	}
	return nil
}

// rehash upgrades a hash made with an older cost. Failures only cost us the
// upgrade, so they are logged and ignored.
func (s *AuthService) rehash(ctx context.Context, userID, password string) {
	hash, err := s.Hasher.Hash(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, userID, hash, s.now())
	}
	if err != nil {
		slogx.FromContext(ctx).Warn("password rehash failed", "user_id", userID, slogx.Err(err))
	}
}

// startSession issues an access/refresh pair and records the login.
func (s *AuthService) startSession(ctx context.Context, u domain.User) (domain.Session, error) {
	now := s.now().UTC().Truncate(time.Second)

	access, err := s.issueAccess(u, now)
	if err != nil {
		return domain.Session{}, finish(ctx, "issue_access", err)
	}
	refresh, err := s.Tokens.IssueRefresh(u.ID, now)
	if err != nil {
		return domain.Session{}, finish(ctx, "issue_refresh", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().UpdateLastLogin(ctx, u.ID, now)
	})
	if err != nil {
		return domain.Session{}, finish(ctx, "update_last_login", err)
	}
	u.LastLoginAt = &now

	slogx.FromContext(ctx).Info("user logged in", "user_id", u.ID)

	return domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.Tokens.TTL(jwtx.PurposeAccess),
		User:         u,
	}, nil
}

func (s *AuthService) issueAccess(u domain.User, now time.Time) (string, error) {
	return s.Tokens.IssueAccess(u.ID, now,
		jwtx.WithRole(u.Role.String()),
		jwtx.WithUsername(u.Username),
	)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated; it stays valid until it expires or the
// session logs out.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	now := s.now()

	claims, ok := s.Tokens.Inspect(refreshToken, jwtx.PurposeRefresh, now)
	if !ok {
		return "", ErrInvalidToken
	}

	revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", finish(ctx, "refresh", err)
	}
	if revoked {
		return "", ErrInvalidToken
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", finish(ctx, "refresh", err)
	}
	if !u.IsActive() {
		return "", ErrAccountInactive
	}

	access, err := s.issueAccess(u, now)
	if err != nil {
		return "", finish(ctx, "refresh", err)
	}
	return access, nil
}

// Logout revokes the presented access token and, if given, the refresh
// token of the same session.
func (s *AuthService) Logout(ctx context.Context, access jwtx.Claims, refreshToken string) error {
	if err := s.revoke(ctx, access); err != nil {
		return finish(ctx, "logout", err)
	}

	if refreshToken == "" {
		return nil
	}
	refresh, ok := s.Tokens.Inspect(refreshToken, jwtx.PurposeRefresh, s.now())
	if !ok || refresh.Subject != access.Subject {
		return ErrInvalidToken
	}
	if err := s.revoke(ctx, refresh); err != nil {
		return finish(ctx, "logout", err)
	}
	return nil
}

// revoke adds the token's jti to the revocation set. Revoking twice is fine.
func (s *AuthService) revoke(ctx context.Context, c jwtx.Claims) error {
	err := s.Revocations.Revoke(ctx, c.ID, c.ExpiresAtTime())
	if errors.Is(err, revocation.ErrAlreadyRevoked) {
		return nil
	}
	return err
}

// Authenticate validates a bearer access token for the HTTP layer. It
// fails closed when the revocation set cannot be consulted.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (jwtx.Claims, bool) {
	claims, ok := s.Tokens.Inspect(raw, jwtx.PurposeAccess, s.now())
	if !ok {
		return jwtx.Claims{}, false
	}

	revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("revocation lookup failed", slogx.Err(err))
		return jwtx.Claims{}, false
	}
	if revoked {
		return jwtx.Claims{}, false
	}
	return claims, true
}

// Me returns the authenticated user's account.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, finish(ctx, "me", err)
	}
	return u, nil
}
