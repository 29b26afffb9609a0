package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// enrollMFA registers alice and turns MFA on, returning her id, the TOTP
// secret and the initial backup codes.
func enrollMFA(t *testing.T, h *harness) (string, string, []string) {
	t.Helper()
	ctx := context.Background()

	u, err := h.auth.Register(ctx, "alice@example.com", "alice", testPassword)
	require.NoError(t, err)

	enr, err := h.mfa.EnrollTOTP(ctx, u.ID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(enr.Secret, h.clock.Now())
	require.NoError(t, err)
	codes, err := h.mfa.VerifyTOTP(ctx, u.ID, code)
	require.NoError(t, err)
	return u.ID, enr.Secret, codes
}

func currentCode(t *testing.T, h *harness, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, h.clock.Now())
	require.NoError(t, err)
	return code
}

func TestEnrollTOTP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.auth.Register(ctx, "alice@example.com", "alice", testPassword)
	require.NoError(t, err)

	enr, err := h.mfa.EnrollTOTP(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	require.Equal(t, "Inkwell", enr.Issuer)
	require.Equal(t, "alice", enr.Account)
	require.True(t, strings.HasPrefix(enr.URL, "otpauth://totp/"))

	stored, err := h.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, stored.MFAEnabled(), "enrolment alone does not enable MFA")
	require.NotContains(t, string(stored.MFASecret), enr.Secret, "secret is sealed at rest")

	t.Run("wrong code", func(t *testing.T) {
		_, err := h.mfa.VerifyTOTP(ctx, u.ID, "000000")
		require.ErrorIs(t, err, service.ErrInvalidTOTPCode)
	})

	t.Run("verify enables", func(t *testing.T) {
		codes, err := h.mfa.VerifyTOTP(ctx, u.ID, currentCode(t, h, enr.Secret))
		require.NoError(t, err)
		require.Len(t, codes, 10)

		_, err = h.mfa.EnrollTOTP(ctx, u.ID)
		require.ErrorIs(t, err, service.ErrMFAAlreadyEnabled)
	})

	t.Run("verify without enrolment", func(t *testing.T) {
		bob, err := h.auth.Register(ctx, "bob@example.com", "bob", testPassword)
		require.NoError(t, err)
		_, err = h.mfa.VerifyTOTP(ctx, bob.ID, "123456")
		require.ErrorIs(t, err, service.ErrMFANotEnrolled)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := h.mfa.EnrollTOTP(ctx, "missing")
		require.ErrorIs(t, err, service.ErrUserNotFound)
	})
}

func TestLoginWithMFA(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, secret, codes := enrollMFA(t, h)

	_, err := h.auth.Login(ctx, "alice@example.com", testPassword, "")
	require.ErrorIs(t, err, service.ErrMFARequired)

	_, err = h.auth.Login(ctx, "alice@example.com", testPassword, "000000")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = h.auth.Login(ctx, "alice@example.com", "Wrong#Pass1", currentCode(t, h, secret))
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	sess, err := h.auth.Login(ctx, "alice@example.com", testPassword, currentCode(t, h, secret))
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)

	t.Run("codes follow the clock", func(t *testing.T) {
		stale := currentCode(t, h, secret)
		h.clock.Advance(5 * time.Minute)
		_, err := h.auth.Login(ctx, "alice@example.com", testPassword, stale)
		require.ErrorIs(t, err, service.ErrInvalidCredentials)

		_, err = h.auth.Login(ctx, "alice@example.com", testPassword, currentCode(t, h, secret))
		require.NoError(t, err)
	})

	t.Run("backup codes are single use", func(t *testing.T) {
		code := strings.ToLower(codes[0])
		_, err := h.auth.Login(ctx, "alice@example.com", testPassword, code)
		require.NoError(t, err)

		_, err = h.auth.Login(ctx, "alice@example.com", testPassword, code)
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})
}

func TestLoginWithIdentityRequiresMFA(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tg := domain.TelegramIdentity{ID: 42}
	u, err := h.auth.LinkOAuth(ctx, "", tg)
	require.NoError(t, err)

	enr, err := h.mfa.EnrollTOTP(ctx, u.ID)
	require.NoError(t, err)
	_, err = h.mfa.VerifyTOTP(ctx, u.ID, currentCode(t, h, enr.Secret))
	require.NoError(t, err)

	_, err = h.auth.LoginWithIdentity(ctx, tg, "")
	require.ErrorIs(t, err, service.ErrMFARequired)

	_, err = h.auth.LoginWithIdentity(ctx, tg, currentCode(t, h, enr.Secret))
	require.NoError(t, err)
}

func TestRegenerateBackupCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	userID, secret, old := enrollMFA(t, h)

	_, err := h.mfa.RegenerateBackupCodes(ctx, userID, "000000")
	require.ErrorIs(t, err, service.ErrInvalidTOTPCode)

	fresh, err := h.mfa.RegenerateBackupCodes(ctx, userID, currentCode(t, h, secret))
	require.NoError(t, err)
	require.Len(t, fresh, 10)

	_, err = h.auth.Login(ctx, "alice@example.com", testPassword, old[1])
	require.ErrorIs(t, err, service.ErrInvalidCredentials, "old codes are gone")
	_, err = h.auth.Login(ctx, "alice@example.com", testPassword, fresh[1])
	require.NoError(t, err)
}

func TestRemoveMFA(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	userID, _, codes := enrollMFA(t, h)

	require.ErrorIs(t, h.mfa.RemoveMFA(ctx, userID, "000000"), service.ErrInvalidTOTPCode)
	require.NoError(t, h.mfa.RemoveMFA(ctx, userID, codes[0]))

	_, err := h.auth.Login(ctx, "alice@example.com", testPassword, "")
	require.NoError(t, err, "MFA no longer required")

	require.ErrorIs(t, h.mfa.RemoveMFA(ctx, userID, codes[1]), service.ErrMFANotEnabled)

	consumed, err := h.store.BackupCodes().ConsumeBackupCode(ctx, userID, cryptox.FingerprintToken(codes[1]))
	require.NoError(t, err)
	require.False(t, consumed, "backup codes are deleted with MFA")
}
