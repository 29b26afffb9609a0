package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const backupCodeCount = 10 // Number of backup codes to generate

var (
	ErrInvalidTOTPCode   = errors.New("invalid_totp_code")
	ErrMFANotEnabled     = errors.New("mfa_not_enabled")
	ErrMFANotEnrolled    = errors.New("mfa_not_enrolled")
	ErrMFAAlreadyEnabled = errors.New("mfa_already_enabled")
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// MFAService manages the optional TOTP second factor. Secrets are sealed at
// rest; backup codes are stored as fingerprints and deleted when used.
type MFAService struct {
	Store  store.Store
	Sealer *cryptox.Sealer
	Issuer string // Issuer name shown in authenticator apps (e.g., "Inkwell")

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnrollTOTP generates a TOTP secret for the user and returns it along with
// the otpauth URL. This does NOT enable MFA yet - the user must verify a
// code first. Enrolling again before verifying replaces the secret.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (domain.MFAEnrollment, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}
	if u.MFAEnabled() {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: u.Username,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return domain.MFAEnrollment{}, finish(ctx, "enroll_totp", fmt.Errorf("generate TOTP key: %w", err))
	}

	sealed, err := s.Sealer.Seal([]byte(key.Secret()))
	if err != nil {
		return domain.MFAEnrollment{}, finish(ctx, "enroll_totp", err)
	}

	// Store the secret (but don't enable MFA yet)
	if err := s.Store.Users().UpdateMFASecret(ctx, userID, sealed, s.now()); err != nil {
		return domain.MFAEnrollment{}, finish(ctx, "enroll_totp", err)
	}

	return domain.MFAEnrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: u.Username,
	}, nil
}

// VerifyTOTP checks the first code from a freshly enrolled authenticator,
// enables MFA and returns the initial backup codes.
func (s *MFAService) VerifyTOTP(ctx context.Context, userID, code string) ([]string, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.MFAEnabled() {
		return nil, ErrMFAAlreadyEnabled
	}
	if len(u.MFASecret) == 0 {
		return nil, ErrMFANotEnrolled
	}

	ok, err := s.validateTOTP(u, code)
	if err != nil {
		return nil, finish(ctx, "verify_totp", err)
	}
	if !ok {
		return nil, ErrInvalidTOTPCode
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, finish(ctx, "verify_totp", err)
	}

	// Store backup codes and enable MFA in a transaction
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := replaceBackupCodes(ctx, tx, userID, codes); err != nil {
			return err
		}
		return tx.Users().EnableMFA(ctx, userID, s.now())
	})
	if err != nil {
		return nil, finish(ctx, "verify_totp", err)
	}

	slogx.FromContext(ctx).Info("mfa enabled", "user_id", userID)
	return codes, nil
}

// RegenerateBackupCodes replaces all backup codes after a second factor check.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckSecondFactor(ctx, u, code); err != nil {
		return nil, finish(ctx, "regenerate_backup_codes", err)
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, finish(ctx, "regenerate_backup_codes", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return replaceBackupCodes(ctx, tx, userID, codes)
	})
	if err != nil {
		return nil, finish(ctx, "regenerate_backup_codes", err)
	}
	return codes, nil
}

// RemoveMFA disables MFA after a second factor check.
func (s *MFAService) RemoveMFA(ctx context.Context, userID, code string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.CheckSecondFactor(ctx, u, code); err != nil {
		return finish(ctx, "remove_mfa", err)
	}

	// Remove MFA and backup codes in a transaction
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("delete backup codes: %w", err)
		}
		return tx.Users().DisableMFA(ctx, userID, s.now())
	})
	if err != nil {
		return finish(ctx, "remove_mfa", err)
	}

	slogx.FromContext(ctx).Info("mfa disabled", "user_id", userID)
	return nil
}

// CheckSecondFactor accepts a current TOTP code or an unused backup code,
// consuming the latter. A wrong code is ErrInvalidTOTPCode.
func (s *MFAService) CheckSecondFactor(ctx context.Context, u domain.User, code string) error {
	if !u.MFAEnabled() {
		return ErrMFANotEnabled
	}
	code = strings.TrimSpace(code)

	ok, err := s.validateTOTP(u, code)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	consumed, err := s.Store.BackupCodes().ConsumeBackupCode(ctx, u.ID, cryptox.FingerprintToken(code))
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidTOTPCode
	}

	slogx.FromContext(ctx).Info("backup code used", "user_id", u.ID)
	return nil
}

func (s *MFAService) validateTOTP(u domain.User, code string) (bool, error) {
	secret, err := s.Sealer.Open(u.MFASecret)
	if err != nil {
		return false, fmt.Errorf("open mfa secret: %w", err)
	}
	ok, err := totp.ValidateCustom(code, string(secret), s.now().UTC(), totpOpts)
	if err != nil {
		// Malformed input (wrong length, not digits) is just a wrong code.
		return false, nil
	}
	return ok, nil
}

func (s *MFAService) user(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, finish(ctx, "mfa_user", err)
	}
	return u, nil
}

func generateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range backupCodeCount {
		code, err := cryptox.GenerateBackupCode()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

func replaceBackupCodes(ctx context.Context, tx store.Tx, userID string, codes []string) error {
	if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
		return fmt.Errorf("delete old backup codes: %w", err)
	}
	for _, code := range codes {
		if err := tx.BackupCodes().CreateBackupCode(ctx, userID, cryptox.FingerprintToken(code)); err != nil {
			return fmt.Errorf("store backup code: %w", err)
		}
	}
	return nil
}
