package authsdk

import (
	"context"
	"net/http"
)

// EnrollTOTP starts TOTP enrollment. MFA is enabled only after VerifyTOTP.
func (s *Session) EnrollTOTP(ctx context.Context) (*TOTPEnrollResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/mfa/totp/enroll", nil)
	if err != nil {
		return nil, err
	}

	var out TOTPEnrollResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTOTP confirms the first code, enables MFA and returns the backup
// codes.
func (s *Session) VerifyTOTP(ctx context.Context, code string) (*BackupCodesResponse, error) {
	return s.backupCodes(ctx, "/v1/auth/mfa/totp/verify", code)
}

// RegenerateBackupCodes replaces every backup code. code is a current TOTP
// or an unused backup code.
func (s *Session) RegenerateBackupCodes(ctx context.Context, code string) (*BackupCodesResponse, error) {
	return s.backupCodes(ctx, "/v1/auth/mfa/backup-codes", code)
}

func (s *Session) backupCodes(ctx context.Context, path, code string) (*BackupCodesResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, CodeRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var out BackupCodesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveMFA turns MFA off after a second factor check.
func (s *Session) RemoveMFA(ctx context.Context, code string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/auth/mfa/totp", CodeRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}
