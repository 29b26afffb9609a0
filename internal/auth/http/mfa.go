package http

import (
	"net/http"

	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
)

// MFAHandler handles all MFA-related endpoints.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll handles POST /v1/auth/mfa/totp/enroll
//
//	@Summary		Enroll in TOTP MFA
//	@Description	Generates a TOTP secret for the authenticated user and returns it with the otpauth URL.
//	@Description	MFA is not active until a code is verified.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TOTPEnrollResponse	"TOTP secret and otpauth URL"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	authsdk.ErrorResponse		"MFA already enabled"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/auth/mfa/totp/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	enroll, err := h.MFAService.EnrollTOTP(ctx, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TOTPEnrollResponse{
		Secret:  enroll.Secret,
		URL:     enroll.URL,
		Issuer:  enroll.Issuer,
		Account: enroll.Account,
	})
}

// HandleVerify handles POST /v1/auth/mfa/totp/verify
//
//	@Summary		Verify TOTP code and enable MFA
//	@Description	Verifies a TOTP code and enables MFA for the user. Returns backup codes.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CodeRequest			true	"TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse	"Backup codes (shown once)"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Invalid TOTP code or not enrolled"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409		{object}	authsdk.ErrorResponse		"MFA already enabled"
//	@Router			/v1/auth/mfa/totp/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.CodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	codes, err := h.MFAService.VerifyTOTP(ctx, httpx.UserIDFromContext(ctx), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{Codes: codes})
}

// HandleRegenerateBackupCodes handles POST /v1/auth/mfa/backup-codes
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces every backup code. Requires a current TOTP code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CodeRequest			true	"TOTP code for verification"
//	@Success		200		{object}	authsdk.BackupCodesResponse	"New backup codes (shown once)"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Invalid TOTP code or MFA not enabled"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Router			/v1/auth/mfa/backup-codes [post].
func (h *MFAHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.CodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	codes, err := h.MFAService.RegenerateBackupCodes(ctx, httpx.UserIDFromContext(ctx), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{Codes: codes})
}

// HandleRemove handles DELETE /v1/auth/mfa/totp
//
//	@Summary		Remove TOTP MFA
//	@Description	Disables MFA and deletes the backup codes. Requires a TOTP or backup code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.CodeRequest	true	"TOTP or backup code"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"Invalid code or MFA not enabled"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/mfa/totp [delete].
func (h *MFAHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.CodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.MFAService.RemoveMFA(ctx, httpx.UserIDFromContext(ctx), req.Code); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
