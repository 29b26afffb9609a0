package http

import (
	"net/http"

	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
)

// AuthHandler serves registration, password sign in and the account
// endpoints of the signed in user.
type AuthHandler struct {
	Auth *service.AuthService
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register an account
//	@Description	Creates a password account. Email and username are unique case-insensitively.
//	@Description	A welcome mail and a verification link are sent asynchronously.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		409		{object}	authsdk.ErrorResponse	"duplicate_email or duplicate_username"
//	@Failure		422		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.Auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUser(u))
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Sign in with email and password
//	@Description	Returns an access and refresh token. Accounts with MFA answer 409 mfa_required
//	@Description	until the request carries a TOTP or backup code in "otp".
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		409		{object}	authsdk.ErrorResponse	"mfa_required"
//	@Failure		422		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.Auth.Login(r.Context(), req.Email, req.Password, req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(sess))
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Refresh the access token
//	@Description	Issues a new access token. The refresh token is not rotated.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.AccessTokenResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_inactive"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	access, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.AccessTokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.Auth.Tokens.TTL(jwtx.PurposeAccess).Seconds()),
	})
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Sign out
//	@Description	Revokes the access token used for the call and, when given, the refresh token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.LogoutRequest	false	"Refresh token to revoke"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.LogoutRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := h.Auth.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /v1/auth/me
//
//	@Summary		Current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.User
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.Me(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(u))
}

// HandleChangePassword handles POST /v1/auth/change-password
//
//	@Summary		Change password
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"incorrect_current_password"
//	@Failure		422	{object}	authsdk.ErrorResponse	"Validation failed"
//	@Router			/v1/auth/change-password [post].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resetRequested is the same answer for known and unknown addresses.
const resetRequested = "If the address is registered, a reset link is on its way."

// HandlePasswordReset handles POST /v1/auth/password-reset
//
//	@Summary		Request a password reset
//	@Description	Always answers 202 so registered addresses cannot be discovered.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.PasswordResetRequest	true	"Email"
//	@Success		202		{object}	authsdk.MessageResponse
//	@Failure		422		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Router			/v1/auth/password-reset [post].
func (h *AuthHandler) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordResetRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, authsdk.MessageResponse{Message: resetRequested})
}

// HandlePasswordResetConfirm handles POST /v1/auth/password-reset/confirm
//
//	@Summary		Set a new password with a reset token
//	@Description	Reset tokens are single use.
//	@Tags			Password
//	@Accept			json
//	@Param			request	body	authsdk.PasswordResetConfirmRequest	true	"Token and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_or_expired_token"
//	@Failure		422	{object}	authsdk.ErrorResponse	"Validation failed"
//	@Router			/v1/auth/password-reset/confirm [post].
func (h *AuthHandler) HandlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordResetConfirmRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleVerifyEmail handles POST /v1/auth/verify-email
//
//	@Summary		Verify an email address
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	authsdk.VerifyEmailRequest	true	"Verification token"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_or_expired_token"
//	@Router			/v1/auth/verify-email [post].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyEmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResendVerification handles POST /v1/auth/verify-email/resend
//
//	@Summary		Resend the verification mail
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		202	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/verify-email/resend [post].
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.ResendVerification(r.Context(), httpx.UserIDFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, authsdk.MessageResponse{Message: "Verification mail queued."})
}
