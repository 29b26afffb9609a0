package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/identity"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
)

const (
	stateCookie = "inkwell_oauth_state"
	stateTTL    = 10 * time.Minute
)

// OAuthHandler serves sign in and account linking through Google and
// Telegram.
type OAuthHandler struct {
	Auth     *service.AuthService
	Google   *identity.Google
	Telegram *identity.Telegram

	// SecureCookies marks the state cookie Secure. Off only for plain
	// HTTP development setups.
	SecureCookies bool
}

// HandleGoogleAuthorize handles GET /v1/auth/oauth/google/authorize
//
//	@Summary		Start Google sign in
//	@Description	Redirects to Google's consent screen. The state is kept in a short lived cookie
//	@Description	and must come back with the code on POST /v1/auth/oauth/google.
//	@Tags			OAuth
//	@Success		302
//	@Failure		501	{object}	authsdk.ErrorResponse	"provider_not_configured"
//	@Router			/v1/auth/oauth/google/authorize [get].
func (h *OAuthHandler) HandleGoogleAuthorize(w http.ResponseWriter, r *http.Request) {
	state, err := cryptox.GenerateToken(24)
	if err != nil {
		writeError(w, r, err)
		return
	}
	target, err := h.Google.AuthCodeURL(state)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/v1/auth/oauth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.NoCache(w)
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleSignIn handles POST /v1/auth/oauth/{provider}
//
//	@Summary		Sign in with an external provider
//	@Description	provider is google or telegram. An unknown identity creates a new account;
//	@Description	a verified Google email matching an account signs into it.
//	@Description	For telegram the body is authsdk.TelegramAuthRequest.
//	@Tags			OAuth
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string						true	"google or telegram"
//	@Param			request		body		authsdk.GoogleAuthRequest	false	"Google payload (see description for telegram)"
//	@Success		200			{object}	authsdk.TokenResponse
//	@Failure		401			{object}	authsdk.ErrorResponse	"invalid_identity"
//	@Failure		404			{object}	authsdk.ErrorResponse	"unsupported_provider"
//	@Failure		409			{object}	authsdk.ErrorResponse	"mfa_required or duplicate_email"
//	@Failure		501			{object}	authsdk.ErrorResponse	"provider_not_configured"
//	@Router			/v1/auth/oauth/{provider} [post].
func (h *OAuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	id, otp, err := h.identity(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.Auth.LoginWithIdentity(r.Context(), id, otp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(sess))
}

// HandleLink handles POST /v1/auth/oauth/{provider}/link
//
//	@Summary		Link an external identity to the signed in account
//	@Description	For telegram the body is authsdk.TelegramAuthRequest.
//	@Tags			OAuth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string						true	"google or telegram"
//	@Param			request		body		authsdk.GoogleAuthRequest	false	"Google payload (see description for telegram)"
//	@Success		200			{object}	authsdk.User
//	@Failure		409			{object}	authsdk.ErrorResponse	"identity_already_linked"
//	@Router			/v1/auth/oauth/{provider}/link [post].
func (h *OAuthHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	id, _, err := h.identity(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.Auth.LinkOAuth(r.Context(), httpx.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(u))
}

// HandleTelegramConnect handles POST /v1/auth/telegram/connect
//
//	@Summary		Connect a Telegram account
//	@Tags			OAuth
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.TelegramAuthRequest	true	"Telegram login widget payload"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_identity"
//	@Failure		409	{object}	authsdk.ErrorResponse	"telegram_id_already_linked"
//	@Router			/v1/auth/telegram/connect [post].
func (h *OAuthHandler) HandleTelegramConnect(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TelegramAuthRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tg, err := h.Telegram.Verify(toTelegramLogin(req))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.LinkTelegram(r.Context(), httpx.UserIDFromContext(r.Context()), tg); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTelegramDisconnect handles DELETE /v1/auth/telegram
//
//	@Summary		Disconnect Telegram
//	@Description	Refused when Telegram is the only remaining way to sign in.
//	@Tags			OAuth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		409	{object}	authsdk.ErrorResponse	"last_login_method"
//	@Router			/v1/auth/telegram [delete].
func (h *OAuthHandler) HandleTelegramDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.UnlinkTelegram(r.Context(), httpx.UserIDFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// identity decodes and verifies the provider payload of the request. The
// second factor code is returned alongside for sign in.
func (h *OAuthHandler) identity(w http.ResponseWriter, r *http.Request) (domain.ExternalIdentity, string, error) {
	switch r.PathValue("provider") {
	case domain.ProviderGoogle:
		var req authsdk.GoogleAuthRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			return nil, "", err
		}
		g, err := h.google(r, req)
		if err != nil {
			return nil, "", err
		}
		return g, req.OTP, nil

	case domain.ProviderTelegram:
		var req authsdk.TelegramAuthRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			return nil, "", err
		}
		tg, err := h.Telegram.Verify(toTelegramLogin(req))
		if err != nil {
			return nil, "", err
		}
		return tg, req.OTP, nil

	default:
		return nil, "", errUnsupportedProvider
	}
}

func (h *OAuthHandler) google(r *http.Request, req authsdk.GoogleAuthRequest) (domain.GoogleIdentity, error) {
	ctx := r.Context()
	if req.Code == "" {
		return h.Google.FromIDToken(ctx, req.IDToken)
	}

	c, err := r.Cookie(stateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(c.Value), []byte(req.State)) != 1 {
		slogx.FromContext(ctx).Warn("oauth state mismatch")
		return domain.GoogleIdentity{}, identity.ErrInvalidIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return h.Google.Exchange(ctx, req.Code)
}
