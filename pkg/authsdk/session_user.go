package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the signed in user's account.
func (s *Session) Me(ctx context.Context) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var u User
	if err := decodeJSON(resp, &u, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return &u, nil
}

// Logout revokes the access and refresh tokens. The session is unusable
// afterwards.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout",
		LogoutRequest{RefreshToken: s.RefreshToken()})
	if err != nil {
		return err
	}
	if err := checkStatus(resp, http.StatusNoContent); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken = "", ""
	s.mu.Unlock()
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/change-password",
		ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// ResendVerification mails a fresh verification link if the address is
// still unverified.
func (s *Session) ResendVerification(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/verify-email/resend", nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

// LinkGoogle attaches a Google account, proven by an ID token, to the
// signed in user.
func (s *Session) LinkGoogle(ctx context.Context, idToken string) (*User, error) {
	return s.link(ctx, "google", GoogleAuthRequest{IDToken: idToken})
}

// LinkTelegram attaches a Telegram account through the generic link
// endpoint and returns the updated user.
func (s *Session) LinkTelegram(ctx context.Context, req TelegramAuthRequest) (*User, error) {
	return s.link(ctx, "telegram", req)
}

func (s *Session) link(ctx context.Context, provider string, body any) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/oauth/"+url.PathEscape(provider)+"/link", body)
	if err != nil {
		return nil, err
	}

	var u User
	if err := decodeJSON(resp, &u, http.StatusOK); err != nil {
		return nil, err
	}
	return &u, nil
}

// ConnectTelegram attaches a Telegram account to the signed in user.
func (s *Session) ConnectTelegram(ctx context.Context, req TelegramAuthRequest) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/telegram/connect", req)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// DisconnectTelegram detaches the Telegram account. It fails with
// ErrLastLoginMethod when Telegram is the only way to sign in.
func (s *Session) DisconnectTelegram(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/auth/telegram", nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}
