package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client talks to the public endpoints of the auth service and creates
// Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a password account. The account starts unverified and a
// verification mail is sent.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", req)
	if err != nil {
		return nil, err
	}

	var u User
	if err := decodeJSON(resp, &u, http.StatusCreated); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login signs in with email and password. When the account has MFA the
// first attempt without otp fails with ErrMFARequired.
func (c *Client) Login(ctx context.Context, email, password, otp string) (*Session, error) {
	return c.signIn(ctx, "/v1/auth/login", LoginRequest{Email: email, Password: password, OTP: otp})
}

// LoginWithGoogle signs in (or up) with a Google ID token obtained by the
// frontend.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken, otp string) (*Session, error) {
	return c.signIn(ctx, "/v1/auth/oauth/google", GoogleAuthRequest{IDToken: idToken, OTP: otp})
}

// LoginWithTelegram signs in (or up) with a Telegram login widget payload.
func (c *Client) LoginWithTelegram(ctx context.Context, req TelegramAuthRequest) (*Session, error) {
	return c.signIn(ctx, "/v1/auth/oauth/telegram", req)
}

func (c *Client) signIn(ctx context.Context, path string, body any) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &tokens), nil
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AccessTokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var out AccessTokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPasswordReset asks for a reset link. It succeeds whether or not
// the address is registered.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password-reset", PasswordResetRequest{Email: email})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

// ConfirmPasswordReset sets a new password with a mailed token. Tokens are
// single use.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password-reset/confirm",
		PasswordResetConfirmRequest{Token: token, NewPassword: newPassword})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// VerifyEmail confirms an address with a mailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/verify-email", VerifyEmailRequest{Token: token})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// NewSessionFromTokens resumes a session from stored tokens. The access
// token is refreshed on first use.
func (c *Client) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}
