package authsdk

import "time"

// ErrorResponse documents the error body for the API docs. Clients receive
// errors as *APIError.
type ErrorResponse struct {
	Error            string            `json:"error" example:"invalid_credentials"`
	ErrorDescription string            `json:"error_description" example:"invalid email, password or code"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// MessageResponse is returned by endpoints that only acknowledge a request.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Accounts
// ============================================================================

// RegisterRequest creates a password account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,public_email,max=254" example:"alice@example.com"`
	Username string `json:"username" validate:"required,username" example:"alice"`
	Password string `json:"password" validate:"required,password" example:"Sup3r$ecret"`
}

// User is the public view of an account. Secrets and hashes never leave
// the server.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	Role             string     `json:"role"`
	Status           string     `json:"status"`
	Verified         bool       `json:"is_verified"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	HasPassword      bool       `json:"has_password"`
	OAuthProvider    string     `json:"oauth_provider,omitempty"`
	TelegramLinked   bool       `json:"telegram_linked"`
	TelegramUsername string     `json:"telegram_username,omitempty"`
	MFAEnabled       bool       `json:"mfa_enabled"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ChangePasswordRequest replaces the password of the signed in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

// PasswordResetRequest asks for a reset link to be mailed.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest sets a new password using a mailed token.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

// VerifyEmailRequest confirms an address using a mailed token.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// ============================================================================
// Sessions
// ============================================================================

// LoginRequest signs in with email and password. OTP is required once the
// account has MFA enabled and may be a TOTP or backup code.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"alice@example.com"`
	Password string `json:"password" validate:"required" example:"Sup3r$ecret"`
	OTP      string `json:"otp,omitempty" validate:"omitempty,max=32"`
}

// TokenResponse is returned by every successful sign in.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"Bearer"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int  `json:"expires_in"`
	User      User `json:"user"`
}

// RefreshRequest trades a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AccessTokenResponse is the result of a refresh. The refresh token itself
// is not rotated.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in"`
}

// LogoutRequest optionally names the refresh token to revoke along with the
// access token used for the call.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ============================================================================
// External identities
// ============================================================================

// GoogleAuthRequest carries either an authorization code (with the state
// from the authorize redirect) or an ID token obtained by the frontend.
type GoogleAuthRequest struct {
	Code    string `json:"code,omitempty" validate:"required_without=IDToken"`
	State   string `json:"state,omitempty" validate:"required_with=Code"`
	IDToken string `json:"id_token,omitempty" validate:"required_without=Code"`
	OTP     string `json:"otp,omitempty" validate:"omitempty,max=32"`
}

// TelegramAuthRequest is the Telegram login widget payload.
type TelegramAuthRequest struct {
	ID        int64  `json:"id" validate:"required"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date" validate:"required"`
	Hash      string `json:"hash" validate:"required,hexadecimal"`
	OTP       string `json:"otp,omitempty" validate:"omitempty,max=32"`
}

// ============================================================================
// MFA
// ============================================================================

// TOTPEnrollResponse is shown once when enrollment starts.
type TOTPEnrollResponse struct {
	Secret  string `json:"secret"`
	URL     string `json:"otpauth_url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// CodeRequest carries a TOTP or backup code.
type CodeRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// BackupCodesResponse lists freshly generated backup codes. They are shown
// once and stored only as fingerprints.
type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

// ============================================================================
// Administration
// ============================================================================

// SetStatusRequest moves a user between active, deactivated and banned.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active deactivated banned"`
}

// SetRoleRequest changes a user's role.
type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user moderator admin"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency on /readyz.
type HealthChecks struct {
	Database    string `json:"database"`
	Revocations string `json:"revocations"`
	Signer      string `json:"signer"`
}
