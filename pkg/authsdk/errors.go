package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/inkwell/pkg/httpx"
)

// Error codes returned in the "error" field of failed responses.
const (
	ErrorCodeInvalidRequest           = "invalid_request"
	ErrorCodeValidation               = "validation_error"
	ErrorCodeInvalidCredentials       = "invalid_credentials"
	ErrorCodeInvalidToken             = "invalid_token"
	ErrorCodeInvalidOrExpiredToken    = "invalid_or_expired_token"
	ErrorCodeIncorrectCurrentPassword = "incorrect_current_password"
	ErrorCodeAccountInactive          = "account_inactive"
	ErrorCodeMFARequired              = "mfa_required"
	ErrorCodeInvalidTOTPCode          = "invalid_totp_code"
	ErrorCodeMFANotEnabled            = "mfa_not_enabled"
	ErrorCodeMFANotEnrolled           = "mfa_not_enrolled"
	ErrorCodeMFAAlreadyEnabled        = "mfa_already_enabled"
	ErrorCodeDuplicateIdentity        = "duplicate_identity"
	ErrorCodeDuplicateEmail           = "duplicate_email"
	ErrorCodeDuplicateUsername        = "duplicate_username"
	ErrorCodeTelegramIDAlreadyLinked  = "telegram_id_already_linked"
	ErrorCodeIdentityAlreadyLinked    = "identity_already_linked"
	ErrorCodeLastLoginMethod          = "last_login_method"
	ErrorCodeUserNotFound             = "user_not_found"
	ErrorCodeInvalidRole              = "invalid_role"
	ErrorCodeInvalidStatus            = "invalid_status"
	ErrorCodeForbidden                = "forbidden"
	ErrorCodeUnsupportedProvider      = "unsupported_provider"
	ErrorCodeProviderNotConfigured    = "provider_not_configured"
	ErrorCodeInvalidIdentity          = "invalid_identity"
	ErrorCodeRateLimited              = "rate_limit_exceeded"
	ErrorCodeServerError              = "server_error"
)

// APIError is the body of every failed response. The server writes it with
// WriteError and the client decodes it back, so errors.Is works on both
// sides of the wire.
type APIError struct {
	// StatusCode is the HTTP status; it is not part of the body.
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`

	// Fields holds per-field problems for validation_error.
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on the error code alone.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WithFields returns a copy of e carrying field level details.
func (e *APIError) WithFields(fields map[string]string) *APIError {
	out := *e
	out.Fields = fields
	return &out
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

func newAPIError(status int, code, desc string) *APIError {
	return &APIError{StatusCode: status, Code: code, Description: desc}
}

var (
	ErrInvalidRequest = newAPIError(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"the request body is malformed")
	ErrValidation = newAPIError(http.StatusUnprocessableEntity, ErrorCodeValidation,
		"one or more fields are invalid")
	ErrInvalidCredentials = newAPIError(http.StatusUnauthorized, ErrorCodeInvalidCredentials,
		"invalid email, password or code")
	ErrInvalidToken = newAPIError(http.StatusUnauthorized, ErrorCodeInvalidToken,
		"the token is missing, invalid, expired or revoked")
	ErrInvalidOrExpiredToken = newAPIError(http.StatusBadRequest, ErrorCodeInvalidOrExpiredToken,
		"the link is invalid or has expired")
	ErrIncorrectCurrentPassword = newAPIError(http.StatusBadRequest, ErrorCodeIncorrectCurrentPassword,
		"the current password is incorrect")
	ErrAccountInactive = newAPIError(http.StatusForbidden, ErrorCodeAccountInactive,
		"the account is deactivated or banned")
	ErrMFARequired = newAPIError(http.StatusConflict, ErrorCodeMFARequired,
		"a one-time code is required to complete sign in")
	ErrInvalidTOTPCode = newAPIError(http.StatusBadRequest, ErrorCodeInvalidTOTPCode,
		"the one-time code is invalid")
	ErrMFANotEnabled = newAPIError(http.StatusBadRequest, ErrorCodeMFANotEnabled,
		"MFA is not enabled for this account")
	ErrMFANotEnrolled = newAPIError(http.StatusBadRequest, ErrorCodeMFANotEnrolled,
		"start TOTP enrollment first")
	ErrMFAAlreadyEnabled = newAPIError(http.StatusConflict, ErrorCodeMFAAlreadyEnabled,
		"MFA is already enabled for this account")
	ErrDuplicateIdentity = newAPIError(http.StatusConflict, ErrorCodeDuplicateIdentity,
		"an account with these details already exists")
	ErrDuplicateEmail = newAPIError(http.StatusConflict, ErrorCodeDuplicateEmail,
		"the email address is already registered")
	ErrDuplicateUsername = newAPIError(http.StatusConflict, ErrorCodeDuplicateUsername,
		"the username is already taken")
	ErrTelegramIDAlreadyLinked = newAPIError(http.StatusConflict, ErrorCodeTelegramIDAlreadyLinked,
		"the Telegram account is linked to another user")
	ErrIdentityAlreadyLinked = newAPIError(http.StatusConflict, ErrorCodeIdentityAlreadyLinked,
		"the external account is linked to another user")
	ErrLastLoginMethod = newAPIError(http.StatusConflict, ErrorCodeLastLoginMethod,
		"cannot remove the only remaining way to sign in")
	ErrUserNotFound = newAPIError(http.StatusNotFound, ErrorCodeUserNotFound,
		"user not found")
	ErrInvalidRole = newAPIError(http.StatusBadRequest, ErrorCodeInvalidRole,
		"unknown role")
	ErrInvalidStatus = newAPIError(http.StatusBadRequest, ErrorCodeInvalidStatus,
		"unknown status")
	ErrForbidden = newAPIError(http.StatusForbidden, ErrorCodeForbidden,
		"not allowed")
	ErrUnsupportedProvider = newAPIError(http.StatusNotFound, ErrorCodeUnsupportedProvider,
		"unknown identity provider")
	ErrProviderNotConfigured = newAPIError(http.StatusNotImplemented, ErrorCodeProviderNotConfigured,
		"the identity provider is not configured")
	ErrInvalidIdentity = newAPIError(http.StatusUnauthorized, ErrorCodeInvalidIdentity,
		"the identity provider assertion could not be verified")
	ErrServerError = newAPIError(http.StatusInternalServerError, ErrorCodeServerError,
		"internal server error")
)

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
