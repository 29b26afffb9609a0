package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/inkwell/internal/auth/identity"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
	"github.com/aussiebroadwan/inkwell/pkg/validx"
)

var errUnsupportedProvider = errors.New("unsupported provider")

// errorMap translates service and boundary errors into API errors. Order
// matters: specific duplicates come before their parent.
var errorMap = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrDuplicateEmail, authsdk.ErrDuplicateEmail},
	{service.ErrDuplicateUsername, authsdk.ErrDuplicateUsername},
	{service.ErrTelegramIDAlreadyLinked, authsdk.ErrTelegramIDAlreadyLinked},
	{service.ErrIdentityAlreadyLinked, authsdk.ErrIdentityAlreadyLinked},
	{service.ErrDuplicateIdentity, authsdk.ErrDuplicateIdentity},
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrInvalidToken, authsdk.ErrInvalidToken},
	{service.ErrInvalidOrExpiredToken, authsdk.ErrInvalidOrExpiredToken},
	{service.ErrIncorrectCurrentPassword, authsdk.ErrIncorrectCurrentPassword},
	{service.ErrAccountInactive, authsdk.ErrAccountInactive},
	{service.ErrMFARequired, authsdk.ErrMFARequired},
	{service.ErrInvalidTOTPCode, authsdk.ErrInvalidTOTPCode},
	{service.ErrMFANotEnabled, authsdk.ErrMFANotEnabled},
	{service.ErrMFANotEnrolled, authsdk.ErrMFANotEnrolled},
	{service.ErrMFAAlreadyEnabled, authsdk.ErrMFAAlreadyEnabled},
	{service.ErrLastLoginMethod, authsdk.ErrLastLoginMethod},
	{service.ErrUserNotFound, authsdk.ErrUserNotFound},
	{service.ErrInvalidRole, authsdk.ErrInvalidRole},
	{service.ErrInvalidStatus, authsdk.ErrInvalidStatus},
	{service.ErrForbidden, authsdk.ErrForbidden},
	{errUnsupportedProvider, authsdk.ErrUnsupportedProvider},
	{identity.ErrProviderNotConfigured, authsdk.ErrProviderNotConfigured},
	{identity.ErrInvalidIdentity, authsdk.ErrInvalidIdentity},
	{httpx.ErrBadRequestBody, authsdk.ErrInvalidRequest},
}

// apiError maps err onto the wire error. Unknown errors become
// server_error.
func apiError(err error) *authsdk.APIError {
	var verrs validx.Errors
	if errors.As(err, &verrs) {
		return authsdk.ErrValidation.WithFields(verrs)
	}
	for _, m := range errorMap {
		if errors.Is(err, m.err) {
			return m.api
		}
	}
	return authsdk.ErrServerError
}

// writeError logs and writes err. Client mistakes are logged at debug,
// everything unexpected at error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	api := apiError(err)

	log := slogx.FromContext(r.Context())
	if api.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", "code", api.Code, slogx.Err(err))
	} else {
		log.Debug("request rejected", "code", api.Code, slogx.Err(err))
	}
	api.WriteError(w)
}
