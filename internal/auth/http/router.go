package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/identity"
	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"

	_ "github.com/aussiebroadwan/inkwell/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	limits       httpx.RateLimitProfiles

	store       store.Store
	revocations revocation.Set
	keys        *jwtx.KeyRing

	AuthService *service.AuthService
	MFAService  *service.MFAService
	Google      *identity.Google
	Telegram    *identity.Telegram

	// SecureCookies marks the OAuth state cookie Secure.
	SecureCookies bool
}

func NewRouter(
	keys *jwtx.KeyRing,
	buildVersion string,
	st store.Store,
	revocations revocation.Set,
	limits httpx.RateLimitProfiles,
	hsts bool,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		limits:       limits,
		store:        st,
		revocations:  revocations,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(logger),
		httpx.SecurityHeaders(hsts),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOAuth()
	r.registerMFA()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Inkwell Authentication API
//	@version		0.1.0
//	@description	Accounts and sessions for the Inkwell blogging platform: registration, password,
//	@description	Google and Telegram sign in, email verification, TOTP second factor and
//	@description	moderation of user status and roles.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs. Send the access token as a bearer token.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/inkwell
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with bearer authentication and a per user limit.
func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig, extra ...httpx.Middleware) http.Handler {
	mws := append([]httpx.Middleware{httpx.AuthnMiddleware(r.AuthService)}, extra...)
	mws = append(mws, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, mws...)
}

func (r *Router) public(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByIP(limit))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	r.Mux.Handle("POST /v1/auth/register", r.public(h.HandleRegister, r.limits.Strict))

	// keyed by IP + email
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh", r.public(h.HandleRefresh, r.limits.Moderate))
	r.Mux.Handle("POST /v1/auth/logout", r.secured(h.HandleLogout, r.limits.Moderate))
	r.Mux.Handle("GET /v1/auth/me", r.secured(h.HandleMe, r.limits.Lenient))
	r.Mux.Handle("POST /v1/auth/change-password", r.secured(h.HandleChangePassword, r.limits.Strict))

	r.Mux.Handle("POST /v1/auth/password-reset", r.public(h.HandlePasswordReset, r.limits.Strict))
	r.Mux.Handle("POST /v1/auth/password-reset/confirm", r.public(h.HandlePasswordResetConfirm, r.limits.Strict))
	r.Mux.Handle("POST /v1/auth/verify-email", r.public(h.HandleVerifyEmail, r.limits.Moderate))
	r.Mux.Handle("POST /v1/auth/verify-email/resend", r.secured(h.HandleResendVerification, r.limits.Strict))
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{
		Auth:          r.AuthService,
		Google:        r.Google,
		Telegram:      r.Telegram,
		SecureCookies: r.SecureCookies,
	}

	r.Mux.Handle("GET /v1/auth/oauth/google/authorize", r.public(h.HandleGoogleAuthorize, r.limits.Lenient))
	r.Mux.Handle("POST /v1/auth/oauth/{provider}", r.public(h.HandleSignIn, r.limits.Strict))
	r.Mux.Handle("POST /v1/auth/oauth/{provider}/link", r.secured(h.HandleLink, r.limits.Moderate))
	r.Mux.Handle("POST /v1/auth/telegram/connect", r.secured(h.HandleTelegramConnect, r.limits.Moderate))
	r.Mux.Handle("DELETE /v1/auth/telegram", r.secured(h.HandleTelegramDisconnect, r.limits.Moderate))
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/auth/mfa/totp/enroll", r.secured(h.HandleEnroll, r.limits.Moderate))
	// strict: a six digit code is cheap to brute force
	r.Mux.Handle("POST /v1/auth/mfa/totp/verify", r.secured(h.HandleVerify, r.limits.Strict))
	r.Mux.Handle("POST /v1/auth/mfa/backup-codes", r.secured(h.HandleRegenerateBackupCodes, r.limits.Moderate))
	r.Mux.Handle("DELETE /v1/auth/mfa/totp", r.secured(h.HandleRemove, r.limits.Moderate))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Auth: r.AuthService}
	admin := httpx.RequireRole(string(domain.RoleAdmin))

	r.Mux.Handle("PUT /v1/admin/users/{id}/status", r.secured(h.HandleSetStatus, r.limits.Moderate, admin))
	r.Mux.Handle("PUT /v1/admin/users/{id}/role", r.secured(h.HandleSetRole, r.limits.Moderate, admin))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez", r.public(LivezHandler(r.startTime, r.buildVersion), r.limits.Lenient))
	r.Mux.Handle("GET /readyz",
		r.public(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.revocations, r.keys), r.limits.Lenient))
}
