package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/inkwell/internal/auth/http"
	"github.com/aussiebroadwan/inkwell/internal/auth/identity"
	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/sqldb"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
)

const testPassword = "Sup3r$ecret"

type testServer struct {
	router *authhttp.Router
	store  *sqldb.Store
}

func generous() httpx.RateLimitProfiles {
	l := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	return httpx.RateLimitProfiles{Strict: l, Moderate: l, Lenient: l}
}

func newTestServer(t *testing.T, limits httpx.RateLimitProfiles) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	ring, err := jwtx.NewKeyRing("k1", []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	tokens, err := jwtx.NewTokens(ring, jwtx.TokenConfig{Issuer: "inkwell-test"})
	require.NoError(t, err)
	hasher, err := cryptox.NewPasswordHasher(bcrypt.MinCost, nil)
	require.NoError(t, err)
	sealer, err := cryptox.NewSealer([]byte("test master key"))
	require.NoError(t, err)

	revs := revocation.NewStoreSet(st.RevokedTokens())
	mfa := &service.MFAService{Store: st, Sealer: sealer, Issuer: "Inkwell"}
	auth := &service.AuthService{
		Store:       st,
		Tokens:      tokens,
		Hasher:      hasher,
		Revocations: revs,
		MFA:         mfa,
	}

	google := identity.NewGoogle("client-id", "secret", "http://localhost/cb").WithValidator(
		func(_ context.Context, raw, audience string) (*idtoken.Payload, error) {
			return &idtoken.Payload{
				Subject: "google-" + raw,
				Claims: map[string]any{
					"email":          raw + "@gmail.com",
					"email_verified": true,
					"given_name":     "Gina",
				},
			}, nil
		})

	logger := slogx.New(slogx.Config{Service: "auth-test", Level: "error", Output: io.Discard})
	r := authhttp.NewRouter(ring, "test", st, revs, limits, false, logger)
	r.AuthService = auth
	r.MFAService = mfa
	r.Google = google
	r.Telegram = identity.NewTelegram("")
	r.ApplyRoutes()

	return &testServer{router: r, store: st}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) authsdk.ErrorResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[authsdk.ErrorResponse](t, rec)
	require.Equal(t, code, body.Error)
	return body
}

func (s *testServer) register(t *testing.T, email, username string) authsdk.User {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{
		Email: email, Username: username, Password: testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authsdk.User](t, rec)
}

func (s *testServer) login(t *testing.T, email string) authsdk.TokenResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.TokenResponse](t, rec)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, generous())

	u := s.register(t, "Alice@Example.com", "Alice")
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "user", u.Role)
	require.True(t, u.HasPassword)
	require.False(t, u.Verified)

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{
		Email: "other@example.com", Username: "ALICE", Password: testPassword,
	})
	requireError(t, rec, http.StatusConflict, "duplicate_username")

	tok := s.login(t, "alice@example.com")
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, int((8 * 24 * time.Hour).Seconds()), tok.ExpiresIn)
	require.Equal(t, u.ID, tok.User.ID)
	require.NotNil(t, tok.User.LastLoginAt)

	rec = s.do(t, http.MethodGet, "/v1/auth/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "alice", decode[authsdk.User](t, rec).Username)

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authsdk.RefreshRequest{RefreshToken: tok.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decode[authsdk.AccessTokenResponse](t, rec)
	require.NotEmpty(t, fresh.AccessToken)

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authsdk.RefreshRequest{RefreshToken: tok.AccessToken})
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", tok.AccessToken, authsdk.LogoutRequest{RefreshToken: tok.RefreshToken})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/auth/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authsdk.RefreshRequest{RefreshToken: tok.RefreshToken})
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	// the access token minted by refresh is independent of the revoked one
	rec = s.do(t, http.MethodGet, "/v1/auth/me", fresh.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, generous())

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{
		Email: "not-an-email", Username: "a", Password: "short",
	})
	body := requireError(t, rec, http.StatusUnprocessableEntity, "validation_error")
	require.Contains(t, body.Fields, "email")
	require.Contains(t, body.Fields, "username")
	require.Contains(t, body.Fields, "password")

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{
		Email: "telegram_1@telegram.local", Username: "squatter", Password: "Str0ng!pass",
	})
	body = requireError(t, rec, http.StatusUnprocessableEntity, "validation_error")
	require.Equal(t, "must not use a reserved domain", body.Fields["email"])

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	requireError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	requireError(t, rec, http.StatusUnauthorized, "invalid_credentials")

	rec = s.do(t, http.MethodGet, "/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordEndpoints(t *testing.T) {
	s := newTestServer(t, generous())
	s.register(t, "alice@example.com", "alice")

	known := s.do(t, http.MethodPost, "/v1/auth/password-reset", "", authsdk.PasswordResetRequest{Email: "alice@example.com"})
	unknown := s.do(t, http.MethodPost, "/v1/auth/password-reset", "", authsdk.PasswordResetRequest{Email: "ghost@example.com"})
	require.Equal(t, http.StatusAccepted, known.Code)
	require.Equal(t, http.StatusAccepted, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())

	rec := s.do(t, http.MethodPost, "/v1/auth/password-reset/confirm", "", authsdk.PasswordResetConfirmRequest{
		Token: "garbage", NewPassword: "N3w&Better!",
	})
	requireError(t, rec, http.StatusBadRequest, "invalid_or_expired_token")

	tok := s.login(t, "alice@example.com")
	rec = s.do(t, http.MethodPost, "/v1/auth/change-password", tok.AccessToken, authsdk.ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "N3w&Better!",
	})
	requireError(t, rec, http.StatusBadRequest, "incorrect_current_password")

	rec = s.do(t, http.MethodPost, "/v1/auth/change-password", tok.AccessToken, authsdk.ChangePasswordRequest{
		CurrentPassword: testPassword, NewPassword: "N3w&Better!",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: "N3w&Better!"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/verify-email", "", authsdk.VerifyEmailRequest{Token: "garbage"})
	requireError(t, rec, http.StatusBadRequest, "invalid_or_expired_token")

	rec = s.do(t, http.MethodPost, "/v1/auth/verify-email/resend", tok.AccessToken, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMFAEndpoints(t *testing.T) {
	s := newTestServer(t, generous())
	s.register(t, "alice@example.com", "alice")
	tok := s.login(t, "alice@example.com")

	rec := s.do(t, http.MethodPost, "/v1/auth/mfa/totp/verify", tok.AccessToken, authsdk.CodeRequest{Code: "123456"})
	requireError(t, rec, http.StatusBadRequest, "mfa_not_enrolled")

	rec = s.do(t, http.MethodPost, "/v1/auth/mfa/totp/enroll", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	enroll := decode[authsdk.TOTPEnrollResponse](t, rec)
	require.True(t, strings.HasPrefix(enroll.URL, "otpauth://totp/"))

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/v1/auth/mfa/totp/verify", tok.AccessToken, authsdk.CodeRequest{Code: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	codes := decode[authsdk.BackupCodesResponse](t, rec).Codes
	require.Len(t, codes, 10)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
	requireError(t, rec, http.StatusConflict, "mfa_required")

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{
		Email: "alice@example.com", Password: testPassword, OTP: codes[0],
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[authsdk.TokenResponse](t, rec).User.MFAEnabled)

	rec = s.do(t, http.MethodDelete, "/v1/auth/mfa/totp", tok.AccessToken, authsdk.CodeRequest{Code: codes[0]})
	requireError(t, rec, http.StatusBadRequest, "invalid_totp_code")

	rec = s.do(t, http.MethodDelete, "/v1/auth/mfa/totp", tok.AccessToken, authsdk.CodeRequest{Code: codes[1]})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	s.login(t, "alice@example.com")
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t, generous())
	ctx := context.Background()

	admin := s.register(t, "admin@example.com", "admin")
	require.NoError(t, s.store.Users().UpdateRole(ctx, admin.ID, domain.RoleAdmin, time.Now()))
	alice := s.register(t, "alice@example.com", "alice")

	adminTok := s.login(t, "admin@example.com")
	aliceTok := s.login(t, "alice@example.com")

	rec := s.do(t, http.MethodPut, "/v1/admin/users/"+admin.ID+"/status", aliceTok.AccessToken,
		authsdk.SetStatusRequest{Status: "banned"})
	requireError(t, rec, http.StatusForbidden, "forbidden")

	rec = s.do(t, http.MethodPut, "/v1/admin/users/"+alice.ID+"/status", adminTok.AccessToken,
		authsdk.SetStatusRequest{Status: "frozen"})
	requireError(t, rec, http.StatusUnprocessableEntity, "validation_error")

	rec = s.do(t, http.MethodPut, "/v1/admin/users/"+admin.ID+"/role", adminTok.AccessToken,
		authsdk.SetRoleRequest{Role: "user"})
	requireError(t, rec, http.StatusForbidden, "forbidden")

	rec = s.do(t, http.MethodPut, "/v1/admin/users/missing/role", adminTok.AccessToken,
		authsdk.SetRoleRequest{Role: "moderator"})
	requireError(t, rec, http.StatusNotFound, "user_not_found")

	rec = s.do(t, http.MethodPut, "/v1/admin/users/"+alice.ID+"/role", adminTok.AccessToken,
		authsdk.SetRoleRequest{Role: "moderator"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/v1/admin/users/"+alice.ID+"/status", adminTok.AccessToken,
		authsdk.SetStatusRequest{Status: "banned"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/auth/me", aliceTok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "banned", decode[authsdk.User](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authsdk.RefreshRequest{RefreshToken: aliceTok.RefreshToken})
	requireError(t, rec, http.StatusForbidden, "account_inactive")

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
	requireError(t, rec, http.StatusUnauthorized, "invalid_credentials")
}

func TestOAuthEndpoints(t *testing.T) {
	s := newTestServer(t, generous())

	rec := s.do(t, http.MethodPost, "/v1/auth/oauth/github", "", authsdk.GoogleAuthRequest{IDToken: "x"})
	requireError(t, rec, http.StatusNotFound, "unsupported_provider")

	rec = s.do(t, http.MethodPost, "/v1/auth/oauth/google", "", authsdk.GoogleAuthRequest{IDToken: "gina"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[authsdk.TokenResponse](t, rec)
	require.Equal(t, "gina", tok.User.Username)
	require.Equal(t, "google", tok.User.OAuthProvider)
	require.True(t, tok.User.Verified)
	require.False(t, tok.User.HasPassword)

	// second sign in reuses the account
	rec = s.do(t, http.MethodPost, "/v1/auth/oauth/google", "", authsdk.GoogleAuthRequest{IDToken: "gina"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, tok.User.ID, decode[authsdk.TokenResponse](t, rec).User.ID)

	rec = s.do(t, http.MethodPost, "/v1/auth/oauth/google", "", authsdk.GoogleAuthRequest{Code: "c", State: "forged"})
	requireError(t, rec, http.StatusUnauthorized, "invalid_identity")

	rec = s.do(t, http.MethodPost, "/v1/auth/oauth/telegram", "", authsdk.TelegramAuthRequest{
		ID: 42, AuthDate: time.Now().Unix(), Hash: "abcdef",
	})
	requireError(t, rec, http.StatusNotImplemented, "provider_not_configured")

	rec = s.do(t, http.MethodDelete, "/v1/auth/telegram", tok.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, "unlinking nothing is a no-op")

	s.register(t, "alice@example.com", "alice")
	alice := s.login(t, "alice@example.com")
	rec = s.do(t, http.MethodPost, "/v1/auth/oauth/google/link", alice.AccessToken, authsdk.GoogleAuthRequest{IDToken: "gina"})
	requireError(t, rec, http.StatusConflict, "identity_already_linked")

	rec = s.do(t, http.MethodPost, "/v1/auth/oauth/google/link", alice.AccessToken, authsdk.GoogleAuthRequest{IDToken: "alice2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "google", decode[authsdk.User](t, rec).OAuthProvider)
}

func TestGoogleAuthorizeRedirect(t *testing.T) {
	s := newTestServer(t, generous())

	rec := s.do(t, http.MethodGet, "/v1/auth/oauth/google/authorize", "", nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://accounts.google.com/"))

	resp := http.Response{Header: rec.Header()}
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "inkwell_oauth_state", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Contains(t, rec.Header().Get("Location"), "state="+cookies[0].Value)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, generous())

	rec := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", decode[authsdk.HealthResponse](t, rec).Version)

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	health := decode[authsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, &authsdk.HealthChecks{Database: "ok", Revocations: "ok", Signer: "ok"}, health.Checks)

	require.NoError(t, s.store.Close())
	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", decode[authsdk.HealthResponse](t, rec).Status)
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, httpx.DefaultRateLimitProfiles())

	for range 5 {
		rec := s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: "nope"})
		requireError(t, rec, http.StatusUnauthorized, "invalid_credentials")
	}
	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: "nope"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// a different address has its own bucket
	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "bob@example.com", Password: "nope"})
	requireError(t, rec, http.StatusUnauthorized, "invalid_credentials")
}
