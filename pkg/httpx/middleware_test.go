package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/aussiebroadwan/inkwell/pkg/validx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator map[string]jwtx.Claims

func (s stubAuthenticator) Authenticate(_ context.Context, raw string) (jwtx.Claims, bool) {
	c, ok := s[raw]
	return c, ok
}

func claimsFor(sub, role string) jwtx.Claims {
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		Purpose:          jwtx.PurposeAccess,
		Role:             role,
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.SecurityHeaders(true)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	require.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")

	rec = httptest.NewRecorder()
	httpx.SecurityHeaders(false)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestAuthnMiddleware(t *testing.T) {
	auth := stubAuthenticator{"good": claimsFor("user-1", "user")}

	var gotUser string
	h := httpx.AuthnMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = httpx.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
				require.Empty(t, gotUser)
			} else {
				require.Equal(t, "user-1", gotUser)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := httpx.RequireRole("admin")(okHandler)

	serve := func(ctx context.Context) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		return rec.Code
	}

	require.Equal(t, http.StatusOK, serve(httpx.ContextWithClaims(context.Background(), claimsFor("u", "admin"))))
	require.Equal(t, http.StatusForbidden, serve(httpx.ContextWithClaims(context.Background(), claimsFor("u", "user"))))
	require.Equal(t, http.StatusForbidden, serve(context.Background()))
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string) (loginBody, error) {
		var dst loginBody
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := httpx.DecodeJSON(httptest.NewRecorder(), req, &dst)
		return dst, err
	}

	t.Run("valid", func(t *testing.T) {
		got, err := decode(`{"email":"a@x.com","password":"pw"}`)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", got.Email)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := decode(`{"email":`)
		require.ErrorIs(t, err, httpx.ErrBadRequestBody)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := decode(`{"email":"a@x.com","password":"pw","admin":true}`)
		require.ErrorIs(t, err, httpx.ErrBadRequestBody)
	})

	t.Run("trailing data", func(t *testing.T) {
		_, err := decode(`{"email":"a@x.com","password":"pw"} {}`)
		require.ErrorIs(t, err, httpx.ErrBadRequestBody)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := decode(`{"email":"nope"}`)
		var verrs validx.Errors
		require.ErrorAs(t, err, &verrs)
		require.Contains(t, verrs, "email")
		require.Contains(t, verrs, "password")
	})
}
