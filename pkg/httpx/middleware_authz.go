package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireRole allows the request only when the access token's role is one
// of roles. Must be mounted behind AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !slices.Contains(roles, claims.Role) {
				w.Header().Set("WWW-Authenticate",
					`Bearer error="insufficient_scope", error_description="requires role `+strings.Join(roles, " or ")+`"`)
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "forbidden",
					"error_description": "insufficient role",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
