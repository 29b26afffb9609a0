package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/aussiebroadwan/inkwell/pkg/httpx"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
)

// pinger is implemented by revocation sets backed by a remote service.
type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the revocation set and that a signing key is loaded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	revocations revocation.Set,
	ring *jwtx.KeyRing,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := &authsdk.HealthChecks{
			Database:    "ok",
			Revocations: "ok",
			Signer:      "ok",
		}
		status := "ok"
		code := http.StatusOK
		fail := func(field *string, msg string) {
			*field = "error: " + msg
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if err := st.Ping(ctx); err != nil {
			fail(&checks.Database, err.Error())
		}
		if p, ok := revocations.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				fail(&checks.Revocations, err.Error())
			}
		}
		if ring == nil || ring.Len() == 0 {
			fail(&checks.Signer, "no keys loaded")
		}

		httpx.NoCache(w)
		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
