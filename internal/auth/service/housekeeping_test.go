package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, "alice@example.com", "alice", testPassword)
	require.NoError(t, err)
	sess, err := h.auth.Login(ctx, "alice@example.com", testPassword, "")
	require.NoError(t, err)
	claims, ok := h.auth.Authenticate(ctx, sess.AccessToken)
	require.True(t, ok)
	require.NoError(t, h.auth.Logout(ctx, claims, sess.RefreshToken))

	hk := service.NewHousekeepingService(h.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Now = h.clock.Now

	require.Zero(t, hk.Cleanup(ctx), "nothing has expired yet")

	h.clock.Advance(jwtx.DefaultAccessTokenTTL + time.Second)
	require.EqualValues(t, 1, hk.Cleanup(ctx), "only the access token entry")

	h.clock.Advance(jwtx.DefaultRefreshTokenTTL)
	require.EqualValues(t, 1, hk.Cleanup(ctx))
}

func TestHousekeepingStartStop(t *testing.T) {
	h := newHarness(t)

	hk := service.NewHousekeepingService(h.store, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
	hk.Stop()
}
