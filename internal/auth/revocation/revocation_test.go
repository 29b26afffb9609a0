package revocation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// exercise runs the behaviour every Set must share.
func exercise(t *testing.T, set revocation.Set) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	revoked, err := set.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, set.Revoke(ctx, "jti-1", exp))
	require.ErrorIs(t, set.Revoke(ctx, "jti-1", exp), revocation.ErrAlreadyRevoked)

	revoked, err = set.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	t.Run("concurrent revoke has one winner", func(t *testing.T) {
		const workers = 10
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := set.Revoke(ctx, "jti-race", exp)
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				if err != revocation.ErrAlreadyRevoked {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})
}

func TestStoreSet(t *testing.T) {
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	exercise(t, revocation.NewStoreSet(s.RevokedTokens()))
}

func TestRedisSet(t *testing.T) {
	if testing.Short() {
		t.Skip("redis tests need docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	set, err := revocation.NewRedisSet(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = set.Close() })

	require.NoError(t, set.Ping(ctx))
	exercise(t, set)
}
