package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestPostgresRedisStack runs the session flow against PostgreSQL storage
// with revocations kept in Redis.
func TestPostgresRedisStack(t *testing.T) {
	client := authsdk.NewClient(setupNetworkedStack(t))
	ctx := t.Context()

	health, err := client.GetReadiness(ctx)
	assertHealthy(t, health, err)

	session := registerAndLogin(t, client, "pguser")

	_, err = client.Register(ctx, authsdk.RegisterRequest{
		Email: "pguser@example.com", Username: "pguser2", Password: testPassword,
	})
	require.ErrorIs(t, err, authsdk.ErrDuplicateEmail, "unique violations map through pgconn")

	refreshToken := session.RefreshToken()
	require.NoError(t, session.Logout(ctx))

	_, err = client.Refresh(ctx, refreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}
