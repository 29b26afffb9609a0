package cryptox_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *cryptox.PasswordHasher {
	t.Helper()
	h, err := cryptox.NewPasswordHasher(bcrypt.MinCost, []byte("test-pepper"))
	require.NoError(t, err)
	return h
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"longer than bcrypt limit", strings.Repeat("a", 200)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$2a$"), "hash should be bcrypt encoded")
			require.True(t, h.Verify(tt.password, hash))
		})
	}
}

func TestPasswordHasher_WrongPassword(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{"wrong-password", "Correct-Password", "correct-password ", "", "correct-passwor"} {
		t.Run(wrong, func(t *testing.T) {
			require.False(t, h.Verify(wrong, hash))
		})
	}
}

func TestPasswordHasher_LongPasswordsDoNotCollide(t *testing.T) {
	h := newTestHasher(t)

	// Plain bcrypt would truncate both to the same 72 bytes.
	prefix := strings.Repeat("x", 80)
	hash, err := h.Hash(prefix + "-one")
	require.NoError(t, err)
	require.False(t, h.Verify(prefix+"-two", hash))
}

func TestPasswordHasher_UniqueSalts(t *testing.T) {
	h := newTestHasher(t)

	hash1, err := h.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := h.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	require.True(t, h.Verify("samepassword", hash1))
	require.True(t, h.Verify("samepassword", hash2))
}

func TestPasswordHasher_PepperMatters(t *testing.T) {
	a, err := cryptox.NewPasswordHasher(bcrypt.MinCost, []byte("pepper-a"))
	require.NoError(t, err)
	b, err := cryptox.NewPasswordHasher(bcrypt.MinCost, []byte("pepper-b"))
	require.NoError(t, err)

	hash, err := a.Hash("secret")
	require.NoError(t, err)
	require.False(t, b.Verify("secret", hash))
}

func TestPasswordHasher_InvalidHash(t *testing.T) {
	h := newTestHasher(t)

	for _, bad := range []string{"", "not-a-hash", "$2a$04$short"} {
		t.Run(bad, func(t *testing.T) {
			require.False(t, h.Verify("password", bad))
		})
	}
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	t.Run("zero selects default", func(t *testing.T) {
		h, err := cryptox.NewPasswordHasher(0, nil)
		require.NoError(t, err)
		require.Equal(t, cryptox.DefaultBcryptCost, h.Cost())
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := cryptox.NewPasswordHasher(99, nil)
		require.ErrorIs(t, err, cryptox.ErrInvalidCost)
	})
}

func TestPasswordHasher_NeedsRehash(t *testing.T) {
	low := newTestHasher(t)
	hash, err := low.Hash("password")
	require.NoError(t, err)

	high, err := cryptox.NewPasswordHasher(bcrypt.MinCost+1, []byte("test-pepper"))
	require.NoError(t, err)

	require.False(t, low.NeedsRehash(hash))
	require.True(t, high.NeedsRehash(hash))
	require.True(t, high.NeedsRehash("garbage"))
}

func TestPasswordHasher_VerifyDummy(t *testing.T) {
	h := newTestHasher(t)
	require.NotPanics(t, func() { h.VerifyDummy("anything") })
}
