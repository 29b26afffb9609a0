package jwtx_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewKeyRing(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ring, err := jwtx.NewKeyRing("k1", []byte(testSecret))
		require.NoError(t, err)

		kid, secret := ring.Active()
		require.Equal(t, "k1", kid)
		require.Equal(t, []byte(testSecret), secret)
	})

	t.Run("weak secret", func(t *testing.T) {
		_, err := jwtx.NewKeyRing("k1", []byte("short"))
		require.ErrorIs(t, err, jwtx.ErrWeakSecret)
	})

	t.Run("empty kid", func(t *testing.T) {
		_, err := jwtx.NewKeyRing("", []byte(testSecret))
		require.ErrorIs(t, err, jwtx.ErrInvalidKeys)
	})
}

func TestParseKeyRing(t *testing.T) {
	long := strings.Repeat("s", 32)

	tests := []struct {
		name    string
		spec    string
		active  string
		size    int
		wantErr error
	}{
		{"single", "v1:" + long, "v1", 1, nil},
		{"rotation", "v2:" + long + ", v1:" + strings.Repeat("t", 40), "v2", 2, nil},
		{"secret with colon", "v1:" + long + ":extra", "v1", 1, nil},
		{"empty", "", "", 0, jwtx.ErrInvalidKeys},
		{"missing colon", long, "", 0, jwtx.ErrInvalidKeys},
		{"weak", "v1:short", "", 0, jwtx.ErrWeakSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, err := jwtx.ParseKeyRing(tt.spec)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			kid, _ := ring.Active()
			require.Equal(t, tt.active, kid)
			require.Equal(t, tt.size, ring.Len())
		})
	}
}

func TestKeyRing_ActivateRemove(t *testing.T) {
	ring, err := jwtx.NewKeyRing("k1", []byte(testSecret))
	require.NoError(t, err)

	require.ErrorIs(t, ring.Activate("missing"), jwtx.ErrNoKey)
	require.Error(t, ring.Remove("k1"), "active key cannot be removed")
	require.ErrorIs(t, ring.Remove("missing"), jwtx.ErrNoKey)

	require.NoError(t, ring.Add("k2", []byte(strings.Repeat("2", 32))))
	require.NoError(t, ring.Activate("k2"))
	require.NoError(t, ring.Remove("k1"))

	_, err = ring.Get("k1")
	require.ErrorIs(t, err, jwtx.ErrNoKey)
	require.Equal(t, 1, ring.Len())
}
