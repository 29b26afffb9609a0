package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTokens(t *testing.T) *jwtx.Tokens {
	t.Helper()
	ring, err := jwtx.NewKeyRing("k1", []byte(testSecret))
	require.NoError(t, err)
	tokens, err := jwtx.NewTokens(ring, jwtx.TokenConfig{Issuer: "inkwell"})
	require.NoError(t, err)
	return tokens
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := newTestTokens(t)

	access, err := tokens.IssueAccess("user-1", t0, jwtx.WithRole("admin"), jwtx.WithUsername("alice"))
	require.NoError(t, err)

	require.Equal(t, "user-1", tokens.Verify(access, jwtx.PurposeAccess, t0))

	claims, ok := tokens.Inspect(access, jwtx.PurposeAccess, t0)
	require.True(t, ok)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "inkwell", claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, t0.Add(jwtx.DefaultAccessTokenTTL), claims.ExpiresAtTime())
}

func TestTokens_PurposeMismatch(t *testing.T) {
	tokens := newTestTokens(t)

	access, err := tokens.IssueAccess("user-1", t0)
	require.NoError(t, err)
	refresh, err := tokens.IssueRefresh("user-1", t0)
	require.NoError(t, err)
	reset, err := tokens.IssuePasswordReset("a@x.com", t0)
	require.NoError(t, err)
	verify, err := tokens.IssueEmailVerification("a@x.com", t0)
	require.NoError(t, err)

	issued := map[jwtx.Purpose]string{
		jwtx.PurposeAccess:            access,
		jwtx.PurposeRefresh:           refresh,
		jwtx.PurposePasswordReset:     reset,
		jwtx.PurposeEmailVerification: verify,
	}

	for issuedAs, raw := range issued {
		for _, want := range []jwtx.Purpose{
			jwtx.PurposeAccess, jwtx.PurposeRefresh,
			jwtx.PurposePasswordReset, jwtx.PurposeEmailVerification,
		} {
			t.Run(string(issuedAs)+"_as_"+string(want), func(t *testing.T) {
				got := tokens.Verify(raw, want, t0)
				if issuedAs == want {
					require.NotEmpty(t, got)
				} else {
					require.Empty(t, got)
				}
			})
		}
	}

	require.Empty(t, tokens.Verify(access, jwtx.Purpose("bogus"), t0))
}

func TestTokens_ExpiryBoundary(t *testing.T) {
	tokens := newTestTokens(t)

	tests := []struct {
		purpose jwtx.Purpose
		ttl     time.Duration
		issue   func() (string, error)
	}{
		{jwtx.PurposeAccess, 8 * 24 * time.Hour, func() (string, error) { return tokens.IssueAccess("u", t0) }},
		{jwtx.PurposeRefresh, 30 * 24 * time.Hour, func() (string, error) { return tokens.IssueRefresh("u", t0) }},
		{jwtx.PurposePasswordReset, 24 * time.Hour, func() (string, error) { return tokens.IssuePasswordReset("u@x.com", t0) }},
		{jwtx.PurposeEmailVerification, 48 * time.Hour, func() (string, error) { return tokens.IssueEmailVerification("u@x.com", t0) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.purpose), func(t *testing.T) {
			raw, err := tt.issue()
			require.NoError(t, err)

			require.NotEmpty(t, tokens.Verify(raw, tt.purpose, t0.Add(tt.ttl-time.Second)))
			require.Empty(t, tokens.Verify(raw, tt.purpose, t0.Add(tt.ttl)))
			require.Empty(t, tokens.Verify(raw, tt.purpose, t0.Add(tt.ttl+time.Second)))

			_, err = tokens.Explain(raw, tt.purpose, t0.Add(tt.ttl+time.Second))
			require.ErrorIs(t, err, jwtx.ErrExpired)
		})
	}
}

func TestTokens_NotBefore(t *testing.T) {
	tokens := newTestTokens(t)

	reset, err := tokens.IssuePasswordReset("a@x.com", t0)
	require.NoError(t, err)

	require.Empty(t, tokens.Verify(reset, jwtx.PurposePasswordReset, t0.Add(-time.Second)))
	_, err = tokens.Explain(reset, jwtx.PurposePasswordReset, t0.Add(-time.Second))
	require.ErrorIs(t, err, jwtx.ErrNotYetValid)

	require.Equal(t, "a@x.com", tokens.Verify(reset, jwtx.PurposePasswordReset, t0))
}

func TestTokens_ConfiguredTTL(t *testing.T) {
	ring, err := jwtx.NewKeyRing("k1", []byte(testSecret))
	require.NoError(t, err)
	tokens, err := jwtx.NewTokens(ring, jwtx.TokenConfig{Issuer: "inkwell", AccessTTL: time.Hour})
	require.NoError(t, err)

	require.Equal(t, time.Hour, tokens.TTL(jwtx.PurposeAccess))
	require.Equal(t, jwtx.DefaultRefreshTokenTTL, tokens.TTL(jwtx.PurposeRefresh))

	raw, err := tokens.IssueAccess("u", t0)
	require.NoError(t, err)
	require.Empty(t, tokens.Verify(raw, jwtx.PurposeAccess, t0.Add(time.Hour)))
}

func TestTokens_FailsClosed(t *testing.T) {
	tokens := newTestTokens(t)
	valid, err := tokens.IssueAccess("user-1", t0)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)

	tests := map[string]string{
		"empty":             "",
		"garbage":           "not-a-token",
		"two segments":      parts[0] + "." + parts[1],
		"tampered payload":  parts[0] + "." + parts[1] + "x." + parts[2],
		"tampered sig":      parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2])),
		"unsigned none alg": noneToken(t),
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.Empty(t, tokens.Verify(raw, jwtx.PurposeAccess, t0))
			})
		})
	}
}

func TestTokens_WrongKeyOrIssuer(t *testing.T) {
	tokens := newTestTokens(t)

	otherRing, err := jwtx.NewKeyRing("k1", []byte(strings.Repeat("z", 32)))
	require.NoError(t, err)
	forger, err := jwtx.NewTokens(otherRing, jwtx.TokenConfig{Issuer: "inkwell"})
	require.NoError(t, err)

	forged, err := forger.IssueAccess("user-1", t0)
	require.NoError(t, err)
	require.Empty(t, tokens.Verify(forged, jwtx.PurposeAccess, t0))

	ring, err := jwtx.NewKeyRing("k1", []byte(testSecret))
	require.NoError(t, err)
	foreign, err := jwtx.NewTokens(ring, jwtx.TokenConfig{Issuer: "someone-else"})
	require.NoError(t, err)

	raw, err := foreign.IssueAccess("user-1", t0)
	require.NoError(t, err)
	_, err = tokens.Explain(raw, jwtx.PurposeAccess, t0)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestTokens_RejectsOtherAlgorithms(t *testing.T) {
	tokens := newTestTokens(t)

	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "inkwell",
			Subject:   "user-1",
			ID:        jwtx.NewJTI(),
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
		Purpose: jwtx.PurposeAccess,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	require.Empty(t, tokens.Verify(raw, jwtx.PurposeAccess, t0))
}

func TestTokens_KeyRotation(t *testing.T) {
	ring, err := jwtx.NewKeyRing("old", []byte(testSecret))
	require.NoError(t, err)
	tokens, err := jwtx.NewTokens(ring, jwtx.TokenConfig{Issuer: "inkwell"})
	require.NoError(t, err)

	before, err := tokens.IssueAccess("user-1", t0)
	require.NoError(t, err)

	require.NoError(t, ring.Add("new", []byte(strings.Repeat("n", 32))))
	require.NoError(t, ring.Activate("new"))

	after, err := tokens.IssueAccess("user-1", t0)
	require.NoError(t, err)

	header, _, err := jwt.NewParser().ParseUnverified(after, &jwtx.Claims{})
	require.NoError(t, err)
	require.Equal(t, "new", header.Header["kid"])

	require.Equal(t, "user-1", tokens.Verify(before, jwtx.PurposeAccess, t0))
	require.Equal(t, "user-1", tokens.Verify(after, jwtx.PurposeAccess, t0))

	require.NoError(t, ring.Remove("old"))
	require.Empty(t, tokens.Verify(before, jwtx.PurposeAccess, t0))
	require.Equal(t, "user-1", tokens.Verify(after, jwtx.PurposeAccess, t0))
}

func TestNewTokens_Validation(t *testing.T) {
	_, err := jwtx.NewTokens(nil, jwtx.TokenConfig{Issuer: "x"})
	require.Error(t, err)

	ring, err := jwtx.NewKeyRing("k1", []byte(testSecret))
	require.NoError(t, err)
	_, err = jwtx.NewTokens(ring, jwtx.TokenConfig{})
	require.Error(t, err)
}

func noneToken(t *testing.T) string {
	t.Helper()
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "inkwell",
			Subject:   "user-1",
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
		Purpose: jwtx.PurposeAccess,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return raw
}
