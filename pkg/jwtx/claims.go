package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose tags what a token may be used for. A token is only ever accepted
// by the operation matching its purpose.
type Purpose string

const (
	PurposeAccess            Purpose = "access"
	PurposeRefresh           Purpose = "refresh"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
)

// Default lifetimes per purpose.
const (
	DefaultAccessTokenTTL       = 8 * 24 * time.Hour
	DefaultRefreshTokenTTL      = 30 * 24 * time.Hour
	DefaultPasswordResetTTL     = 24 * time.Hour
	DefaultEmailVerificationTTL = 48 * time.Hour
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposePasswordReset, PurposeEmailVerification:
		return true
	}
	return false
}

// Claims carried by every token the service issues. Role and Username are
// only populated on access tokens.
type Claims struct {
	jwt.RegisteredClaims

	Purpose Purpose `json:"purpose"`

	// Role of the user at the time of issue ("user", "moderator", "admin").
	Role string `json:"role,omitempty"`

	// Username for the authenticated user
	Username string `json:"username,omitempty"`
}

// newClaims builds minimally-correct claims for one purpose.
func newClaims(issuer, subject string, purpose Purpose, ttl time.Duration, now time.Time) Claims {
	now = now.UTC().Truncate(time.Second)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Purpose: purpose,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ExpiresAtTime returns the expiry or the zero time when absent.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time.UTC()
}

// validateAt checks issuer, purpose and the exp/nbf window against now.
// A token is expired once now reaches exp.
func (c *Claims) validateAt(issuer string, purpose Purpose, now time.Time) error {
	if issuer != "" && c.Issuer != issuer {
		return ErrIssuer
	}
	if c.Purpose != purpose {
		return ErrPurpose
	}
	if c.Subject == "" || c.ID == "" {
		return ErrInvalidClaim
	}
	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
