package jwtx

import (
	"errors"
	"time"
)

// TokenConfig controls issued tokens. Zero TTLs fall back to the defaults.
type TokenConfig struct {
	Issuer               string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	PasswordResetTTL     time.Duration
	EmailVerificationTTL time.Duration
}

// Tokens issues and verifies purpose tagged HS256 tokens.
//
// Verification fails closed: every problem (bad signature, unknown kid,
// wrong algorithm, wrong purpose, expired, not yet valid) yields the same
// empty result and callers cannot tell them apart.
type Tokens struct {
	ring *KeyRing
	cfg  TokenConfig
}

// NewTokens returns a Tokens bound to ring.
func NewTokens(ring *KeyRing, cfg TokenConfig) (*Tokens, error) {
	if ring == nil || ring.Len() == 0 {
		return nil, errors.New("jwtx: key ring is empty")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = DefaultPasswordResetTTL
	}
	if cfg.EmailVerificationTTL <= 0 {
		cfg.EmailVerificationTTL = DefaultEmailVerificationTTL
	}
	return &Tokens{ring: ring, cfg: cfg}, nil
}

// TTL returns the configured lifetime for purpose.
func (t *Tokens) TTL(p Purpose) time.Duration {
	switch p {
	case PurposeAccess:
		return t.cfg.AccessTTL
	case PurposeRefresh:
		return t.cfg.RefreshTTL
	case PurposePasswordReset:
		return t.cfg.PasswordResetTTL
	case PurposeEmailVerification:
		return t.cfg.EmailVerificationTTL
	}
	return 0
}

// AccessOption decorates access token claims.
type AccessOption func(*Claims)

// WithRole stamps the user's role onto an access token.
func WithRole(role string) AccessOption {
	return func(c *Claims) { c.Role = role }
}

// WithUsername stamps the username onto an access token.
func WithUsername(username string) AccessOption {
	return func(c *Claims) { c.Username = username }
}

// IssueAccess signs an access token for subject.
func (t *Tokens) IssueAccess(subject string, now time.Time, opts ...AccessOption) (string, error) {
	c := newClaims(t.cfg.Issuer, subject, PurposeAccess, t.cfg.AccessTTL, now)
	for _, opt := range opts {
		opt(&c)
	}
	return sign(t.ring, c)
}

// IssueRefresh signs a refresh token for subject.
func (t *Tokens) IssueRefresh(subject string, now time.Time) (string, error) {
	return sign(t.ring, newClaims(t.cfg.Issuer, subject, PurposeRefresh, t.cfg.RefreshTTL, now))
}

// IssuePasswordReset signs a reset token whose subject is the account email.
func (t *Tokens) IssuePasswordReset(email string, now time.Time) (string, error) {
	return sign(t.ring, newClaims(t.cfg.Issuer, email, PurposePasswordReset, t.cfg.PasswordResetTTL, now))
}

// IssueEmailVerification signs a verification token whose subject is the
// account email.
func (t *Tokens) IssueEmailVerification(email string, now time.Time) (string, error) {
	return sign(t.ring, newClaims(t.cfg.Issuer, email, PurposeEmailVerification, t.cfg.EmailVerificationTTL, now))
}

// Verify returns the subject of raw when it is a valid token of purpose at
// now, and "" otherwise.
func (t *Tokens) Verify(raw string, purpose Purpose, now time.Time) string {
	c, ok := t.Inspect(raw, purpose, now)
	if !ok {
		return ""
	}
	return c.Subject
}

// Inspect is Verify but returns the full claim set.
func (t *Tokens) Inspect(raw string, purpose Purpose, now time.Time) (Claims, bool) {
	if raw == "" || !purpose.Valid() {
		return Claims{}, false
	}
	c, err := parse(t.ring, t.cfg.Issuer, raw, purpose, now)
	if err != nil {
		return Claims{}, false
	}
	return c, true
}

// Explain is Inspect returning the reason for rejection. It exists for
// debug logging only; responses must never depend on the error.
func (t *Tokens) Explain(raw string, purpose Purpose, now time.Time) (Claims, error) {
	return parse(t.ring, t.cfg.Issuer, raw, purpose, now)
}
