package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrUnknownKID   = errors.New("jwtx: unknown kid")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrPurpose      = errors.New("jwtx: purpose mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// parser rejects every algorithm except HS256. Time based checks are done
// by Claims.validateAt against an explicit clock instead of time.Now.
var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{AlgorithmHS256}),
	jwt.WithoutClaimsValidation(),
)

// parse verifies the signature of raw using the key named by its kid
// header and validates the claims for purpose at now.
func parse(ring *KeyRing, issuer, raw string, purpose Purpose, now time.Time) (Claims, error) {
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKID
		}
		secret, err := ring.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
		}
		return secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.validateAt(issuer, purpose, now); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
