// Package revocation tracks token IDs (jti) that must no longer be accepted:
// consumed password reset tokens and the tokens of logged out sessions.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyRevoked is returned by Revoke when the jti was already present.
// Callers that consume one-time tokens treat it as "token already used".
var ErrAlreadyRevoked = errors.New("revocation: already revoked")

// Set is an atomic add-once set of token IDs. Entries only need to live
// until the token would have expired anyway.
type Set interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
