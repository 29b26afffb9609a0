package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/store"
)

// StoreSet keeps revoked jtis in the revoked_tokens table. The primary key
// on jti makes concurrent Revoke calls race safely: exactly one wins.
type StoreSet struct {
	tokens store.RevokedTokens
}

func NewStoreSet(tokens store.RevokedTokens) *StoreSet {
	return &StoreSet{tokens: tokens}
}

func (s *StoreSet) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	err := s.tokens.RevokeToken(ctx, jti, expiresAt.UTC())
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrAlreadyRevoked
	}
	return err
}

func (s *StoreSet) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.tokens.IsTokenRevoked(ctx, jti)
}
