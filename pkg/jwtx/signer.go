package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// AlgorithmHS256 is the only algorithm tokens are signed or accepted with.
const AlgorithmHS256 = "HS256"

// sign turns claims into a compact JWT using the ring's active key and
// records the key id in the "kid" header.
func sign(ring *KeyRing, claims Claims) (string, error) {
	kid, secret := ring.Active()
	if len(secret) == 0 {
		return "", errors.New("jwtx: no active signing key")
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = kid
	return t.SignedString(secret)
}
