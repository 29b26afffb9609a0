package jwtx

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MinSecretLength is the smallest accepted HS256 secret, in bytes.
const MinSecretLength = 32

var (
	ErrNoKey       = errors.New("jwtx: key not found")
	ErrWeakSecret  = errors.New("jwtx: secret too short")
	ErrInvalidKeys = errors.New("jwtx: invalid key specification")
)

// KeyRing holds the HMAC secrets tokens are signed with, addressed by key
// id. One key is active and signs new tokens; the rest only verify, which
// lets secrets rotate without logging everybody out. Dropping a key from
// the ring invalidates every token it signed.
type KeyRing struct {
	mu     sync.RWMutex
	keys   map[string][]byte
	active string
}

// NewKeyRing returns a ring whose active key is kid.
func NewKeyRing(kid string, secret []byte) (*KeyRing, error) {
	r := &KeyRing{keys: make(map[string][]byte)}
	if err := r.Add(kid, secret); err != nil {
		return nil, err
	}
	r.active = kid
	return r, nil
}

// ParseKeyRing parses "kid:secret[,kid:secret...]". The first entry
// becomes the active signing key.
func ParseKeyRing(spec string) (*KeyRing, error) {
	var ring *KeyRing
	for i, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kid, secret, ok := strings.Cut(entry, ":")
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: entry %d must be kid:secret", ErrInvalidKeys, i)
		}

		if ring == nil {
			r, err := NewKeyRing(kid, []byte(secret))
			if err != nil {
				return nil, err
			}
			ring = r
			continue
		}
		if err := ring.Add(kid, []byte(secret)); err != nil {
			return nil, err
		}
	}
	if ring == nil {
		return nil, fmt.Errorf("%w: no keys", ErrInvalidKeys)
	}
	return ring, nil
}

// Add registers a verification key. An existing kid is replaced.
func (r *KeyRing) Add(kid string, secret []byte) error {
	if kid == "" {
		return fmt.Errorf("%w: empty kid", ErrInvalidKeys)
	}
	if len(secret) < MinSecretLength {
		return fmt.Errorf("%w: kid %q has %d bytes, need %d", ErrWeakSecret, kid, len(secret), MinSecretLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[kid] = append([]byte(nil), secret...)
	return nil
}

// Activate makes kid the signing key. It must already be in the ring.
func (r *KeyRing) Activate(kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[kid]; !ok {
		return ErrNoKey
	}
	r.active = kid
	return nil
}

// Remove drops a retired key. The active key cannot be removed.
func (r *KeyRing) Remove(kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kid == r.active {
		return errors.New("jwtx: cannot remove the active key")
	}
	if _, ok := r.keys[kid]; !ok {
		return ErrNoKey
	}
	delete(r.keys, kid)
	return nil
}

// Active returns the signing key id and secret.
func (r *KeyRing) Active() (string, []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.keys[r.active]
}

// Get returns the secret for kid.
func (r *KeyRing) Get(kid string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if secret, ok := r.keys[kid]; ok {
		return secret, nil
	}
	return nil, ErrNoKey
}

// Len returns the number of keys in the ring.
func (r *KeyRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}
