package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pepperLength = 32

// LoadOrGeneratePepper reads the pepper stored at path, creating a fresh
// random one (and its parent directory) when the file does not exist yet.
//
// Losing this file invalidates every stored password hash, so it belongs
// with the database backups.
func LoadOrGeneratePepper(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("cryptox: pepper path is empty")
	}
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("cryptox: decode pepper %s: %w", path, err)
		}
		return pepper, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("cryptox: read pepper %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	pepper := make([]byte, pepperLength)
	if _, err := rand.Read(pepper); err != nil {
		return nil, fmt.Errorf("cryptox: generate pepper: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(pepper)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("cryptox: write pepper %s: %w", path, err)
	}

	return pepper, nil
}
