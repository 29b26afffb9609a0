package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// Token sizes in bytes before encoding.
const (
	TokenSize128 = 16
	TokenSize256 = 32
)

// GenerateToken returns size random bytes encoded as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the base64url SHA-256 of token. Backup codes are
// stored by fingerprint only.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(NormalizeBackupCode(token)))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Crockford base32 without I, L, O and U so codes survive being read aloud.
const backupCodeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// GenerateBackupCode returns a human friendly one-time code of the form
// XXXXX-XXXXX (50 bits of entropy).
func GenerateBackupCode() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := range 10 {
		if i == 5 {
			sb.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate backup code: %w", err)
		}
		sb.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeBackupCode strips separators and whitespace and upper-cases the
// code so "abcde-fghjk" and "ABCDEFGHJK" fingerprint identically.
func NormalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}
