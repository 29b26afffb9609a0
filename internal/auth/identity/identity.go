// Package identity verifies third party identity assertions (Google sign in,
// the Telegram login widget) and turns them into domain identities. Nothing
// leaves this package unverified.
package identity

import "errors"

var (
	// ErrInvalidIdentity covers every verification failure. The cause is
	// wrapped for logging but never shown to clients.
	ErrInvalidIdentity = errors.New("identity: invalid identity")

	// ErrProviderNotConfigured is returned when the provider's credentials
	// were not supplied.
	ErrProviderNotConfigured = errors.New("identity: provider not configured")
)
