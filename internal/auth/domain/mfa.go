package domain

// MFAEnrollment is returned when a user starts TOTP enrollment. The secret
// is shown once; MFA only becomes active after a code is verified.
type MFAEnrollment struct {
	Secret  string // Base32 encoded secret for TOTP
	URL     string // otpauth:// URL for QR code generation
	Issuer  string
	Account string
}
