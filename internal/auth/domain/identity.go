package domain

import (
	"strconv"
	"strings"
)

// Identity provider names as stored in users.oauth_provider.
const (
	ProviderGoogle   = "google"
	ProviderTelegram = "telegram"
)

// ExternalIdentity is an identity asserted by a third party and already
// verified at the boundary. The set of implementations is closed:
// GoogleIdentity and TelegramIdentity.
type ExternalIdentity interface {
	Provider() string
	// Subject is the provider's stable user identifier.
	Subject() string
	isExternalIdentity()
}

// GoogleIdentity is the verified content of a Google ID token.
type GoogleIdentity struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
}

func (GoogleIdentity) Provider() string    { return ProviderGoogle }
func (g GoogleIdentity) Subject() string   { return g.Sub }
func (GoogleIdentity) isExternalIdentity() {}

// TelegramIdentity is the verified content of a Telegram login widget payload.
type TelegramIdentity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

func (TelegramIdentity) Provider() string    { return ProviderTelegram }
func (t TelegramIdentity) Subject() string   { return strconv.FormatInt(t.ID, 10) }
func (TelegramIdentity) isExternalIdentity() {}

// PlaceholderEmail is the synthetic address given to accounts created from
// a Telegram login, which carries no email.
func (t TelegramIdentity) PlaceholderEmail() string {
	return "telegram_" + t.Subject() + "@telegram.local"
}

// IsPlaceholderEmail reports whether email was synthesized for a Telegram
// account and therefore cannot receive mail.
func IsPlaceholderEmail(email string) bool {
	return strings.HasSuffix(email, "@telegram.local")
}
