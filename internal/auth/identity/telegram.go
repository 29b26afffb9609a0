package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
)

// TelegramMaxAge is how old a login widget payload may be.
const TelegramMaxAge = 24 * time.Hour

// TelegramLogin is the payload produced by the Telegram login widget.
type TelegramLogin struct {
	ID        int64  `json:"id" validate:"required"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date" validate:"required"`
	Hash      string `json:"hash" validate:"required,hexadecimal"`
}

// dataCheckString is every received field except hash, as key=value lines
// sorted by key.
func (l TelegramLogin) dataCheckString() string {
	fields := map[string]string{
		"id":        strconv.FormatInt(l.ID, 10),
		"auth_date": strconv.FormatInt(l.AuthDate, 10),
	}
	for k, v := range map[string]string{
		"first_name": l.FirstName,
		"last_name":  l.LastName,
		"username":   l.Username,
		"photo_url":  l.PhotoURL,
	} {
		if v != "" {
			fields[k] = v
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}
	return strings.Join(lines, "\n")
}

// Telegram verifies login widget payloads signed with the bot token.
type Telegram struct {
	secret []byte
	now    func() time.Time
}

func NewTelegram(botToken string) *Telegram {
	t := &Telegram{now: time.Now}
	if botToken != "" {
		sum := sha256.Sum256([]byte(botToken))
		t.secret = sum[:]
	}
	return t
}

// WithClock overrides the time source, for tests.
func (t *Telegram) WithClock(now func() time.Time) *Telegram {
	t.now = now
	return t
}

func (t *Telegram) Configured() bool {
	return t != nil && len(t.secret) > 0
}

// Verify checks the payload hash and freshness.
func (t *Telegram) Verify(login TelegramLogin) (domain.TelegramIdentity, error) {
	if !t.Configured() {
		return domain.TelegramIdentity{}, ErrProviderNotConfigured
	}

	got, err := hex.DecodeString(login.Hash)
	if err != nil {
		return domain.TelegramIdentity{}, fmt.Errorf("%w: malformed hash", ErrInvalidIdentity)
	}

	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(login.dataCheckString()))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domain.TelegramIdentity{}, fmt.Errorf("%w: hash mismatch", ErrInvalidIdentity)
	}

	age := t.now().Sub(time.Unix(login.AuthDate, 0))
	if age > TelegramMaxAge {
		return domain.TelegramIdentity{}, fmt.Errorf("%w: auth_date too old", ErrInvalidIdentity)
	}
	if login.ID <= 0 {
		return domain.TelegramIdentity{}, fmt.Errorf("%w: invalid id", ErrInvalidIdentity)
	}

	return domain.TelegramIdentity{
		ID:        login.ID,
		Username:  login.Username,
		FirstName: login.FirstName,
		LastName:  login.LastName,
	}, nil
}
