package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestUser_Flags(t *testing.T) {
	now := time.Now()
	tg := int64(42)

	u := domain.User{Status: domain.StatusActive}
	require.True(t, u.IsActive())
	require.False(t, u.HasPassword())
	require.False(t, u.MFAEnabled())
	require.False(t, u.TelegramLinked())

	u.Status = domain.StatusBanned
	u.PasswordHash = "$2a$12$..."
	u.MFAEnabledAt = &now
	u.MFASecret = []byte("sealed")
	u.TelegramID = &tg
	require.False(t, u.IsActive())
	require.True(t, u.HasPassword())
	require.True(t, u.MFAEnabled())
	require.True(t, u.TelegramLinked())
}

func TestRoleAndStatus_Valid(t *testing.T) {
	require.True(t, domain.RoleAdmin.Valid())
	require.False(t, domain.Role("root").Valid())
	require.True(t, domain.StatusDeactivated.Valid())
	require.False(t, domain.UserStatus("deleted").Valid())
}

func TestExternalIdentity(t *testing.T) {
	var id domain.ExternalIdentity = domain.TelegramIdentity{ID: 123456}
	require.Equal(t, domain.ProviderTelegram, id.Provider())
	require.Equal(t, "123456", id.Subject())

	tg := id.(domain.TelegramIdentity)
	require.Equal(t, "telegram_123456@telegram.local", tg.PlaceholderEmail())
	require.True(t, domain.IsPlaceholderEmail(tg.PlaceholderEmail()))
	require.False(t, domain.IsPlaceholderEmail("a@x.com"))

	id = domain.GoogleIdentity{Sub: "g-1"}
	require.Equal(t, domain.ProviderGoogle, id.Provider())
	require.Equal(t, "g-1", id.Subject())
}
