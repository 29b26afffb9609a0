package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/inkwell/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestTelegramSignIn(t *testing.T) {
	client := authsdk.NewClient(setupAuthContainer(t))
	ctx := t.Context()

	session, err := client.LoginWithTelegram(ctx, signTelegram(424242, "tele_user"))
	require.NoError(t, err)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.True(t, me.TelegramLinked)
	require.False(t, me.HasPassword)
	require.Equal(t, "tele_user", me.Username)

	// The same Telegram account signs into the same user.
	again, err := client.LoginWithTelegram(ctx, signTelegram(424242, "tele_user"))
	require.NoError(t, err)
	require.Equal(t, me.ID, again.User().ID)

	err = session.DisconnectTelegram(ctx)
	require.ErrorIs(t, err, authsdk.ErrLastLoginMethod)

	forged := signTelegram(424242, "tele_user")
	forged.Username = "someone_else"
	_, err = client.LoginWithTelegram(ctx, forged)
	require.ErrorIs(t, err, authsdk.ErrInvalidIdentity)
}

func TestTelegramConnect(t *testing.T) {
	client := authsdk.NewClient(setupAuthContainer(t))
	ctx := t.Context()

	alice := registerAndLogin(t, client, "tg_alice")
	require.NoError(t, alice.ConnectTelegram(ctx, signTelegram(777, "alice_tg")))

	bob := registerAndLogin(t, client, "tg_bob")
	err := bob.ConnectTelegram(ctx, signTelegram(777, "alice_tg"))
	require.ErrorIs(t, err, authsdk.ErrTelegramIDAlreadyLinked)

	require.NoError(t, alice.DisconnectTelegram(ctx), "password still signs in")

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	require.False(t, me.TelegramLinked)
}
