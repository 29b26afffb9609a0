// Package storetest is a conformance suite run against every store driver.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a freshly migrated, empty store. It should register its own
// cleanup with t.
type Factory func(t *testing.T) store.Store

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// NewUser builds a minimal active account.
func NewUser(email, username string) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: "$2a$12$placeholder",
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
}

// Run executes the full suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("conflicts", func(t *testing.T) { testConflicts(t, newStore(t)) })
	t.Run("links", func(t *testing.T) { testLinks(t, newStore(t)) })
	t.Run("mfa", func(t *testing.T) { testMFA(t, newStore(t)) })
	t.Run("backup codes", func(t *testing.T) { testBackupCodes(t, newStore(t)) })
	t.Run("revoked tokens", func(t *testing.T) { testRevokedTokens(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTx(t, newStore(t)) })
	t.Run("concurrent usernames", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("alice@example.com", "alice")
	u.FirstName = "Alice"
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, "Alice", got.FirstName)
	require.Equal(t, domain.RoleUser, got.Role)
	require.Equal(t, domain.StatusActive, got.Status)
	require.False(t, got.Verified)
	require.Nil(t, got.TelegramID)
	require.Nil(t, got.LastLoginAt)
	require.Equal(t, t0, got.CreatedAt)

	byName, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	later := t0.Add(time.Hour)
	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "new-hash", later))
	require.NoError(t, s.Users().UpdateLastLogin(ctx, u.ID, later))
	require.NoError(t, s.Users().UpdateStatus(ctx, u.ID, domain.StatusBanned, later))
	require.NoError(t, s.Users().UpdateRole(ctx, u.ID, domain.RoleModerator, later))
	require.NoError(t, s.Users().MarkVerified(ctx, u.ID, later))

	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.NotNil(t, got.LastLoginAt)
	require.Equal(t, later, *got.LastLoginAt)
	require.Equal(t, domain.StatusBanned, got.Status)
	require.Equal(t, domain.RoleModerator, got.Role)
	require.True(t, got.Verified)
	require.Equal(t, later, got.UpdatedAt)

	err = s.Users().UpdatePasswordHash(ctx, "missing", "x", later)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("a@x.com", "a")))

	err := s.Users().CreateUser(ctx, NewUser("a@x.com", "b"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.Equal(t, store.FieldEmail, store.ConflictField(err))

	err = s.Users().CreateUser(ctx, NewUser("b@x.com", "a"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.Equal(t, store.FieldUsername, store.ConflictField(err))
}

func testLinks(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewUser("a@x.com", "a")
	b := NewUser("b@x.com", "b")
	require.NoError(t, s.Users().CreateUser(ctx, a))
	require.NoError(t, s.Users().CreateUser(ctx, b))

	tg := domain.TelegramIdentity{ID: 424242, Username: "alice_tg"}
	require.NoError(t, s.Users().LinkTelegram(ctx, a.ID, tg, t0))

	got, err := s.Users().GetUserByTelegramID(ctx, 424242)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.Equal(t, "alice_tg", got.TelegramUsername)

	err = s.Users().LinkTelegram(ctx, b.ID, tg, t0)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.Equal(t, store.FieldTelegramID, store.ConflictField(err))

	require.NoError(t, s.Users().UnlinkTelegram(ctx, a.ID, t0))
	_, err = s.Users().GetUserByTelegramID(ctx, 424242)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, s.Users().LinkTelegram(ctx, b.ID, tg, t0))

	require.NoError(t, s.Users().LinkOAuth(ctx, a.ID, domain.ProviderGoogle, "sub-1", t0))
	got, err = s.Users().GetUserByOAuth(ctx, domain.ProviderGoogle, "sub-1")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	err = s.Users().LinkOAuth(ctx, b.ID, domain.ProviderGoogle, "sub-1", t0)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.Equal(t, store.FieldOAuth, store.ConflictField(err))
}

func testMFA(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("a@x.com", "a")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	// Cannot enable without a secret.
	require.ErrorIs(t, s.Users().EnableMFA(ctx, u.ID, t0), store.ErrNotFound)

	require.NoError(t, s.Users().UpdateMFASecret(ctx, u.ID, []byte{1, 2, 3}, t0))
	require.NoError(t, s.Users().EnableMFA(ctx, u.ID, t0))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got.MFASecret)
	require.True(t, got.MFAEnabled())

	require.NoError(t, s.Users().DisableMFA(ctx, u.ID, t0))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, got.MFASecret)
	require.False(t, got.MFAEnabled())
}

func testBackupCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("a@x.com", "a")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	for _, h := range []string{"h1", "h2", "h3"} {
		require.NoError(t, s.BackupCodes().CreateBackupCode(ctx, u.ID, h))
	}
	n, err := s.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	ok, err := s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "h2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "h2")
	require.NoError(t, err)
	require.False(t, ok, "a backup code is single use")

	require.NoError(t, s.BackupCodes().DeleteAllBackupCodes(ctx, u.ID))
	n, err = s.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func testRevokedTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	rt := s.RevokedTokens()

	require.NoError(t, rt.RevokeToken(ctx, "jti-old", t0.Add(-time.Minute)))
	require.NoError(t, rt.RevokeToken(ctx, "jti-new", t0.Add(time.Hour)))

	err := rt.RevokeToken(ctx, "jti-new", t0.Add(time.Hour))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.Equal(t, store.FieldJTI, store.ConflictField(err))

	revoked, err := rt.IsTokenRevoked(ctx, "jti-new")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = rt.IsTokenRevoked(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, revoked)

	n, err := rt.DeleteExpiredRevokedTokens(ctx, t0)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	revoked, err = rt.IsTokenRevoked(ctx, "jti-old")
	require.NoError(t, err)
	require.False(t, revoked)
}

func testTx(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("a@x.com", "a")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.Users().CreateUser(ctx, NewUser("a@x.com", "other"))
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "failed transaction must roll back")

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, u)
	})
	require.NoError(t, err)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
}

func testConcurrentCreate(t *testing.T, s store.Store) {
	ctx := context.Background()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := NewUser("user"+string(rune('a'+i))+"@x.com", "same")
			err := s.WithTx(ctx, func(tx store.Tx) error {
				return tx.Users().CreateUser(ctx, u)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case store.ConflictField(err) == store.FieldUsername:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, workers-1, conflicts)
}
