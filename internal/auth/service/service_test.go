package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/sqldb"
	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword = "Sup3r$ecret"
	newPassword  = "N3w&Better!"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source shared by the services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	Email string
	Value string // token or username
}

// recordingNotifier captures what would have been emailed.
type recordingNotifier struct {
	mu            sync.Mutex
	resets        []sentMail
	welcomes      []sentMail
	verifications []sentMail
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, email, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, sentMail{email, token})
}

func (n *recordingNotifier) NotifyWelcome(_ context.Context, email, username string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, sentMail{email, username})
}

func (n *recordingNotifier) NotifyEmailVerification(_ context.Context, email, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, sentMail{email, token})
}

func (n *recordingNotifier) lastReset(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.resets, "no reset email was sent")
	return n.resets[len(n.resets)-1]
}

func (n *recordingNotifier) lastVerification(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.verifications, "no verification email was sent")
	return n.verifications[len(n.verifications)-1]
}

type harness struct {
	auth   *service.AuthService
	mfa    *service.MFAService
	store  *sqldb.Store
	tokens *jwtx.Tokens
	mail   *recordingNotifier
	clock  *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	return newHarnessWithStore(t, s)
}

// newFileHarness uses an on-disk database so concurrent transactions really
// contend for the write lock.
func newFileHarness(t *testing.T) *harness {
	t.Helper()
	s, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	return newHarnessWithStore(t, s)
}

func newHarnessWithStore(t *testing.T, s *sqldb.Store) *harness {
	t.Helper()
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	ring, err := jwtx.NewKeyRing("k1", []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	tokens, err := jwtx.NewTokens(ring, jwtx.TokenConfig{Issuer: "inkwell-test"})
	require.NoError(t, err)

	hasher, err := cryptox.NewPasswordHasher(bcrypt.MinCost, []byte("pepper"))
	require.NoError(t, err)

	sealer, err := cryptox.NewSealer([]byte("test master key"))
	require.NoError(t, err)

	clk := &clock{now: t0}
	mail := &recordingNotifier{}
	mfa := &service.MFAService{Store: s, Sealer: sealer, Issuer: "Inkwell", Now: clk.Now}

	return &harness{
		auth: &service.AuthService{
			Store:       s,
			Tokens:      tokens,
			Hasher:      hasher,
			Revocations: revocation.NewStoreSet(s.RevokedTokens()),
			Notifier:    mail,
			MFA:         mfa,
			Now:         clk.Now,
		},
		mfa:    mfa,
		store:  s,
		tokens: tokens,
		mail:   mail,
		clock:  clk,
	}
}
