package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
)

// cleanupTimeout bounds a single purge pass.
const cleanupTimeout = 30 * time.Second

// HousekeepingService drops revocation entries once the token they block
// has expired on its own. Without it revoked_tokens grows with every logout
// and password reset.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// NewHousekeepingService returns a stopped service. A non-positive
// interval means hourly.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs one pass right away and then one per Interval until Stop.
func (s *HousekeepingService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop waits for an in flight pass to finish. It is safe to call twice.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			close(s.done)
			return
		}
		s.cancel()
		<-s.done
		s.Logger.Info("housekeeping stopped")
	})
}

func (s *HousekeepingService) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.Cleanup(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cleanup performs one purge pass and returns how many entries it removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	n, err := s.Store.RevokedTokens().DeleteExpiredRevokedTokens(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("purge of expired revocations failed", slogx.Err(err))
		}
		return 0
	}

	if n > 0 {
		s.Logger.Info("expired revocations purged", "count", n)
	} else {
		s.Logger.Debug("no expired revocations")
	}
	return n
}
