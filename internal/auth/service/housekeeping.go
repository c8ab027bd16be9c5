package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/edustack/auth/internal/auth/store"
)

// DefaultHousekeepingInterval is how often expired tokens are purged.
const DefaultHousekeepingInterval = time.Hour

// HousekeepingService periodically deletes expired refresh and reset
// tokens. Revoked-but-unexpired rows are kept until expiry so replay
// attempts remain observable.
type HousekeepingService struct {
	store    store.Store
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeepingService(st store.Store, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		store:    st,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
}

// Stop signals the worker and waits for it to finish the cycle in flight.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// One sweep at startup clears anything that expired while the
	// service was down.
	s.sweep()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	refresh, err := s.store.RefreshTokens().DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		slog.Error("housekeeping: purge refresh tokens", "err", err)
	}

	resets, err := s.store.PasswordResetTokens().DeleteExpiredPasswordResetTokens(ctx)
	if err != nil {
		slog.Error("housekeeping: purge reset tokens", "err", err)
	}

	if refresh > 0 || resets > 0 {
		slog.Info("housekeeping sweep", "refresh_tokens_deleted", refresh, "reset_tokens_deleted", resets)
	}
}
