package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/corvid-labs/gatekeep/internal/gatekeep/store"
)

// Housekeeping periodically removes idle sessions and expired refresh
// tokens so neither table grows without bound. Session bindings heal
// lazily when a stale id is next presented, so the sweep here only
// touches the session and token tables.
type Housekeeping struct {
	Store          store.Store
	Logger         *slog.Logger
	Interval       time.Duration
	SessionTimeout time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeeping creates the background sweeper. A non-positive interval
// defaults to one hour.
func NewHousekeeping(st store.Store, logger *slog.Logger, interval, sessionTimeout time.Duration) *Housekeeping {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Housekeeping{
		Store:          st,
		Logger:         logger,
		Interval:       interval,
		SessionTimeout: sessionTimeout,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (h *Housekeeping) Start() {
	go h.run()
	h.Logger.Info("housekeeping started", "interval", h.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep ends.
func (h *Housekeeping) Stop() {
	close(h.stopCh)
	<-h.doneCh
	h.Logger.Info("housekeeping stopped")
}

func (h *Housekeeping) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	h.sweep()

	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-h.stopCh:
			return
		}
	}
}

// sweep performs the deletions. The two sweeps are independent; a failure
// in one does not stop the other.
func (h *Housekeeping) sweep() {
	ctx := context.Background()
	now := time.Now().UTC()

	if n, err := h.Store.Sessions().DeleteIdleSince(ctx, now.Add(-h.SessionTimeout)); err != nil {
		h.Logger.Error("failed to delete idle sessions", "error", err)
	} else if n > 0 {
		h.Logger.Debug("deleted idle sessions", "count", n)
	}

	if n, err := h.Store.Principals().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		h.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else if n > 0 {
		h.Logger.Debug("deleted expired refresh tokens", "count", n)
	}
}
