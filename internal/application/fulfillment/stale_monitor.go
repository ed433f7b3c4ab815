package fulfillment

import (
	"context"
	"time"

	"github.com/pharmerp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultStaleWindow is how long an approved request may hold its
	// reservations before being flagged for review.
	DefaultStaleWindow = 24 * time.Hour
	// DefaultStaleCheckInterval is how often the monitor scans
	DefaultStaleCheckInterval = 15 * time.Minute
)

// StaleMonitor periodically flags approved requests whose allocations have
// been waiting too long for a dispatch. Flagging is advisory only: the
// reservations stay in place until someone dispatches or abandons the
// request, stock is never auto-reverted.
type StaleMonitor struct {
	scope    TransactionScope
	eventBus shared.EventPublisher
	logger   *zap.Logger
	window   time.Duration
	interval time.Duration
}

// NewStaleMonitor creates a monitor with the given window and scan interval.
// Non-positive durations fall back to the defaults.
func NewStaleMonitor(scope TransactionScope, logger *zap.Logger, window, interval time.Duration) *StaleMonitor {
	if window <= 0 {
		window = DefaultStaleWindow
	}
	if interval <= 0 {
		interval = DefaultStaleCheckInterval
	}
	return &StaleMonitor{
		scope:    scope,
		logger:   logger,
		window:   window,
		interval: interval,
	}
}

// SetEventPublisher sets the event publisher for stale-flag events
func (m *StaleMonitor) SetEventPublisher(publisher shared.EventPublisher) {
	m.eventBus = publisher
}

// Run scans on the configured interval until the context is cancelled
func (m *StaleMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("stale allocation monitor started",
		zap.Duration("window", m.window),
		zap.Duration("interval", m.interval),
	)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("stale allocation monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.CheckOnce(ctx); err != nil {
				m.logger.Error("stale allocation scan failed", zap.Error(err))
			}
		}
	}
}

// CheckOnce flags every approved, unflagged request older than the window
// and returns how many were flagged.
func (m *StaleMonitor) CheckOnce(ctx context.Context) (int, error) {
	now := time.Now()
	cutoff := now.Add(-m.window)

	flagged := 0
	var events []shared.DomainEvent
	err := m.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		requests, err := repos.RequestRepo().FindApprovedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		for i := range requests {
			request := &requests[i]
			if !request.FlagStale(now) {
				continue
			}
			if err := repos.RequestRepo().Save(ctx, request); err != nil {
				return err
			}
			events = append(events, request.GetDomainEvents()...)
			request.ClearDomainEvents()
			flagged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if flagged > 0 {
		m.logger.Warn("stale approved requests flagged",
			zap.Int("count", flagged),
			zap.Time("cutoff", cutoff),
		)
		if m.eventBus != nil {
			if err := m.eventBus.Publish(ctx, events...); err != nil {
				m.logger.Warn("failed to publish stale-flag events", zap.Error(err))
			}
		}
	}
	return flagged, nil
}
