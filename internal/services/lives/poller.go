package lives

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/model"
)

const (
	DefaultPollInterval = 60 * time.Second
	ActiveWindow        = 10 * time.Minute
)

// Poller periodically refreshes regeneration for recently active users,
// so that lives_changed reaches clients without them asking
type Poller struct {
	service  *Service
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active map[model.UserID]time.Time
}

// NewPoller creates a Poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(service *Service, clk clock.Clock, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		service:  service,
		clock:    clk,
		interval: interval,
		logger:   logger.With(slog.String("component", "lives-poller")),
		active:   make(map[model.UserID]time.Time),
	}
}

// Touch marks the user as active now
func (p *Poller) Touch(userID model.UserID) {
	now := p.clock.Now()
	p.mu.Lock()
	p.active[userID] = now
	p.mu.Unlock()
}

// ActiveUsers returns users seen within ActiveWindow and forgets the rest
func (p *Poller) ActiveUsers() []model.UserID {
	cutoff := p.clock.Now().Add(-ActiveWindow)
	p.mu.Lock()
	defer p.mu.Unlock()

	users := make([]model.UserID, 0, len(p.active))
	for id, seen := range p.active {
		if seen.Before(cutoff) {
			delete(p.active, id)
			continue
		}
		users = append(users, id)
	}
	return users
}

// Tick refreshes every active user once
func (p *Poller) Tick(ctx context.Context) {
	for _, id := range p.ActiveUsers() {
		if ctx.Err() != nil {
			return
		}
		if _, err := p.service.Refresh(ctx, id); err != nil {
			p.logger.Warn("refresh failed", slog.String("user_id", string(id)), slog.Any("error", err))
		}
	}
}

// Run ticks every interval until ctx is cancelled
func (p *Poller) Run(ctx context.Context) {
	var mu sync.Mutex
	var timer clock.Timer

	var arm func()
	arm = func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		timer = p.clock.AfterFunc(p.interval, func() {
			p.Tick(ctx)
			arm()
		})
	}
	arm()

	p.logger.Info("lives poller started", slog.Duration("interval", p.interval))
	<-ctx.Done()

	mu.Lock()
	if timer != nil {
		timer.Stop()
	}
	mu.Unlock()
	p.logger.Info("lives poller stopped")
}
