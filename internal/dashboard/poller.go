// Package dashboard aggregates the account, trade, and bot views behind a
// single polled snapshot with a connection-health indicator.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fxdash/internal/api"
)

// DefaultInterval is the background poll cadence when none is configured.
const DefaultInterval = 5000 * time.Millisecond

// Health classification from consecutive failed cycles.
const (
	HealthConnected    = "connected"
	HealthReconnecting = "reconnecting"
	HealthDisconnected = "disconnected"
)

// backend is the set of REST resources one dashboard cycle fetches.
type backend interface {
	Account(ctx context.Context) (*api.Account, error)
	OpenTrades(ctx context.Context) ([]api.Trade, error)
	TradeHistory(ctx context.Context) ([]api.Trade, error)
	BotStatus(ctx context.Context) (*api.BotStatus, error)
	BotsStatus(ctx context.Context) ([]api.BotStatus, error)
}

// Snapshot is a point-in-time copy of the dashboard state.
type Snapshot struct {
	Account     *api.Account    `json:"account"`
	OpenTrades  []api.Trade     `json:"openTrades"`
	History     []api.Trade     `json:"history"`
	Bot         *api.BotStatus  `json:"bot"`
	Bots        []api.BotStatus `json:"bots"`
	Health      string          `json:"health"`
	Refreshing  bool            `json:"refreshing"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Poller refreshes all dashboard resources in parallel on a fixed
// interval. Individual fetch failures fall back to empty values so one
// broken resource does not blank the rest; only a cycle where every fetch
// failed counts against connection health.
type Poller struct {
	backend  backend
	interval time.Duration
	logger   *logrus.Logger

	mu          sync.Mutex
	account     *api.Account
	openTrades  []api.Trade
	history     []api.Trade
	bot         *api.BotStatus
	bots        []api.BotStatus
	failures    int
	refreshing  bool
	lastUpdated time.Time
}

// NewPoller creates a dashboard poller. interval <= 0 selects
// DefaultInterval.
func NewPoller(backend backend, interval time.Duration, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{backend: backend, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled. The first cycle fires immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Infof("[dashboard] Polling resources every %v", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// Refresh runs one cycle immediately on behalf of the user, with the
// refreshing flag raised so the UI can tell it apart from background
// polling.
func (p *Poller) Refresh(ctx context.Context) {
	p.mu.Lock()
	p.refreshing = true
	p.mu.Unlock()

	p.pollOnce(ctx)

	p.mu.Lock()
	p.refreshing = false
	p.mu.Unlock()
}

// pollOnce fetches all five resources in parallel. Each failed fetch
// falls back to its zero value for this cycle and is logged; the cycle as
// a whole fails only when nothing could be fetched.
func (p *Poller) pollOnce(ctx context.Context) {
	var (
		account *api.Account
		open    []api.Trade
		history []api.Trade
		bot     *api.BotStatus
		bots    []api.BotStatus
		errs    [5]error
		wg      sync.WaitGroup
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		account, errs[0] = p.backend.Account(ctx)
	}()
	go func() {
		defer wg.Done()
		open, errs[1] = p.backend.OpenTrades(ctx)
	}()
	go func() {
		defer wg.Done()
		history, errs[2] = p.backend.TradeHistory(ctx)
	}()
	go func() {
		defer wg.Done()
		bot, errs[3] = p.backend.BotStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		bots, errs[4] = p.backend.BotsStatus(ctx)
	}()
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			p.logger.Warnf("[dashboard] Resource fetch failed: %v", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if failed == len(errs) {
		p.failures++
		p.logger.Warnf("[dashboard] Cycle failed entirely (%d consecutive)", p.failures)
		return
	}

	p.account = account
	p.openTrades = open
	p.history = history
	p.bot = bot
	p.bots = bots
	p.failures = 0
	p.lastUpdated = time.Now()
}

// Health classifies the connection from the consecutive-failure counter.
func (p *Poller) Health() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return classify(p.failures)
}

func classify(failures int) string {
	switch {
	case failures == 0:
		return HealthConnected
	case failures < 3:
		return HealthReconnecting
	default:
		return HealthDisconnected
	}
}

// Snapshot returns a copy of the current dashboard state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Account:     p.account,
		OpenTrades:  append([]api.Trade(nil), p.openTrades...),
		History:     append([]api.Trade(nil), p.history...),
		Bot:         p.bot,
		Bots:        append([]api.BotStatus(nil), p.bots...),
		Health:      classify(p.failures),
		Refreshing:  p.refreshing,
		LastUpdated: p.lastUpdated,
	}
}
