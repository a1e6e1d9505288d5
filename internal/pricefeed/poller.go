// Package pricefeed polls batch quotes for a bounded watchlist and derives
// per-pair flash signals from bid movement between cycles.
package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"fxdash/internal/api"
	"fxdash/internal/journal"
)

const (
	// DefaultInterval is the poll cadence when none is configured.
	DefaultInterval = 2000 * time.Millisecond

	// flashClearDelay is how long a flash signal stays visible.
	flashClearDelay = 500 * time.Millisecond
)

// Flash directions. A pair with an unchanged bid, or no prior bid to
// compare against, gets no entry at all.
const (
	FlashUp   = "up"
	FlashDown = "down"
)

// quoteSource is the batch quote lookup the poller depends on.
type quoteSource interface {
	Spreads(ctx context.Context, pairs []string) (map[string]api.Quote, error)
}

// Snapshot is a point-in-time copy of the poller state for rendering.
type Snapshot struct {
	Quotes      map[string]api.Quote `json:"quotes"`
	Flash       map[string]string    `json:"flash"`
	LatencyMS   int64                `json:"latencyMs"`
	LastUpdated time.Time            `json:"lastUpdated"`
	Error       string               `json:"error,omitempty"`
}

// Poller drives the quote cycle for the watchlist. State is replaced
// wholesale each cycle; a failed cycle keeps the previous quotes visible
// and surfaces an error string instead of blanking the board.
type Poller struct {
	source    quoteSource
	watchlist *Watchlist
	interval  time.Duration
	journal   *journal.Journal
	logger    *logrus.Logger

	// seq numbers each request so a slow in-flight response can never
	// overwrite state written by a later cycle.
	seq atomic.Uint64

	mu          sync.Mutex
	applied     uint64
	quotes      map[string]api.Quote
	prevBids    map[string]float64
	flash       map[string]string
	latencyMS   int64
	lastUpdated time.Time
	errMsg      string
	flashTimer  *time.Timer
}

// NewPoller creates a quote poller. interval <= 0 selects DefaultInterval.
func NewPoller(source quoteSource, watchlist *Watchlist, interval time.Duration, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:    source,
		watchlist: watchlist,
		interval:  interval,
		logger:    logger,
		quotes:    make(map[string]api.Quote),
		prevBids:  make(map[string]float64),
		flash:     make(map[string]string),
	}
}

// SetJournal attaches an optional journal. Each successful cycle's quote
// map is recorded.
func (p *Poller) SetJournal(j *journal.Journal) {
	p.journal = j
}

// Watchlist exposes the poller's watchlist for mutation by the API layer.
func (p *Poller) Watchlist() *Watchlist {
	return p.watchlist
}

// Run polls until ctx is cancelled. The first cycle fires immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Infof("[pricefeed] Polling quotes every %v", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.teardown()
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce runs a single quote cycle.
func (p *Poller) pollOnce(ctx context.Context) {
	pairs := p.watchlist.Pairs()
	if len(pairs) == 0 {
		p.mu.Lock()
		p.quotes = make(map[string]api.Quote)
		p.flash = make(map[string]string)
		p.errMsg = ""
		p.mu.Unlock()
		return
	}

	seq := p.seq.Add(1)
	start := time.Now()
	quotes, err := p.source.Spreads(ctx, pairs)
	latency := time.Since(start).Milliseconds()

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq <= p.applied {
		p.logger.Debugf("[pricefeed] Discarding stale response (seq %d, applied %d)", seq, p.applied)
		return
	}
	p.applied = seq

	if err != nil {
		// Stale quotes stay on the board; only the error banner changes.
		p.errMsg = fmt.Sprintf("failed to fetch quotes: %v", err)
		p.logger.Warnf("[pricefeed] Quote cycle failed: %v", err)
		return
	}

	flash := make(map[string]string)
	bids := make(map[string]float64, len(quotes))
	for pair, q := range quotes {
		bids[pair] = q.Bid
		prev, ok := p.prevBids[pair]
		if !ok {
			continue
		}
		switch {
		case q.Bid > prev:
			flash[pair] = FlashUp
		case q.Bid < prev:
			flash[pair] = FlashDown
		}
	}

	p.quotes = quotes
	p.prevBids = bids
	p.flash = flash
	p.latencyMS = latency
	p.lastUpdated = time.Now()
	p.errMsg = ""

	p.journal.QuoteCycle(ctx, quotes)

	if p.flashTimer != nil {
		p.flashTimer.Stop()
	}
	p.flashTimer = time.AfterFunc(flashClearDelay, p.clearFlash)
}

// clearFlash wipes all flash signals. Fired once per cycle, 500ms after
// the quotes landed.
func (p *Poller) clearFlash() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flash = make(map[string]string)
}

// teardown releases the pending flash timer on shutdown.
func (p *Poller) teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.flashTimer != nil {
		p.flashTimer.Stop()
		p.flashTimer = nil
	}
}

// Snapshot returns a copy of the current poller state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	quotes := make(map[string]api.Quote, len(p.quotes))
	for k, v := range p.quotes {
		quotes[k] = v
	}
	flash := make(map[string]string, len(p.flash))
	for k, v := range p.flash {
		flash[k] = v
	}
	return Snapshot{
		Quotes:      quotes,
		Flash:       flash,
		LatencyMS:   p.latencyMS,
		LastUpdated: p.lastUpdated,
		Error:       p.errMsg,
	}
}

// Change computes the estimated session move for a watched pair from its
// latest quote. Returns an empty Change when the pair has no quote yet.
func (p *Poller) Change(pair string) Change {
	p.mu.Lock()
	q, ok := p.quotes[pair]
	p.mu.Unlock()
	if !ok {
		return Change{}
	}
	return CalculateChange(q)
}
