package pricefeed

import (
	"sync"

	"github.com/sirupsen/logrus"

	"fxdash/internal/store"
)

// MaxWatchlistSize caps how many pairs can be tracked for live quotes.
const MaxWatchlistSize = 10

// Watchlist is the ordered, bounded set of pairs tracked by the quote
// poller. Every successful mutation is persisted immediately.
type Watchlist struct {
	mu     sync.Mutex
	pairs  []string
	store  *store.Store
	logger *logrus.Logger
}

// NewWatchlist loads the persisted watchlist from the store, trimming it
// to the cap if an oversized file was left behind.
func NewWatchlist(st *store.Store, logger *logrus.Logger) *Watchlist {
	pairs := st.Watchlist()
	if len(pairs) > MaxWatchlistSize {
		logger.Warnf("[pricefeed] Persisted watchlist has %d pairs, trimming to %d", len(pairs), MaxWatchlistSize)
		pairs = pairs[:MaxWatchlistSize]
	}
	return &Watchlist{pairs: pairs, store: st, logger: logger}
}

// Pairs returns a copy of the current watchlist.
func (w *Watchlist) Pairs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.pairs))
	copy(out, w.pairs)
	return out
}

// Add appends a pair. Returns false without error when the pair is already
// present or the watchlist is full.
func (w *Watchlist) Add(pair string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pairs) >= MaxWatchlistSize {
		return false
	}
	for _, p := range w.pairs {
		if p == pair {
			return false
		}
	}
	w.pairs = append(w.pairs, pair)
	w.persist()
	return true
}

// Remove deletes a pair. Returns false when the pair was not present.
func (w *Watchlist) Remove(pair string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, p := range w.pairs {
		if p == pair {
			w.pairs = append(w.pairs[:i], w.pairs[i+1:]...)
			w.persist()
			return true
		}
	}
	return false
}

// persist writes the current pairs through the store. Caller holds w.mu.
func (w *Watchlist) persist() {
	if err := w.store.SaveWatchlist(w.pairs); err != nil {
		w.logger.Errorf("[pricefeed] Failed to persist watchlist: %v", err)
	}
}
