package candles

import (
	"sort"
	"sync"
)

// Aggregator holds an immutable historical candle sequence plus one mutable
// "current" candle, and merges them into a chart-ready view.
//
// The historical sequence is kept strictly increasing by time. Out-of-order
// completed candles are inserted in sorted position; a candle whose time
// equals an existing entry replaces it (last write wins).
//
// Safe for concurrent use: the stream consumer writes while HTTP handlers
// read.
type Aggregator struct {
	mu         sync.RWMutex
	historical []Candle
	current    *Candle
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// SetHistorical replaces the historical sequence wholesale and clears the
// current candle. The input is copied, sorted by time, and de-duplicated
// (later entries win) so the sequence invariant holds regardless of source
// order.
func (a *Aggregator) SetHistorical(cs []Candle) {
	sorted := make([]Candle, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	deduped := sorted[:0]
	for _, c := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Time == c.Time {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	a.mu.Lock()
	a.historical = deduped
	a.current = nil
	a.mu.Unlock()
}

// AddCompleted appends a completed candle to the historical sequence.
// The common case (time greater than the last entry) is a plain append;
// a late candle is inserted at its sorted position, and an equal timestamp
// replaces the existing entry.
func (a *Aggregator) AddCompleted(c Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.historical)
	if n == 0 || c.Time > a.historical[n-1].Time {
		a.historical = append(a.historical, c)
		return
	}

	i := sort.Search(n, func(i int) bool { return a.historical[i].Time >= c.Time })
	if a.historical[i].Time == c.Time {
		a.historical[i] = c
		return
	}
	a.historical = append(a.historical, Candle{})
	copy(a.historical[i+1:], a.historical[i:])
	a.historical[i] = c
}

// UpdateCurrent replaces the mutable current candle wholesale.
func (a *Aggregator) UpdateCurrent(c Candle) {
	a.mu.Lock()
	a.current = &c
	a.mu.Unlock()
}

// MergedView returns historical ++ current as a fresh slice, without
// mutating internal state. The current candle is included only when its
// time is strictly greater than the last historical entry, keeping the view
// strictly increasing.
func (a *Aggregator) MergedView() []Candle {
	a.mu.RLock()
	defer a.mu.RUnlock()

	view := make([]Candle, len(a.historical), len(a.historical)+1)
	copy(view, a.historical)

	if a.current != nil {
		if n := len(view); n == 0 || a.current.Time > view[n-1].Time {
			view = append(view, *a.current)
		}
	}
	return view
}

// Current returns the current candle, or false when none is set.
func (a *Aggregator) Current() (Candle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.current == nil {
		return Candle{}, false
	}
	return *a.current, true
}

// Reset clears both the historical sequence and the current candle.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.historical = nil
	a.current = nil
	a.mu.Unlock()
}
