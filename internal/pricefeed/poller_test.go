package pricefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"fxdash/internal/api"
	"fxdash/internal/store"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testWatchlist(t *testing.T, pairs ...string) *Watchlist {
	t.Helper()
	st, err := store.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := st.SaveWatchlist(pairs); err != nil {
		t.Fatalf("Failed to seed watchlist: %v", err)
	}
	return NewWatchlist(st, testLogger())
}

// fakeSource scripts Spreads responses per call number (starting at 1).
type fakeSource struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, pairs []string) (map[string]api.Quote, error)
}

func (f *fakeSource) Spreads(_ context.Context, pairs []string) (map[string]api.Quote, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call, pairs)
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quoteWithBid(pair string, bid float64) map[string]api.Quote {
	return map[string]api.Quote{
		pair: {Pair: pair, Bid: bid, Ask: bid + 0.0002, High: bid + 0.005, Low: bid - 0.005},
	}
}

func TestWatchlistCapAndDuplicates(t *testing.T) {
	wl := testWatchlist(t)

	for i := 0; i < MaxWatchlistSize; i++ {
		if !wl.Add(string(rune('A'+i)) + "_USD") {
			t.Fatalf("Add %d unexpectedly rejected", i)
		}
	}
	if wl.Add("K_USD") {
		t.Error("Expected Add on a full watchlist to be rejected")
	}
	if wl.Add("A_USD") {
		t.Error("Expected duplicate Add to be rejected")
	}
	if got := len(wl.Pairs()); got != MaxWatchlistSize {
		t.Errorf("Expected %d pairs, got %d", MaxWatchlistSize, got)
	}

	if !wl.Remove("A_USD") {
		t.Fatal("Expected Remove of a present pair to succeed")
	}
	if !wl.Add("K_USD") {
		t.Error("Expected Add to succeed again after a removal")
	}
	if got := len(wl.Pairs()); got != MaxWatchlistSize {
		t.Errorf("Expected cap preserved at %d, got %d", MaxWatchlistSize, got)
	}
}

func TestWatchlistRemoveMissing(t *testing.T) {
	wl := testWatchlist(t, "EUR_USD")
	if wl.Remove("GBP_USD") {
		t.Error("Expected Remove of an absent pair to return false")
	}
}

func TestWatchlistPersistsAcrossInstances(t *testing.T) {
	st, err := store.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	wl := NewWatchlist(st, testLogger())
	wl.Add("NZD_USD")

	reloaded := NewWatchlist(st, testLogger())
	found := false
	for _, p := range reloaded.Pairs() {
		if p == "NZD_USD" {
			found = true
		}
	}
	if !found {
		t.Error("Expected the added pair to survive a reload")
	}
}

func TestEmptyWatchlistSkipsFetch(t *testing.T) {
	src := &fakeSource{fn: func(int, []string) (map[string]api.Quote, error) {
		return quoteWithBid("EUR_USD", 1.1), nil
	}}
	p := NewPoller(src, testWatchlist(t), DefaultInterval, testLogger())

	// Seed some state, then empty the watchlist.
	p.mu.Lock()
	p.quotes = quoteWithBid("EUR_USD", 1.1)
	p.mu.Unlock()

	p.pollOnce(context.Background())

	if src.callCount() != 0 {
		t.Error("Expected no request for an empty watchlist")
	}
	if got := len(p.Snapshot().Quotes); got != 0 {
		t.Errorf("Expected quotes cleared, got %d entries", got)
	}
}

func TestFlashDirections(t *testing.T) {
	src := &fakeSource{fn: func(call int, _ []string) (map[string]api.Quote, error) {
		if call == 1 {
			return map[string]api.Quote{
				"EUR_USD": {Pair: "EUR_USD", Bid: 1.10000, Ask: 1.10020},
				"GBP_USD": {Pair: "GBP_USD", Bid: 1.30000, Ask: 1.30020},
				"USD_JPY": {Pair: "USD_JPY", Bid: 150.00, Ask: 150.02},
			}, nil
		}
		return map[string]api.Quote{
			"EUR_USD": {Pair: "EUR_USD", Bid: 1.10050, Ask: 1.10070},
			"GBP_USD": {Pair: "GBP_USD", Bid: 1.29900, Ask: 1.29920},
			"USD_JPY": {Pair: "USD_JPY", Bid: 150.00, Ask: 150.02},
			"AUD_USD": {Pair: "AUD_USD", Bid: 0.65000, Ask: 0.65020},
		}, nil
	}}
	p := NewPoller(src, testWatchlist(t, "EUR_USD", "GBP_USD", "USD_JPY", "AUD_USD"), DefaultInterval, testLogger())

	p.pollOnce(context.Background())
	if got := len(p.Snapshot().Flash); got != 0 {
		t.Fatalf("Expected no flash on the first cycle, got %d entries", got)
	}

	p.pollOnce(context.Background())
	flash := p.Snapshot().Flash
	if flash["EUR_USD"] != FlashUp {
		t.Errorf("Expected EUR_USD up, got %q", flash["EUR_USD"])
	}
	if flash["GBP_USD"] != FlashDown {
		t.Errorf("Expected GBP_USD down, got %q", flash["GBP_USD"])
	}
	if _, ok := flash["USD_JPY"]; ok {
		t.Error("Expected no flash for an unchanged bid")
	}
	if _, ok := flash["AUD_USD"]; ok {
		t.Error("Expected no flash for a pair with no prior bid")
	}
}

func TestFlashClearsAfterDelay(t *testing.T) {
	src := &fakeSource{fn: func(call int, _ []string) (map[string]api.Quote, error) {
		return quoteWithBid("EUR_USD", 1.10+float64(call)*0.001), nil
	}}
	p := NewPoller(src, testWatchlist(t, "EUR_USD"), DefaultInterval, testLogger())

	p.pollOnce(context.Background())
	p.pollOnce(context.Background())

	if p.Snapshot().Flash["EUR_USD"] != FlashUp {
		t.Fatal("Expected a flash right after the cycle")
	}

	time.Sleep(flashClearDelay + 150*time.Millisecond)
	if got := len(p.Snapshot().Flash); got != 0 {
		t.Errorf("Expected flash cleared after %v, got %d entries", flashClearDelay, got)
	}
}

func TestFailedCycleKeepsStaleQuotes(t *testing.T) {
	src := &fakeSource{fn: func(call int, _ []string) (map[string]api.Quote, error) {
		if call == 2 {
			return nil, errors.New("backend down")
		}
		return quoteWithBid("EUR_USD", 1.1), nil
	}}
	p := NewPoller(src, testWatchlist(t, "EUR_USD"), DefaultInterval, testLogger())

	p.pollOnce(context.Background())
	p.pollOnce(context.Background())

	snap := p.Snapshot()
	if snap.Error == "" {
		t.Error("Expected an error message after a failed cycle")
	}
	if len(snap.Quotes) != 1 {
		t.Error("Expected stale quotes to remain visible")
	}

	p.pollOnce(context.Background())
	if got := p.Snapshot().Error; got != "" {
		t.Errorf("Expected error cleared by a good cycle, got %q", got)
	}
}

func TestQuotesReplacedWholesale(t *testing.T) {
	src := &fakeSource{fn: func(call int, _ []string) (map[string]api.Quote, error) {
		if call == 1 {
			return map[string]api.Quote{
				"EUR_USD": {Pair: "EUR_USD", Bid: 1.1},
				"GBP_USD": {Pair: "GBP_USD", Bid: 1.3},
			}, nil
		}
		return quoteWithBid("EUR_USD", 1.2), nil
	}}
	p := NewPoller(src, testWatchlist(t, "EUR_USD", "GBP_USD"), DefaultInterval, testLogger())

	p.pollOnce(context.Background())
	p.pollOnce(context.Background())

	snap := p.Snapshot()
	if _, ok := snap.Quotes["GBP_USD"]; ok {
		t.Error("Expected pairs missing from the latest response to be dropped")
	}
	if snap.LastUpdated.IsZero() {
		t.Error("Expected lastUpdated stamped on a good cycle")
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	src := &fakeSource{fn: func(call int, _ []string) (map[string]api.Quote, error) {
		if call == 1 {
			time.Sleep(100 * time.Millisecond)
			return quoteWithBid("EUR_USD", 1.0), nil
		}
		return quoteWithBid("EUR_USD", 2.0), nil
	}}
	p := NewPoller(src, testWatchlist(t, "EUR_USD"), DefaultInterval, testLogger())

	done := make(chan struct{})
	go func() {
		p.pollOnce(context.Background())
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	p.pollOnce(context.Background())
	<-done

	if got := p.Snapshot().Quotes["EUR_USD"].Bid; got != 2.0 {
		t.Errorf("Expected the newer response to win, got bid %v", got)
	}
}

func TestCalculateChange(t *testing.T) {
	eur := api.Quote{Pair: "EUR_USD", Bid: 1.10995, Ask: 1.11005, High: 1.2, Low: 1.0}
	change := CalculateChange(eur)
	if change.Pips == nil || change.Percent == nil {
		t.Fatal("Expected a computed change")
	}
	if *change.Pips != 100.0 {
		t.Errorf("Expected 100.0 pips, got %v", *change.Pips)
	}
	if *change.Percent != 0.91 {
		t.Errorf("Expected 0.91 percent, got %v", *change.Percent)
	}

	jpy := api.Quote{Pair: "USD_JPY", Bid: 149.49, Ask: 149.51, High: 150.0, Low: 148.0}
	change = CalculateChange(jpy)
	if change.Pips == nil {
		t.Fatal("Expected a computed change for the JPY pair")
	}
	if *change.Pips != 50.0 {
		t.Errorf("Expected 50.0 pips with a 0.01 pip size, got %v", *change.Pips)
	}
	if *change.Percent != 0.34 {
		t.Errorf("Expected 0.34 percent, got %v", *change.Percent)
	}

	empty := CalculateChange(api.Quote{Pair: "EUR_USD", Bid: 1.1, Ask: 1.1002})
	if empty.Pips != nil || empty.Percent != nil {
		t.Error("Expected nil change when high/low are missing")
	}
}
