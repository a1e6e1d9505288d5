// Package feed bridges streaming candle updates into the aggregation
// buffer and reloads candle history when the connection (re)opens.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"fxdash/internal/api"
	"fxdash/internal/candles"
	"fxdash/internal/journal"
	"fxdash/internal/stream"
)

// historyCount is how many candles are requested on each history load.
const historyCount = 200

// eventSource delivers streaming connection events.
type eventSource interface {
	Events() <-chan stream.Event
}

// historySource serves the historical candle fetch.
type historySource interface {
	History(ctx context.Context, pair, timeframe string, count int) ([]candles.Candle, error)
}

// Feed drives a candle aggregator from streaming updates. When a newer
// candle arrives the previous current candle is rolled into the
// historical sequence and journaled.
type Feed struct {
	source    eventSource
	history   historySource
	agg       *candles.Aggregator
	journal   *journal.Journal
	pair      string
	timeframe string
	logger    *logrus.Logger

	mu         sync.Mutex
	historyErr string
}

// New wires a feed for one pair/timeframe. journal may be nil.
func New(source eventSource, history historySource, agg *candles.Aggregator,
	jrnl *journal.Journal, pair, timeframe string, logger *logrus.Logger) *Feed {
	return &Feed{
		source:    source,
		history:   history,
		agg:       agg,
		journal:   jrnl,
		pair:      pair,
		timeframe: timeframe,
		logger:    logger,
	}
}

// Run consumes connection events until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.source.Events():
			switch ev.Type {
			case stream.EventOpen:
				go f.loadHistory(ctx)
			case stream.EventMessage:
				if ev.Message.Type == stream.MessageCandleUpdate {
					f.handleUpdate(ctx, ev.Message)
				}
			case stream.EventClosed:
				f.logger.Debug("[feed] Stream closed, awaiting reconnect")
			case stream.EventError:
				f.logger.Debugf("[feed] Stream error: %v", ev.Err)
			}
		}
	}
}

// loadHistory replaces the historical sequence from the REST endpoint.
// A timeout gets its own message so the UI can say "timed out" instead
// of a generic failure.
func (f *Feed) loadHistory(ctx context.Context) {
	cs, err := f.history.History(ctx, f.pair, f.timeframe, historyCount)
	if err != nil {
		msg := "failed to load candle history"
		if errors.Is(err, api.ErrTimeout) {
			msg = "candle history request timed out"
		}
		f.logger.Warnf("[feed] %s: %v", msg, err)
		f.setHistoryErr(msg)
		return
	}

	f.agg.SetHistorical(cs)
	f.setHistoryErr("")
	f.logger.Infof("[feed] Loaded %d historical candles for %s %s", len(cs), f.pair, f.timeframe)
}

// handleUpdate applies one candle update. An update with a newer
// timestamp closes the previous current candle.
func (f *Feed) handleUpdate(ctx context.Context, msg stream.Message) {
	update, err := msg.CandleUpdate()
	if err != nil {
		f.logger.Warnf("[feed] Dropping bad candle update: %v", err)
		return
	}

	c := candles.Candle{
		Time:  candles.Normalize(update.Time, f.logger),
		Open:  update.Open,
		High:  update.High,
		Low:   update.Low,
		Close: update.Close,
	}

	if cur, ok := f.agg.Current(); ok && c.Time > cur.Time {
		f.agg.AddCompleted(cur)
		f.journal.CandleClosed(ctx, f.pair, cur)
	}
	f.agg.UpdateCurrent(c)
}

// HistoryError reports the last history-load failure, empty when the most
// recent load succeeded.
func (f *Feed) HistoryError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyErr
}

func (f *Feed) setHistoryErr(msg string) {
	f.mu.Lock()
	f.historyErr = msg
	f.mu.Unlock()
}
