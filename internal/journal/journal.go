// Package journal publishes closed candles and quote cycles to Kafka so
// downstream consumers can replay the feed. The journal is optional: with
// no broker configured every publish is a no-op.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"fxdash/configs"
	"fxdash/internal/api"
	"fxdash/internal/candles"
)

// Record kinds written to the topic.
const (
	KindCandle = "candle"
	KindQuotes = "quotes"
)

// Record is one journal entry.
type Record struct {
	Kind   string               `json:"kind"`
	Pair   string               `json:"pair"`
	Time   int64                `json:"time"`
	Candle *candles.Candle      `json:"candle,omitempty"`
	Quotes map[string]api.Quote `json:"quotes,omitempty"`
}

// Journal writes records to a Kafka topic. A nil *Journal is valid and
// drops everything, so callers never have to branch on configuration.
type Journal struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// New creates a journal from config. Returns nil when no broker is set.
func New(cfg configs.JournalConfig, logger *logrus.Logger) *Journal {
	if cfg.Broker == "" {
		logger.Info("[journal] No broker configured, journaling disabled")
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Compression:  kafka.Zstd,
	}
	logger.Infof("[journal] Publishing to %s topic %q", cfg.Broker, cfg.Topic)
	return &Journal{writer: writer, logger: logger}
}

// CandleClosed records a candle that just completed.
func (j *Journal) CandleClosed(ctx context.Context, pair string, c candles.Candle) {
	if j == nil {
		return
	}
	j.publish(ctx, Record{Kind: KindCandle, Pair: pair, Time: c.Time, Candle: &c})
}

// QuoteCycle records the full quote map from one successful poll cycle.
func (j *Journal) QuoteCycle(ctx context.Context, quotes map[string]api.Quote) {
	if j == nil || len(quotes) == 0 {
		return
	}
	j.publish(ctx, Record{Kind: KindQuotes, Time: time.Now().Unix(), Quotes: quotes})
}

func (j *Journal) publish(ctx context.Context, rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		j.logger.Errorf("[journal] Failed to marshal record: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := j.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(rec.Pair),
		Value: data,
	}); err != nil {
		if ctx.Err() != nil {
			return
		}
		j.logger.Errorf("[journal] Failed to publish %s record: %v", rec.Kind, err)
	}
}

// Close flushes and closes the underlying writer.
func (j *Journal) Close() {
	if j == nil {
		return
	}
	if err := j.writer.Close(); err != nil {
		j.logger.Errorf("[journal] Error closing writer: %v", err)
	} else {
		j.logger.Info("[journal] Writer closed")
	}
}
