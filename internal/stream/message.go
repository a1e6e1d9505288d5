package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound message discriminators.
const (
	MessageCandleUpdate = "candle_update"
	MessageHeartbeat    = "heartbeat"
)

// Message is one parsed inbound stream message. Type is the discriminator;
// Data is the full payload for typed decoding.
type Message struct {
	Type string
	Data json.RawMessage
}

// envelope extracts the discriminator during the first decode pass.
type envelope struct {
	Type string `json:"type"`
}

// parseMessage validates raw bytes as a discriminated JSON message.
func parseMessage(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, fmt.Errorf("malformed stream message: %w", err)
	}
	if env.Type == "" {
		return Message{}, fmt.Errorf("stream message without type discriminator")
	}
	return Message{Type: env.Type, Data: json.RawMessage(raw)}, nil
}

// CandleUpdate is the payload of a candle_update message. Time arrives
// either as the compact "YY-MM-DD HH:MM" string or as epoch seconds; the
// candles package normalizes it.
type CandleUpdate struct {
	Time  any     `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// CandleUpdate decodes the message payload as a candle update.
func (m Message) CandleUpdate() (CandleUpdate, error) {
	var u CandleUpdate
	if err := json.Unmarshal(m.Data, &u); err != nil {
		return CandleUpdate{}, fmt.Errorf("malformed candle update: %w", err)
	}
	return u, nil
}

// URL builds the streaming endpoint for a pair and timeframe.
func URL(base, pair, timeframe string) string {
	return fmt.Sprintf("%s/ws/prices/%s/%s", strings.TrimRight(base, "/"), pair, timeframe)
}
