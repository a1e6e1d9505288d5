// Package stream owns the logical streaming connection to the trading
// server. It retries with exponential backoff on unexpected closes and
// delivers lifecycle and message events on a channel, so consumers get
// clear backpressure and shutdown semantics instead of ad hoc callbacks.
package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

// Connection states. Exactly one is active at a time.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Event kinds delivered on the client's event channel.
type EventType int

const (
	EventOpen EventType = iota
	EventMessage
	EventClosed
	EventError
)

// Event is one lifecycle or message event from the connection.
type Event struct {
	Type    EventType
	Message Message // set for EventMessage
	Err     error   // set for EventError
}

const (
	defaultMaxRetries = 10
	defaultBackoffMin = 1 * time.Second
	defaultBackoffMax = 30 * time.Second

	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second

	eventBufferSize = 64
)

// Config holds connection settings.
type Config struct {
	// URL is the full streaming endpoint (see URL).
	URL string

	// MaxRetries is the number of consecutive failures tolerated before
	// the connection becomes terminal Error. Default 10.
	MaxRetries int

	// BackoffMin is the first retry delay. Default 1s.
	BackoffMin time.Duration

	// BackoffMax caps the retry delay. Default 30s.
	BackoffMax time.Duration
}

// Client manages one logical streaming connection with automatic recovery.
// All methods are safe for concurrent use.
type Client struct {
	cfg    Config
	logger *logrus.Logger
	dialer *websocket.Dialer
	events chan Event

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	dialing    bool
	reconnect  bool
	failures   int
	backoff    *backoff.Backoff
	retryTimer *time.Timer
	// connGen invalidates read loops of replaced connections.
	connGen uint64

	writeMu sync.Mutex
}

// NewClient creates a client for the given config. The connection is not
// opened until Connect is called.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = defaultBackoffMin
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		events: make(chan Event, eventBufferSize),
		state:  StateDisconnected,
		backoff: &backoff.Backoff{
			Min:    cfg.BackoffMin,
			Max:    cfg.BackoffMax,
			Factor: 2,
		},
	}
}

// Events returns the channel of connection events. The channel is never
// closed; consumers stop via their own context.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the streaming connection. It is a no-op while a connection
// is open or an attempt is in flight, preventing duplicate sockets. A
// pending retry timer is replaced by an immediate attempt.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.dialing || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.stopRetryTimerLocked()
	c.reconnect = true
	c.dialing = true
	c.state = StateConnecting
	c.mu.Unlock()

	go c.dial()
}

// Disconnect closes the connection, cancels any pending retry and disables
// auto-reconnect. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.reconnect = false
	c.stopRetryTimerLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connGen++
	if c.state != StateDisconnected {
		c.state = StateDisconnected
		c.logger.Infof("[stream] Disconnected")
	}
	c.mu.Unlock()
}

// Send writes a payload to the transport. Non-string payloads are
// serialized to JSON. Returns false, without raising, when the transport is
// absent or not open.
func (c *Client) Send(v any) bool {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateConnected
	c.mu.Unlock()

	if conn == nil || !open {
		return false
	}

	var data []byte
	switch p := v.(type) {
	case string:
		data = []byte(p)
	case []byte:
		data = p
	default:
		var err error
		if data, err = json.Marshal(p); err != nil {
			c.logger.Warnf("[stream] Failed to serialize outbound payload: %v", err)
			return false
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Warnf("[stream] Write failed: %v", err)
		return false
	}
	return true
}

// dial performs one connection attempt.
func (c *Client) dial() {
	attemptID := uuid.NewString()[:8]
	c.logger.Infof("[stream] Connecting to %s (attempt %s)", c.cfg.URL, attemptID)

	conn, _, err := c.dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		c.emit(Event{Type: EventError, Err: err})
		c.handleFailure(err)
		return
	}

	c.mu.Lock()
	c.dialing = false
	if !c.reconnect {
		// Disconnect raced the dial; drop the fresh socket.
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.failures = 0
	c.backoff.Reset()
	c.connGen++
	gen := c.connGen
	c.mu.Unlock()

	c.logger.Infof("[stream] Connected (attempt %s)", attemptID)
	c.emit(Event{Type: EventOpen})

	go c.readLoop(conn, gen)
	go c.pingLoop(conn, gen)
}

// readLoop reads messages until the transport fails or is replaced.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, gen, err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		msg, err := parseMessage(raw)
		if err != nil {
			// Malformed payloads are dropped; the connection is unaffected.
			c.logger.Warnf("[stream] Dropping message: %v", err)
			continue
		}
		c.emit(Event{Type: EventMessage, Message: msg})
	}
}

// pingLoop keeps the connection alive until the transport is replaced.
func (c *Client) pingLoop(conn *websocket.Conn, gen uint64) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		stale := c.connGen != gen
		c.mu.Unlock()
		if stale {
			return
		}

		deadline := time.Now().Add(writeTimeout)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			return
		}
	}
}

// handleClose reacts to a transport close observed by the read loop.
func (c *Client) handleClose(conn *websocket.Conn, gen uint64, err error) {
	c.mu.Lock()
	if c.connGen != gen {
		// Already replaced or intentionally closed.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connGen++
	c.mu.Unlock()

	conn.Close()
	c.logger.Warnf("[stream] Connection closed: %v", err)
	c.emit(Event{Type: EventClosed})
	c.handleFailure(err)
}

// handleFailure schedules a retry or transitions to a terminal state.
// Backoff doubles per scheduled retry (capped); MaxRetries consecutive
// failures end in terminal Error. Counters reset only on successful open.
func (c *Client) handleFailure(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dialing = false

	if !c.reconnect {
		c.state = StateDisconnected
		return
	}

	c.failures++
	if c.failures >= c.cfg.MaxRetries {
		c.state = StateError
		c.logger.Errorf("[stream] Giving up after %d failures: %v", c.failures, cause)
		return
	}

	delay := c.backoff.Duration()
	c.state = StateReconnecting
	c.logger.Warnf("[stream] Reconnecting in %v (failure %d/%d)", delay, c.failures, c.cfg.MaxRetries)

	c.retryTimer = time.AfterFunc(delay, c.retry)
}

// retry fires when the backoff timer elapses.
func (c *Client) retry() {
	c.mu.Lock()
	if !c.reconnect || c.dialing || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	c.state = StateConnecting
	c.mu.Unlock()

	c.dial()
}

func (c *Client) stopRetryTimerLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// emit delivers an event without blocking the connection goroutines. A full
// buffer drops the event with a warning, matching the consumer-lag policy
// of the poll loops.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warnf("[stream] Event buffer full, dropping event")
	}
}
