// Package api implements the REST client for the trading server.
// It only carries the wire contract; business logic stays on the server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fxdash/internal/candles"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 10 * time.Second

	// historyTimeout bounds the candle history fetch; exceeding it surfaces
	// ErrTimeout rather than a generic failure.
	historyTimeout = 8 * time.Second

	requestsPerSecond = 10
)

// ErrTimeout is returned when a request loses the race against its fixed
// timer. Callers show a distinct "timed out" message for it.
var ErrTimeout = errors.New("request timed out")

// Client is a rate-limited REST client for the trading server.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger

	historyTimeout time.Duration
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: requestTimeout},
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), 10),
		logger:         logger,
		historyTimeout: historyTimeout,
	}
}

// Account fetches the account snapshot.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.get(ctx, "/api/account", nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// OpenTrades fetches the list of currently open trades.
func (c *Client) OpenTrades(ctx context.Context) ([]Trade, error) {
	var trades []Trade
	if err := c.get(ctx, "/api/trades", nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// TradeHistory fetches the list of closed trades.
func (c *Client) TradeHistory(ctx context.Context) ([]Trade, error) {
	var trades []Trade
	if err := c.get(ctx, "/api/trades/history", nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// BotStatus fetches the status of the primary bot.
func (c *Client) BotStatus(ctx context.Context) (*BotStatus, error) {
	var status BotStatus
	if err := c.get(ctx, "/api/bot/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// BotsStatus fetches the status of all configured bots.
func (c *Client) BotsStatus(ctx context.Context) ([]BotStatus, error) {
	var statuses []BotStatus
	if err := c.get(ctx, "/api/bots/status", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Spreads fetches quotes for a batch of pairs in one request.
func (c *Client) Spreads(ctx context.Context, pairs []string) (map[string]Quote, error) {
	query := url.Values{"pairs": {strings.Join(pairs, ",")}}

	var quotes map[string]Quote
	if err := c.get(ctx, "/api/spreads", query, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// History fetches the historical candle sequence for a pair/timeframe.
// The request races a fixed timer; on expiry ErrTimeout is returned so the
// caller can show a distinct "timed out" message.
func (c *Client) History(ctx context.Context, pair, timeframe string, count int) ([]candles.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, c.historyTimeout)
	defer cancel()

	query := url.Values{
		"pair":      {pair},
		"timeframe": {timeframe},
		"count":     {fmt.Sprintf("%d", count)},
	}

	var cs []candles.Candle
	if err := c.get(ctx, "/api/candles", query, &cs); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: candle history for %s", ErrTimeout, pair)
		}
		return nil, err
	}
	return cs, nil
}

// get performs a rate-limited GET and decodes the JSON response into v.
func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The transport wraps context errors; unwrap so callers can
		// distinguish deadline expiry.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
