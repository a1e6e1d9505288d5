package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxdash/internal/api"
	"fxdash/internal/candles"
	"fxdash/internal/dashboard"
	"fxdash/internal/feed"
	"fxdash/internal/pricefeed"
	"fxdash/internal/store"
	"fxdash/internal/stream"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type fakeQuoteSource struct{}

func (fakeQuoteSource) Spreads(_ context.Context, pairs []string) (map[string]api.Quote, error) {
	out := make(map[string]api.Quote, len(pairs))
	for _, p := range pairs {
		out[p] = api.Quote{Pair: p, Bid: 1.1, Ask: 1.1002}
	}
	return out, nil
}

type fakeBackend struct{}

func (fakeBackend) Account(context.Context) (*api.Account, error) {
	return &api.Account{Currency: "USD", Balance: 10000}, nil
}
func (fakeBackend) OpenTrades(context.Context) ([]api.Trade, error)   { return nil, nil }
func (fakeBackend) TradeHistory(context.Context) ([]api.Trade, error) { return nil, nil }
func (fakeBackend) BotStatus(context.Context) (*api.BotStatus, error) {
	return &api.BotStatus{Name: "scalper"}, nil
}
func (fakeBackend) BotsStatus(context.Context) ([]api.BotStatus, error) { return nil, nil }

type fakeEvents struct{ ch chan stream.Event }

func (f fakeEvents) Events() <-chan stream.Event { return f.ch }

type fakeHistory struct{}

func (fakeHistory) History(context.Context, string, string, int) ([]candles.Candle, error) {
	return nil, nil
}

type fakeConn struct {
	state stream.State
}

func (f *fakeConn) State() stream.State { return f.state }
func (f *fakeConn) Connect()            { f.state = stream.StateConnected }
func (f *fakeConn) Disconnect()         { f.state = stream.StateDisconnected }

type fixture struct {
	router *gin.Engine
	agg    *candles.Aggregator
	conn   *fakeConn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := testLogger()

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)

	watchlist := pricefeed.NewWatchlist(st, logger)
	quotes := pricefeed.NewPoller(fakeQuoteSource{}, watchlist, pricefeed.DefaultInterval, logger)
	dash := dashboard.NewPoller(fakeBackend{}, dashboard.DefaultInterval, logger)

	agg := candles.NewAggregator()
	fd := feed.New(fakeEvents{ch: make(chan stream.Event)}, fakeHistory{}, agg, nil,
		"EUR_USD", "M5", logger)

	conn := &fakeConn{}
	handler := NewHandler(quotes, dash, fd, agg, conn, st, logger)
	return &fixture{router: NewRouter(&Config{Handler: handler}), agg: agg, conn: conn}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWatchlistEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/watchlist", "")
	require.Equal(t, http.StatusOK, w.Code)
	pairs := decode(t, w)["pairs"].([]any)
	assert.Len(t, pairs, len(store.DefaultWatchlist))

	w = f.do(http.MethodPost, "/v1/watchlist", `{"pair":"AUD_USD"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["added"])
	assert.Len(t, body["pairs"].([]any), len(store.DefaultWatchlist)+1)

	w = f.do(http.MethodPost, "/v1/watchlist", `{"pair":"AUD_USD"}`)
	body = decode(t, w)
	assert.Equal(t, false, body["added"], "duplicate add is rejected silently")

	w = f.do(http.MethodDelete, "/v1/watchlist/AUD_USD", "")
	body = decode(t, w)
	assert.Equal(t, true, body["removed"])

	w = f.do(http.MethodDelete, "/v1/watchlist/AUD_USD", "")
	body = decode(t, w)
	assert.Equal(t, false, body["removed"])
}

func TestAddWatchlistPairValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/watchlist", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCandlesEndpoint(t *testing.T) {
	f := newFixture(t)
	f.agg.SetHistorical([]candles.Candle{{Time: 100, Close: 1.1}})
	f.agg.UpdateCurrent(candles.Candle{Time: 200, Close: 1.2})

	w := f.do(http.MethodGet, "/v1/candles", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["candles"].([]any), 2)
	assert.NotContains(t, body, "error")
}

func TestQuotesSnapshotShape(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/quotes", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body, "quotes")
	assert.Contains(t, body, "flash")
	assert.Contains(t, body, "latencyMs")
}

func TestChangeEndpointWithoutQuote(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/quotes/EUR_USD/change", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["pips"])
	assert.Nil(t, body["percent"])
}

func TestDashboardRefresh(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/dashboard/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	account := body["account"].(map[string]any)
	assert.Equal(t, "USD", account["currency"])
	assert.Equal(t, dashboard.HealthConnected, body["health"])
}

func TestConnectionEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/connection", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "disconnected", decode(t, w)["stream"])

	w = f.do(http.MethodPost, "/v1/connection/connect", "")
	assert.Equal(t, "connected", decode(t, w)["stream"])

	w = f.do(http.MethodPost, "/v1/connection/disconnect", "")
	assert.Equal(t, "disconnected", decode(t, w)["stream"])
}

func TestThemeEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/theme", "")
	assert.Equal(t, store.DefaultTheme, decode(t, w)["theme"])

	w = f.do(http.MethodPut, "/v1/theme", `{"theme":"light"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/v1/theme", "")
	assert.Equal(t, "light", decode(t, w)["theme"])

	w = f.do(http.MethodPut, "/v1/theme", `{"theme":"neon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
