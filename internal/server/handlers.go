package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fxdash/internal/candles"
	"fxdash/internal/dashboard"
	"fxdash/internal/feed"
	"fxdash/internal/pricefeed"
	"fxdash/internal/store"
	"fxdash/internal/stream"
)

// connection is the streaming lifecycle surface the API exposes.
type connection interface {
	State() stream.State
	Connect()
	Disconnect()
}

// Handler serves the synchronized gateway state over REST.
type Handler struct {
	quotes *pricefeed.Poller
	dash   *dashboard.Poller
	feed   *feed.Feed
	agg    *candles.Aggregator
	conn   connection
	store  *store.Store
	logger *logrus.Logger
}

func NewHandler(quotes *pricefeed.Poller, dash *dashboard.Poller, fd *feed.Feed,
	agg *candles.Aggregator, conn connection, st *store.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		quotes: quotes,
		dash:   dash,
		feed:   fd,
		agg:    agg,
		conn:   conn,
		store:  st,
		logger: logger,
	}
}

func (h *Handler) GetQuotes(c *gin.Context) {
	c.JSON(http.StatusOK, h.quotes.Snapshot())
}

func (h *Handler) GetChange(c *gin.Context) {
	pair := c.Param("pair")
	c.JSON(http.StatusOK, h.quotes.Change(pair))
}

func (h *Handler) GetWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pairs": h.quotes.Watchlist().Pairs()})
}

type watchlistRequest struct {
	Pair string `json:"pair" binding:"required"`
}

func (h *Handler) AddWatchlistPair(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pair is required"})
		return
	}

	added := h.quotes.Watchlist().Add(req.Pair)
	c.JSON(http.StatusOK, gin.H{
		"added": added,
		"pairs": h.quotes.Watchlist().Pairs(),
	})
}

func (h *Handler) RemoveWatchlistPair(c *gin.Context) {
	removed := h.quotes.Watchlist().Remove(c.Param("pair"))
	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
		"pairs":   h.quotes.Watchlist().Pairs(),
	})
}

func (h *Handler) GetCandles(c *gin.Context) {
	resp := gin.H{"candles": h.agg.MergedView()}
	if msg := h.feed.HistoryError(); msg != "" {
		resp["error"] = msg
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.Snapshot())
}

func (h *Handler) RefreshDashboard(c *gin.Context) {
	h.dash.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, h.dash.Snapshot())
}

func (h *Handler) GetConnection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stream": h.conn.State().String(),
		"health": h.dash.Health(),
	})
}

func (h *Handler) ConnectStream(c *gin.Context) {
	h.conn.Connect()
	c.JSON(http.StatusOK, gin.H{"stream": h.conn.State().String()})
}

func (h *Handler) DisconnectStream(c *gin.Context) {
	h.conn.Disconnect()
	c.JSON(http.StatusOK, gin.H{"stream": h.conn.State().String()})
}

func (h *Handler) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": h.store.Theme()})
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required,oneof=dark light"`
}

func (h *Handler) SetTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be dark or light"})
		return
	}
	if err := h.store.SaveTheme(req.Theme); err != nil {
		h.logger.Errorf("[server] Failed to save theme: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save theme"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}
