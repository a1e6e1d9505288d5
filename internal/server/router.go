// Package server exposes the gateway state over a gin REST API.
package server

import (
	"github.com/gin-gonic/gin"
)

type Config struct {
	Handler *Handler
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	api := router.Group("/v1/")
	registerRoutes(api, cfg.Handler)

	return router
}

func registerRoutes(router *gin.RouterGroup, h *Handler) {
	quotes := router.Group("/quotes")
	{
		quotes.GET("", h.GetQuotes)
		quotes.GET("/:pair/change", h.GetChange)
	}

	watchlist := router.Group("/watchlist")
	{
		watchlist.GET("", h.GetWatchlist)
		watchlist.POST("", h.AddWatchlistPair)
		watchlist.DELETE("/:pair", h.RemoveWatchlistPair)
	}

	router.GET("/candles", h.GetCandles)

	dash := router.Group("/dashboard")
	{
		dash.GET("", h.GetDashboard)
		dash.POST("/refresh", h.RefreshDashboard)
	}

	conn := router.Group("/connection")
	{
		conn.GET("", h.GetConnection)
		conn.POST("/connect", h.ConnectStream)
		conn.POST("/disconnect", h.DisconnectStream)
	}

	theme := router.Group("/theme")
	{
		theme.GET("", h.GetTheme)
		theme.PUT("", h.SetTheme)
	}
}
