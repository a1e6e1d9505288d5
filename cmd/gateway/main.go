package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"fxdash/configs"
	"fxdash/internal/api"
	"fxdash/internal/candles"
	"fxdash/internal/dashboard"
	"fxdash/internal/feed"
	"fxdash/internal/journal"
	"fxdash/internal/pricefeed"
	"fxdash/internal/server"
	"fxdash/internal/store"
	"fxdash/internal/stream"
)

func main() {
	cfg := configs.AppLoad()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	st, err := store.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatalf("Failed to open data directory: %v", err)
	}

	client := api.NewClient(cfg.APIBaseURL, logger)

	jrnl := journal.New(cfg.Journal, logger)
	defer jrnl.Close()

	// Streaming candles feed the aggregator; history reloads on each open.
	agg := candles.NewAggregator()
	streamClient := stream.NewClient(stream.Config{
		URL: stream.URL(cfg.StreamBaseURL, cfg.Pair, cfg.Timeframe),
	}, logger)
	fd := feed.New(streamClient, client, agg, jrnl, cfg.Pair, cfg.Timeframe, logger)

	watchlist := pricefeed.NewWatchlist(st, logger)
	quotes := pricefeed.NewPoller(client, watchlist, cfg.QuoteInterval, logger)
	quotes.SetJournal(jrnl)

	dash := dashboard.NewPoller(client, cfg.DashboardInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go fd.Run(ctx)
	go quotes.Run(ctx)
	go dash.Run(ctx)
	streamClient.Connect()

	handler := server.NewHandler(quotes, dash, fd, agg, streamClient, st, logger)
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: server.NewRouter(&server.Config{Handler: handler}),
	}

	go func() {
		logger.Infof("[server] Listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("[server] Listen failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal, gracefully shutting down...")

	streamClient.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("[server] Shutdown error: %v", err)
	}
}
