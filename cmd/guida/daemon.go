package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mraffaele/guida/internal/api"
	"github.com/mraffaele/guida/internal/config"
	"github.com/mraffaele/guida/internal/log"
)

func cmdDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	listen := fs.String("listen", ":8080", "address for the HTTP query API")
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("daemon")

	p, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Hot reload: a changed source registry takes effect on the next cycle.
	if err := config.Watch(ctx, *configPath, func(next *config.Config) {
		p.manager.SetSources(next.Sources)
	}); err != nil {
		logger.Warn().Err(err).Msg("config watcher unavailable")
	}

	go p.manager.Run(ctx, cfg.RefreshInterval())

	addr := cfg.API.Listen
	if addr == "" {
		addr = *listen
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           api.New(p.manager, cfg.API.RateLimit).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("event", "daemon.listen").Str("addr", addr).Msg("HTTP API listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			return 1
		}
	case <-ctx.Done():
		logger.Info().Str("event", "daemon.shutdown").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("shutdown incomplete")
		}
	}
	return 0
}
