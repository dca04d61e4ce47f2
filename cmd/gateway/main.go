package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

import (
	"github.com/grocerfind/edge-gateway/internal/api"
	"github.com/grocerfind/edge-gateway/internal/config"
	"github.com/grocerfind/edge-gateway/internal/health"
	"github.com/grocerfind/edge-gateway/internal/limiter"
	"github.com/grocerfind/edge-gateway/internal/proxy"
	"github.com/grocerfind/edge-gateway/internal/repo"
	"github.com/grocerfind/edge-gateway/internal/token"
)

func main() {
	confPath := flag.String("c", "configs/gateway.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	rdb := repo.NewRedis(cfg, logger)
	defer rdb.Close()

	// A down counter store is not fatal: the limiter fails open until it
	// comes back.
	pingCtx, cancelPing := context.WithTimeout(rootCtx, 2*time.Second)
	if err := rdb.Ping(pingCtx); err != nil {
		logger.Warn("counter store unreachable at startup, rate limiting degraded", "err", err)
	}
	cancelPing()

	registry := proxy.NewRegistry(cfg.Services)
	lim := limiter.NewFixedWindow(rdb, cfg.RateLimit, logger)
	validator := token.NewValidator(cfg.JWT)
	forwarder := proxy.NewForwarder(registry, cfg.Forward, logger)
	aggregator := health.NewAggregator(registry, rdb, cfg.Health, logger)

	gateway := api.NewServer(cfg, lim, validator, forwarder, aggregator, logger)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gateway.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("gateway is running", "addr", cfg.Server.HTTPAddr, "pid", os.Getpid())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down gateway")
	cancelRoot()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	logger.Info("gateway exited properly")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
