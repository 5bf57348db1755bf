package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adidharmatoru/remo-signal/internal/config"
	"github.com/adidharmatoru/remo-signal/internal/pubsub"
	"github.com/adidharmatoru/remo-signal/internal/registry"
	"github.com/adidharmatoru/remo-signal/internal/rtc"
	"github.com/adidharmatoru/remo-signal/internal/server"
	"github.com/adidharmatoru/remo-signal/internal/websocket"
)

func main() {
	address := flag.String("address", "", "listen address (host:port), overrides SERVER_ADDR")
	flag.Parse()

	// Best-effort .env loading; the host environment wins in production
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.ServerAddr = *address
	}

	// Structured logging for everything past configuration
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Room-event bus (in-memory for single instance, Redis to scale out)
	var bus pubsub.PubSub
	switch cfg.PubSubType {
	case "redis":
		bus, err = pubsub.NewRedisPubSub(cfg.RedisURL, logger)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
	default:
		bus = pubsub.NewMemoryPubSub()
	}
	defer bus.Close()

	// Signalling core: registry, ICE resolver, hub
	reg := registry.New(logger.With("component", "registry"))
	resolver := rtc.NewResolver(rtc.EnvSource{}, logger.With("component", "rtc"))
	hub := websocket.NewHub(reg, resolver, logger.With("component", "hub"))

	announcer := websocket.NewPubSubAnnouncer(bus, hub, logger)
	if err := announcer.Start(context.Background()); err != nil {
		slog.Error("failed to start room announcer", "error", err)
		os.Exit(1)
	}
	defer announcer.Stop()
	hub.SetAnnouncer(announcer)

	wsHandler := websocket.NewHandler(hub, logger.With("component", "websocket"))

	srv := server.New(cfg, &server.Dependencies{
		WSHandler: wsHandler,
		Logger:    logger,
	})

	// Graceful shutdown setup
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr, "env", cfg.Env, "pubsub", cfg.PubSubType)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-shutdownCtx.Done()
	slog.Info("shutting down gracefully...")

	// Give active connections 10 seconds to finish
	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer timeoutCancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
