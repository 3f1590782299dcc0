package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"disclone/internal/config"
	"disclone/internal/logger"
	"disclone/internal/relay"
	"disclone/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The zap logger is configured from cfg, so it does not exist yet.
		stdlog.Fatalf("loading configuration: %v", err)
	}

	log := logger.New(logger.ParseLevel(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	hub := server.NewHub(log)
	registry := relay.NewRegistry()
	rel := relay.New(registry, hub, log)
	hub.Bind(rel)

	gateway := server.NewGateway(hub, rel, cfg, log)
	srv := server.CreateServer(cfg.Port, gateway.Routes())

	go hub.Run()

	go func() {
		log.Info("relay server listening", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	if err := server.ShutdownServer(srv, cfg.ShutdownTimeout, log); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Warn("hub shutdown", zap.Error(err))
	}
}
