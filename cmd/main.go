package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/registry"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/logger/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- postgres (опционально: архив сообщений) ---
	var archive *postgres.MessageArchive
	if cfg.Postgres.DSN != "" {
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		archive = postgres.NewMessageArchive(db.Pool)
		slog.Info("message archive enabled")
	}

	// --- registries ---
	defaultRooms := make([]registry.DefaultRoom, 0, len(cfg.Chat.DefaultRooms))
	for _, dr := range cfg.Chat.DefaultRooms {
		defaultRooms = append(defaultRooms, registry.DefaultRoom{
			Name:        dr.Name,
			Description: dr.Description,
		})
	}
	var arch registry.Archiver
	if archive != nil {
		arch = archive
	}
	reg := registry.New(registry.Config{
		HistoryCap:    cfg.Chat.HistoryCap,
		MaxOccupancy:  cfg.Chat.MaxOccupancy,
		MaxMessageLen: cfg.Chat.MaxMessageLen,
		EditWindow:    cfg.Chat.EditWindowDuration(),
		TypingTimeout: cfg.Chat.TypingTimeoutDuration(),
		SweepInterval: cfg.Chat.SweepIntervalDuration(),
		DefaultRooms:  defaultRooms,
	}, arch)

	// --- typing sweeper ---
	go reg.RunSweeper(ctx)

	// --- WS & HTTP ---
	wsServer := ws.NewServer(reg)
	handler := httpx.NewHandler(reg, archive)
	router := httpx.NewRouter(handler, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
