package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chat-relay/internal/config"
	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/directory"
	"github.com/rickgao/chat-relay/internal/router"
	"github.com/rickgao/chat-relay/internal/store"
	"github.com/rickgao/chat-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.example.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "config", *configPath, "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("relay failed", "error", err)
		os.Exit(1)
	}
	logger.Info("relay stopped")
}

func run(cfg *config.RelayConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	dir, closeDir, err := directory.Open(ctx, cfg.Directory, st, logger)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	defer closeDir()

	rt := router.New(router.Config{
		Rooms:               cfg.Chat.Rooms,
		HistoryLimit:        cfg.Chat.HistoryLimit,
		PrivateHistoryLimit: cfg.Chat.PrivateHistoryLimit,
		TypingWindow:        cfg.Chat.TypingWindow,
	}, st, dir, logger)
	defer rt.Close()

	srvCfg := connection.DefaultServerConfig()
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.PingInterval = cfg.Server.PingInterval
	srvCfg.MaxMessageBytes = cfg.Server.MaxMessageBytes
	srvCfg.OutboxSize = cfg.Server.OutboxSize
	ws := connection.NewServer(srvCfg, rt, logger)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WSPath, ws)
	mountHealth(mux, st, dir, rt, ws)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("relay listening",
			"addr", cfg.Server.Addr,
			"ws_path", cfg.Server.WSPath,
			"rooms", len(cfg.Chat.Rooms),
			"store", cfg.Store.Driver,
			"directory", cfg.Directory.Driver,
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Hijacked WebSocket connections are not tracked by http.Server.
		wsErr := ws.Shutdown(shutdownCtx)
		httpErr := httpServer.Shutdown(shutdownCtx)
		return errors.Join(wsErr, httpErr)
	})

	return g.Wait()
}

// newLogger builds the process logger from cfg. Validation has already
// rejected unknown levels and formats.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
