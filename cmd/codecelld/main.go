package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrel-run/codecell/internal/api"
	"github.com/kestrel-run/codecell/internal/config"
	"github.com/kestrel-run/codecell/internal/orchestrator"
)

const version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "path to codecell.yaml")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if !cfg.AuthEnabled() {
		logger.Warn("no SECRET_KEY configured — running in open access mode")
	}

	if err := os.MkdirAll(cfg.ExecutionDir, 0755); err != nil {
		logger.Error("create execution dir", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		logger.Error("create cache dir", "error", err)
		os.Exit(1)
	}

	orc := orchestrator.New(cfg, logger)
	orc.Warm()

	srv := api.NewServer(cfg, orc, version, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // execution can run up to the configured timeout
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", addr)
	fmt.Fprintf(os.Stderr, "\n  codecell daemon ready at http://localhost%s\n\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
