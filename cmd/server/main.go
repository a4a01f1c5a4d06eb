// Package main provides the entry point for the media API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/maauso/mediaforge-api/internal/bootstrap"
	"github.com/maauso/mediaforge-api/internal/config"
	"github.com/maauso/mediaforge-api/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting media API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("work_dir", cfg.WorkDir),
		slog.String("ffmpeg_path", cfg.FFmpegPath),
		slog.String("max_upload", humanize.IBytes(uint64(cfg.MaxUploadBytes))),
		slog.Duration("command_timeout", cfg.CommandTimeout),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	if err := deps.Janitor.Start(ctx); err != nil {
		return fmt.Errorf("start janitor: %w", err)
	}

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.Processor, deps.Store, deps.Jobs, logger,
		server.WithMaxUploadBytes(cfg.MaxUploadBytes),
		server.WithS3(cfg.S3Enabled()),
		server.WithFFmpegPath(cfg.FFmpegPath),
	)
	router := server.NewRouter(handlers, logger, server.DefaultConfig())

	// Synchronous requests hold the connection until ffmpeg finishes.
	writeTimeout := 300 * time.Second
	if cfg.CommandTimeout > 0 {
		writeTimeout = cfg.CommandTimeout + time.Minute
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		deps.Janitor.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	stop()
	deps.Janitor.Stop()

	done := make(chan struct{})
	go func() {
		deps.Jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("jobs still running at shutdown")
	}

	logger.Info("server stopped gracefully")
	return nil
}
