// Package bootstrap provides dependency initialization for the media API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/mediaforge-api/internal/cleanup"
	"github.com/maauso/mediaforge-api/internal/config"
	"github.com/maauso/mediaforge-api/internal/job"
	"github.com/maauso/mediaforge-api/internal/media"
	"github.com/maauso/mediaforge-api/internal/runner"
	"github.com/maauso/mediaforge-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Store     storage.Storage
	Processor *media.FFmpegProcessor
	Jobs      *job.Service
	Janitor   *cleanup.Janitor
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	processor, err := NewProcessor(cfg, logger)
	if err != nil {
		return nil, err
	}

	jobs := job.NewService(job.NewMemoryRepository(), processor, store, logger)

	janitor, err := cleanup.NewJanitor(cfg.CleanupSchedule, store, jobs,
		cleanup.WithLogger(logger),
		cleanup.WithMaxAge(cfg.CleanupMaxAge),
		cleanup.WithRetention(cfg.JobRetention),
	)
	if err != nil {
		return nil, fmt.Errorf("create janitor: %w", err)
	}

	return &Dependencies{
		Store:     store,
		Processor: processor,
		Jobs:      jobs,
		Janitor:   janitor,
	}, nil
}

// NewProcessor builds the ffmpeg runner and processor from cfg. It is
// shared by the server and the CLI.
func NewProcessor(cfg *config.Config, logger *slog.Logger) (*media.FFmpegProcessor, error) {
	run := runner.New(cfg.FFmpegPath,
		runner.WithLogger(logger),
		runner.WithLogOutput(cfg.FFmpegLogOutput),
		runner.WithTimeout(cfg.CommandTimeout),
	)
	processor, err := media.NewFFmpegProcessor(run,
		media.WithOverwrite(cfg.FFmpegOverwrite),
		media.WithProcessorLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}
	return processor, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.WorkDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("work_dir", cfg.WorkDir),
	)
	return localStore, nil
}
