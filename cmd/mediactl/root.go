package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaforge-api/internal/bootstrap"
	"github.com/maauso/mediaforge-api/internal/config"
	"github.com/maauso/mediaforge-api/internal/media"
)

type commandContext struct {
	ffmpegFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(ffmpegFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		ffmpegFlag:   ffmpegFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the environment configuration once and applies flag
// overrides on top.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if c.ffmpegFlag != nil && strings.TrimSpace(*c.ffmpegFlag) != "" {
			cfg.FFmpegPath = strings.TrimSpace(*c.ffmpegFlag)
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.LogLevel = *c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// processor builds a processor that logs to the command's stderr.
func (c *commandContext) processor(cmd *cobra.Command) (*media.FFmpegProcessor, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLoggerTo(cmd.ErrOrStderr())
	p, err := bootstrap.NewProcessor(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, logger, nil
}

func newRootCommand() *cobra.Command {
	var ffmpegFlag string
	var logLevelFlag string

	ctx := newCommandContext(&ffmpegFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "mediactl",
		Short:         "Plan and run ffmpeg media operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ffmpegFlag, "ffmpeg", "", "ffmpeg executable (overrides FFMPEG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newOperationsCommand())
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))

	return rootCmd
}
