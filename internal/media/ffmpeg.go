package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/mediaforge-api/internal/command"
	"github.com/maauso/mediaforge-api/internal/operation"
)

// ErrExecutorRequired is returned when a processor is built without an executor.
var ErrExecutorRequired = errors.New("executor is required")

// FFmpegProcessor implements Processor on top of an Executor.
type FFmpegProcessor struct {
	executor  Executor
	overwrite bool
	logger    *slog.Logger
}

// ProcessorOption configures an FFmpegProcessor.
type ProcessorOption func(*FFmpegProcessor)

// WithOverwrite lets commands replace an existing output file.
func WithOverwrite(enabled bool) ProcessorOption {
	return func(p *FFmpegProcessor) {
		p.overwrite = enabled
	}
}

// WithProcessorLogger sets the logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *FFmpegProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
func NewFFmpegProcessor(executor Executor, opts ...ProcessorOption) (*FFmpegProcessor, error) {
	if executor == nil {
		return nil, ErrExecutorRequired
	}
	p := &FFmpegProcessor{
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Plan translates req and renders its command.
func (p *FFmpegProcessor) Plan(req operation.Request) (command.Command, error) {
	if req == nil {
		return command.Command{}, fmt.Errorf("%w: nil request", operation.ErrInvalidArgument)
	}
	b, err := req.Translate()
	if err != nil {
		return command.Command{}, fmt.Errorf("%s: %w", req.Kind(), err)
	}
	if p.overwrite {
		b.Add(command.Overwrite{})
	}
	cmd, err := b.Build()
	if err != nil {
		return command.Command{}, fmt.Errorf("%s: %w", req.Kind(), err)
	}
	return cmd, nil
}

// Execute plans req and runs it once.
func (p *FFmpegProcessor) Execute(ctx context.Context, req operation.Request) (Result, error) {
	cmd, err := p.Plan(req)
	if err != nil {
		return Result{}, err
	}

	outcome := p.executor.Run(ctx, cmd.Args)
	result := NewResult(cmd, outcome)

	attrs := []any{
		slog.String("kind", string(req.Kind())),
		slog.String("outcome", result.Outcome),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", result.Duration),
	}
	if result.IsSuccess {
		p.logger.Info("operation completed", attrs...)
	} else {
		p.logger.Warn("operation failed", append(attrs,
			slog.String("command", result.CommandExecuted),
			slog.String("error", result.ErrorMessage))...)
	}
	return result, nil
}
