// Package cleanup removes stale workspace files and expired jobs on a cron
// schedule.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/maauso/mediaforge-api/internal/storage"
)

// Sweeper removes old files from the workspace.
type Sweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration, keep ...string) (int, error)
}

// JobExpirer drops finished jobs and reports the files live jobs still own.
type JobExpirer interface {
	Expire(ctx context.Context, cutoff time.Time) (int, error)
	Retained(ctx context.Context) ([]string, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a five-field cron expression or
// a descriptor such as "@every 15m".
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", expr, err)
	}
	return nil
}

// Report summarises one cleanup pass.
type Report struct {
	Expired int
	Swept   int
	Skipped bool
}

// Janitor runs cleanup passes on a schedule.
type Janitor struct {
	schedule  string
	store     Sweeper
	jobs      JobExpirer
	maxAge    time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Janitor) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithMaxAge sets how old a workspace file must be before it is swept.
// Zero disables sweeping.
func WithMaxAge(d time.Duration) Option {
	return func(j *Janitor) { j.maxAge = d }
}

// WithRetention sets how long finished jobs are kept. Zero disables expiry.
func WithRetention(d time.Duration) Option {
	return func(j *Janitor) { j.retention = d }
}

// NewJanitor creates a janitor for schedule. jobs may be nil when async
// jobs are not in use.
func NewJanitor(schedule string, store Sweeper, jobs JobExpirer, opts ...Option) (*Janitor, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	j := &Janitor{
		schedule:  schedule,
		store:     store,
		jobs:      jobs,
		maxAge:    time.Hour,
		retention: 24 * time.Hour,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Start schedules cleanup passes until Stop is called or ctx is done.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil {
		return errors.New("janitor already started")
	}

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{j.logger}),
		cron.WithChain(cron.Recover(cronLogger{j.logger}), cron.SkipIfStillRunning(cronLogger{j.logger})),
	)
	if _, err := c.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	c.Start()
	j.cron = c

	j.logger.Info("janitor started",
		slog.String("schedule", j.schedule),
		slog.Duration("max_age", j.maxAge),
		slog.Duration("retention", j.retention),
	)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()
	return nil
}

// Stop stops scheduling and waits for a running pass to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	j.logger.Info("janitor stopped")
}

// RunOnce expires old jobs, then sweeps stale files that no remaining job
// owns.
func (j *Janitor) RunOnce(ctx context.Context) Report {
	var report Report

	var keep []string
	if j.jobs != nil {
		if j.retention > 0 {
			n, err := j.jobs.Expire(ctx, j.now().Add(-j.retention))
			if err != nil {
				j.logger.Warn("failed to expire jobs", slog.String("error", err.Error()))
			}
			report.Expired = n
		}

		names, err := j.jobs.Retained(ctx)
		if err != nil {
			// Without the retained set a sweep could remove live outputs.
			j.logger.Warn("failed to list job files, skipping sweep", slog.String("error", err.Error()))
			report.Skipped = true
			return report
		}
		keep = names
	}

	n, err := j.store.Sweep(ctx, j.maxAge, keep...)
	report.Swept = n
	switch {
	case errors.Is(err, storage.ErrSweepLocked):
		report.Skipped = true
		j.logger.Info("sweep skipped, another sweep holds the lock")
	case err != nil:
		j.logger.Warn("sweep finished with errors", slog.String("error", err.Error()))
	}

	if report.Expired > 0 || report.Swept > 0 {
		j.logger.Info("cleanup pass finished",
			slog.Int("expired_jobs", report.Expired),
			slog.Int("swept_files", report.Swept),
		)
	}
	return report
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
