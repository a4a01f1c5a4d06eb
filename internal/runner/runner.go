// Package runner executes the media-processing binary and classifies how it
// ended. It never returns an error: every failure mode is an Outcome.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
)

// DefaultPath is the executable looked up on PATH when none is configured.
const DefaultPath = "ffmpeg"

// waitDelay bounds how long output is still read after the context ends.
// A grandchild that inherited the pipes can keep them open past the kill;
// once the delay passes the read ends are closed and Run returns.
const waitDelay = 5 * time.Second

// maxLine caps a single captured line. Output after an overlong line is
// read and discarded.
const maxLine = 1 << 20

// OutcomeKind classifies how an invocation ended.
type OutcomeKind int

const (
	Succeeded OutcomeKind = iota
	Failed
	SpawnFailed
	TimedOut
	Canceled
)

func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case SpawnFailed:
		return "spawn_failed"
	case TimedOut:
		return "timed_out"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the immutable record of one invocation. ExitCode is -1 when the
// process never started or was killed by a signal.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (o Outcome) Success() bool {
	return o.Kind == Succeeded
}

// Runner spawns the configured executable. It holds only configuration and
// is safe for concurrent use.
type Runner struct {
	path      string
	logOutput bool
	timeout   time.Duration
	waitDelay time.Duration
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLogOutput logs the command line before execution and every captured
// line as it arrives.
func WithLogOutput(enabled bool) Option {
	return func(r *Runner) {
		r.logOutput = enabled
	}
}

// WithTimeout bounds each invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// New returns a Runner for the executable at path, or DefaultPath if empty.
func New(path string, opts ...Option) *Runner {
	if path == "" {
		path = DefaultPath
	}
	r := &Runner{
		path:      path,
		waitDelay: waitDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the configured executable.
func (r *Runner) Path() string {
	return r.path
}

// Run executes the binary with args, passed as a literal vector without a
// shell. It returns once the process has exited and both output streams
// have been fully drained.
func (r *Runner) Run(ctx context.Context, args []string) Outcome {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if r.logOutput {
		r.safeLog(ctx, slog.LevelInfo, "running command",
			slog.String("path", r.path),
			slog.String("args", strings.Join(args, " ")))
	}

	start := time.Now()
	// #nosec G204 - path comes from configuration and args are passed without a shell
	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.WaitDelay = r.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return spawnFailure(fmt.Errorf("stdout pipe: %w", err), start)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return spawnFailure(fmt.Errorf("stderr pipe: %w", err), start)
	}

	if err := cmd.Start(); err != nil {
		out := spawnFailure(err, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Kind = contextKind(ctxErr)
		}
		return out
	}

	var (
		wg                 sync.WaitGroup
		outLines, errLines []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outLines = r.drain(ctx, stdout, "stdout")
	}()
	go func() {
		defer wg.Done()
		errLines = r.drain(ctx, stderr, "stderr")
	}()

	drained := make(chan struct{})
	go closeAfterDelay(ctx, drained, r.waitDelay, stdout, stderr)

	// Pipes must be fully read before Wait closes them.
	wg.Wait()
	close(drained)
	waitErr := cmd.Wait()

	out := Outcome{
		Stdout:   strings.Join(outLines, "\n"),
		Stderr:   strings.Join(errLines, "\n"),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && waitErr != nil:
		out.Kind = TimedOut
		out.Err = fmt.Errorf("timed out after %s: %w", out.Duration.Round(time.Millisecond), ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled) && waitErr != nil:
		out.Kind = Canceled
		out.Err = ctx.Err()
	case waitErr != nil:
		out.Kind = Failed
		out.Err = waitErr
	default:
		out.Kind = Succeeded
	}

	if r.logOutput {
		r.safeLog(ctx, slog.LevelInfo, "command finished",
			slog.String("outcome", out.Kind.String()),
			slog.Int("exit_code", out.ExitCode),
			slog.Duration("duration", out.Duration))
	}
	return out
}

// RunLine splits line into arguments the way a POSIX shell would, without
// invoking one, and runs them.
func (r *Runner) RunLine(ctx context.Context, line string) Outcome {
	args, err := shlex.Split(line)
	if err != nil {
		return spawnFailure(fmt.Errorf("split arguments: %w", err), time.Now())
	}
	return r.Run(ctx, args)
}

// closeAfterDelay closes the pipes if they are still being drained delay
// after ctx ends, unblocking readers held up by a surviving grandchild.
func closeAfterDelay(ctx context.Context, drained <-chan struct{}, delay time.Duration, pipes ...io.Closer) {
	select {
	case <-drained:
		return
	case <-ctx.Done():
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		for _, p := range pipes {
			_ = p.Close()
		}
	}
}

func contextKind(err error) OutcomeKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimedOut
	}
	return Canceled
}

func spawnFailure(err error, start time.Time) Outcome {
	return Outcome{
		Kind:     SpawnFailed,
		ExitCode: -1,
		Err:      err,
		Duration: time.Since(start),
	}
}

// drain reads rd until EOF, splitting on both \n and \r so progress updates
// become separate lines. It keeps reading after a scan error so the child
// never blocks on a full pipe.
func (r *Runner) drain(ctx context.Context, rd io.Reader, stream string) []string {
	var lines []string
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	sc.Split(scanLines)
	for sc.Scan() {
		line := sc.Text()
		lines = append(lines, line)
		if r.logOutput {
			r.safeLog(ctx, slog.LevelDebug, line, slog.String("stream", stream))
		}
	}
	if sc.Err() != nil {
		_, _ = io.Copy(io.Discard, rd)
	}
	return lines
}

// scanLines is bufio.ScanLines that also treats a lone \r as a terminator.
// Empty lines are dropped.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\n' || data[start] == '\r') {
		start++
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF {
		if start < len(data) {
			return len(data), data[start:], nil
		}
		return len(data), nil, nil
	}
	return start, nil, nil
}

// safeLog emits a record and swallows any panic from the handler; a broken
// log sink must not change the outcome.
func (r *Runner) safeLog(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	defer func() { _ = recover() }()
	r.logger.LogAttrs(context.WithoutCancel(ctx), level, msg, attrs...)
}
