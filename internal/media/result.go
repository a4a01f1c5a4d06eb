package media

import (
	"fmt"
	"strings"
	"time"

	"github.com/maauso/mediaforge-api/internal/command"
	"github.com/maauso/mediaforge-api/internal/runner"
)

// Result is returned for every executed operation. ErrorMessage is empty
// exactly when IsSuccess is true.
type Result struct {
	IsSuccess       bool          `json:"is_success"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	CommandExecuted string        `json:"command_executed"`
	OutputLog       string        `json:"output_log,omitempty"`
	ExitCode        int           `json:"exit_code"`
	Outcome         string        `json:"outcome"`
	Duration        time.Duration `json:"-"`

	args []string
	kind runner.OutcomeKind
	err  error
}

// NewResult maps a process outcome onto a Result. It performs no I/O.
func NewResult(cmd command.Command, o runner.Outcome) Result {
	r := Result{
		IsSuccess:       o.Success(),
		CommandExecuted: cmd.String(),
		ExitCode:        o.ExitCode,
		Outcome:         o.Kind.String(),
		Duration:        o.Duration,
		args:            cmd.Clone().Args,
		kind:            o.Kind,
		err:             o.Err,
	}

	if r.IsSuccess {
		r.OutputLog = o.Stdout
		return r
	}

	detail := strings.TrimSpace(o.Stderr)
	if detail == "" && o.Err != nil {
		detail = o.Err.Error()
	}
	r.ErrorMessage = failurePrefix(o.Kind)
	if detail != "" {
		r.ErrorMessage += ": " + detail
	}

	r.OutputLog = o.Stderr
	if r.OutputLog == "" && o.Err != nil {
		r.OutputLog = o.Err.Error()
	}
	return r
}

func failurePrefix(k runner.OutcomeKind) string {
	switch k {
	case runner.TimedOut:
		return "command timed out"
	case runner.Canceled:
		return "command canceled"
	case runner.SpawnFailed:
		return "command could not start"
	default:
		return "command failed"
	}
}

// Kind returns the runner classification of the outcome.
func (r Result) Kind() runner.OutcomeKind {
	return r.kind
}

// Err returns nil for a successful result and an *FFmpegError otherwise.
func (r Result) Err() error {
	if r.IsSuccess {
		return nil
	}
	err := r.err
	if err == nil {
		err = fmt.Errorf("exit status %d", r.ExitCode)
	}
	return &FFmpegError{
		Args:     r.args,
		Stderr:   r.OutputLog,
		ExitCode: r.ExitCode,
		Kind:     r.kind,
		Err:      err,
	}
}

// FFmpegError represents a failed invocation, including its stderr output.
type FFmpegError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Kind     runner.OutcomeKind
	Err      error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg %s (exit %d): %v\nargs: %v\nstderr: %s", e.Kind, e.ExitCode, e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
