// Package job runs media operations asynchronously. It includes the Job
// entity with its state machine, a repository port with an in-memory
// implementation, and the Service that executes jobs in the background.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/mediaforge-api/internal/job/id"
	"github.com/maauso/mediaforge-api/internal/media"
	"github.com/maauso/mediaforge-api/internal/operation"
	"github.com/maauso/mediaforge-api/internal/runner"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to start.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the external process is running.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the process failed or could not start.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates the process exceeded its time budget.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusTimedOut:  {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is one asynchronous operation.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Kind is the operation being run.
	Kind operation.Kind
	// Status is the current job state.
	Status Status
	// Error contains the failure message when the job did not complete.
	Error string
	// Inputs are the storage names of the uploaded input files.
	Inputs []string
	// OutputName is the storage name of the output file.
	OutputName string
	// ContentType is the MIME type of the output.
	ContentType string
	// Result is the executed command's report, set once the process ends.
	Result *media.Result
	// Publish indicates whether to upload the output to S3.
	Publish bool
	// OutputURL is the S3 URL if the output was published.
	OutputURL string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a job for kind with a generated ID in IN_QUEUE status.
func New(kind operation.Kind) *Job {
	return NewWithID(id.Generate(), kind)
}

// NewWithID creates a job with the specified ID in IN_QUEUE status.
func NewWithID(jobID string, kind operation.Kind) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Kind:      kind,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Fail transitions the job to FAILED with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// Cancel transitions the job to CANCELLED.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// Finish records the process result and moves the job to the matching
// terminal state.
func (j *Job) Finish(res media.Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	next := StatusFailed
	switch {
	case res.IsSuccess:
		next = StatusCompleted
	case res.Kind() == runner.TimedOut:
		next = StatusTimedOut
	case res.Kind() == runner.Canceled:
		next = StatusCancelled
	}
	if err := j.transitionLocked(next); err != nil {
		return err
	}
	r := res
	j.Result = &r
	j.Error = res.ErrorMessage
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetOutputURL records where the output was published.
func (j *Job) SetOutputURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputURL = url
	j.UpdatedAt = time.Now()
}

// ClearOutput forgets the output file after it has been removed.
func (j *Job) ClearOutput() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputName = ""
	j.OutputURL = ""
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Files returns every storage name owned by the job.
func (j *Job) Files() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	files := make([]string, 0, len(j.Inputs)+1)
	files = append(files, j.Inputs...)
	if j.OutputName != "" {
		files = append(files, j.OutputName)
	}
	return files
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	inputs := make([]string, len(j.Inputs))
	copy(inputs, j.Inputs)

	var result *media.Result
	if j.Result != nil {
		r := *j.Result
		result = &r
	}

	return &Job{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Error:       j.Error,
		Inputs:      inputs,
		OutputName:  j.OutputName,
		ContentType: j.ContentType,
		Result:      result,
		Publish:     j.Publish,
		OutputURL:   j.OutputURL,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
