package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/mediaforge-api/internal/media"
	"github.com/maauso/mediaforge-api/internal/operation"
	"github.com/maauso/mediaforge-api/internal/storage"
)

// ErrRequestRequired is returned by Submit without an operation request.
var ErrRequestRequired = errors.New("operation request is required")

// SubmitInput describes an operation to run in the background. File names
// refer to the storage areas; the request's paths must already point at them.
type SubmitInput struct {
	// Request is the translated operation to execute.
	Request operation.Request
	// Inputs are the uploaded input names, removed once the job ends.
	Inputs []string
	// OutputName is the output file name in the output area.
	OutputName string
	// ContentType is the MIME type served for the output.
	ContentType string
	// Publish uploads the output to S3 after a successful run.
	Publish bool
}

// Service runs operations asynchronously and tracks them as jobs.
//
// Every job runs in its own goroutine on a context detached from the
// submitting request. Deleting a running job cancels its process.
type Service struct {
	repo      Repository
	processor media.Processor
	store     storage.Storage
	logger    *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a new Service.
func NewService(repo Repository, processor media.Processor, store storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		processor: processor,
		store:     store,
		logger:    logger,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Submit creates a job in IN_QUEUE status and starts it in the background.
// The returned job is a snapshot taken before processing begins.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Job, error) {
	if in.Request == nil {
		return nil, ErrRequestRequired
	}

	job := New(in.Request.Kind())
	job.Inputs = append([]string(nil), in.Inputs...)
	job.OutputName = in.OutputName
	job.ContentType = in.ContentType
	job.Publish = in.Publish

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("job submitted",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.Bool("publish", job.Publish),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	snapshot := job.Clone()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(runCtx, job, in.Request)
	}()

	return snapshot, nil
}

func (s *Service) run(ctx context.Context, job *Job, req operation.Request) {
	log := s.logger.With(slog.String("job_id", job.ID), slog.String("kind", string(job.Kind)))

	if err := job.Start(); err != nil {
		log.Error("failed to start job", slog.String("error", err.Error()))
		return
	}
	s.saveLive(ctx, job, log)

	res, err := s.processor.Execute(ctx, req)
	switch {
	case err != nil:
		_ = job.Fail(err.Error())
	default:
		if ferr := job.Finish(res); ferr != nil {
			log.Error("failed to finish job", slog.String("error", ferr.Error()))
		}
		if res.IsSuccess && job.Publish {
			s.publish(ctx, job, log)
		}
	}

	log.Info("job finished",
		slog.String("status", string(job.GetStatus())),
		slog.Duration("duration", res.Duration),
	)

	if !s.finalize(ctx, job, log) {
		// Deleted while running; nothing left to record.
		s.cleanup(job.Files(), log)
		return
	}
	s.cleanup(job.Inputs, log)
}

func (s *Service) publish(ctx context.Context, job *Job, log *slog.Logger) {
	url, err := s.store.Publish(ctx, job.OutputName, "")
	if err != nil {
		log.Warn("failed to publish output", slog.String("error", err.Error()))
		job.mu.Lock()
		job.Error = fmt.Sprintf("publish: %v", err)
		job.mu.Unlock()
		return
	}
	job.SetOutputURL(url)
	log.Info("output published", slog.String("url", url))
}

// finalize saves the finished job unless it was deleted while running.
func (s *Service) finalize(ctx context.Context, job *Job, log *slog.Logger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancels[job.ID]; !ok {
		return false
	}
	delete(s.cancels, job.ID)
	s.save(ctx, job, log)
	return true
}

// saveLive persists job unless it was deleted in the meantime.
func (s *Service) saveLive(ctx context.Context, job *Job, log *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancels[job.ID]; ok {
		s.save(ctx, job, log)
	}
}

func (s *Service) save(ctx context.Context, job *Job, log *slog.Logger) {
	if err := s.repo.Save(ctx, job); err != nil {
		log.Error("failed to save job", slog.String("error", err.Error()))
	}
}

// cleanup removes names in the background. Failures are only logged.
func (s *Service) cleanup(names []string, log *slog.Logger) {
	if len(names) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.store.Cleanup(context.Background(), names); err != nil {
			log.Warn("cleanup failed", slog.String("error", err.Error()))
		}
	}()
}

// Get retrieves a job by ID.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every known job.
func (s *Service) List(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Delete removes a job and its files. A running job is cancelled first and
// its goroutine removes the files once the process exits.
func (s *Service) Delete(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	cancel, running := s.cancels[id]
	delete(s.cancels, id)
	err = s.repo.Delete(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if running {
		cancel()
	} else {
		s.cleanup(job.Files(), s.logger.With(slog.String("job_id", id)))
	}

	s.logger.Info("job deleted", slog.String("job_id", id), slog.Bool("was_running", running))
	return nil
}

// Expire deletes terminal jobs that finished before cutoff along with their
// files, and returns how many were removed.
func (s *Service) Expire(ctx context.Context, cutoff time.Time) (int, error) {
	jobs, err := s.repo.ListFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return n, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}
		if err := s.repo.Delete(ctx, job.ID); err != nil {
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return n, err
		}
		s.cleanup(job.Files(), s.logger.With(slog.String("job_id", job.ID)))
		n++
	}
	return n, nil
}

// Retained returns the storage names owned by every tracked job.
func (s *Service) Retained(ctx context.Context) ([]string, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, job := range jobs {
		names = append(names, job.Files()...)
	}
	return names, nil
}

// Wait blocks until every running job and pending cleanup has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
