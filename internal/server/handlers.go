package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediaforge-api/internal/job"
	"github.com/maauso/mediaforge-api/internal/media"
	"github.com/maauso/mediaforge-api/internal/operation"
	"github.com/maauso/mediaforge-api/internal/storage"
)

// DefaultMaxUploadBytes caps request bodies when no limit is configured.
const DefaultMaxUploadBytes = 100 << 20

// JobService is the async job API used by the handlers.
type JobService interface {
	Submit(ctx context.Context, in job.SubmitInput) (*job.Job, error)
	Get(ctx context.Context, id string) (*job.Job, error)
	Delete(ctx context.Context, id string) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	processor media.Processor
	store     storage.Storage
	jobs      JobService
	validator *validator.Validate
	logger    *slog.Logger
	maxUpload int64
	s3Enabled bool
	ffmpeg    string
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes caps the size of a request body.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithS3 reports whether publish=true can be honoured.
func WithS3(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.s3Enabled = enabled
	}
}

// WithFFmpegPath sets the executable reported by the health check.
func WithFFmpegPath(path string) HandlerOption {
	return func(h *Handlers) {
		h.ffmpeg = path
	}
}

// NewHandlers creates a new Handlers instance. jobs may be nil, in which
// case async=true is rejected.
func NewHandlers(processor media.Processor, store storage.Storage, jobs JobService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		processor: processor,
		store:     store,
		jobs:      jobs,
		validator: newValidator(),
		logger:    logger,
		maxUpload: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", FFmpeg: h.ffmpeg})
}

// Operations handles GET /api/operations requests.
func (h *Handlers) Operations(w http.ResponseWriter, _ *http.Request) {
	specs := operation.Specs()
	resp := make([]OperationResponse, 0, len(specs))
	for _, s := range specs {
		resp = append(resp, OperationResponse{Kind: string(s.Kind), Description: s.Description, Inputs: s.Inputs})
	}
	writeJSON(w, http.StatusOK, resp)
}

// operationHandler returns the handler for one operation endpoint: it stores the
// uploads, validates the form, then runs the operation synchronously or
// queues it as a job.
func (h *Handlers) operationHandler(ep endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body exceeds %s", humanize.IBytes(uint64(tooLarge.Limit))), "PAYLOAD_TOO_LARGE")
				return
			}
			writeError(w, http.StatusBadRequest, "expected multipart/form-data body", "INVALID_FORM")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		log := h.logger.With(slog.String("kind", string(ep.kind)))
		call := &opCall{form: newFormReader(r), store: h.store}

		if err := h.saveUploads(r, call, ep.files); err != nil {
			h.discard(call)
			if errors.Is(err, errMissingFile) {
				writeError(w, http.StatusBadRequest, err.Error(), "MISSING_FILE")
				return
			}
			log.Error("failed to store upload", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to store upload", "UPLOAD_FAILED")
			return
		}

		form, req := ep.build(call)
		delivery := call.form.delivery()
		if err := h.validate(call, form); err != nil {
			h.discard(call)
			log.Warn("request validation failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		if call.err != nil {
			h.discard(call)
			log.Error("failed to allocate output", slog.String("error", call.err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to allocate output", "STORAGE_ERROR")
			return
		}
		if _, err := h.processor.Plan(req); err != nil {
			h.discard(call)
			if errors.Is(err, operation.ErrInvalidArgument) {
				writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ARGUMENT")
				return
			}
			log.Error("failed to plan operation", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to plan operation", "PLAN_FAILED")
			return
		}
		if delivery.Publish && !h.s3Enabled {
			h.discard(call)
			writeError(w, http.StatusBadRequest, storage.ErrS3NotConfigured.Error(), "S3_NOT_CONFIGURED")
			return
		}

		if delivery.Async {
			h.submit(w, r, call, req, delivery)
			return
		}
		h.execute(w, r, call, req, delivery)
	}
}

func (h *Handlers) saveUploads(r *http.Request, call *opCall, fields []string) error {
	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return fmt.Errorf("%w: form field %q is required", errMissingFile, field)
			}
			return err
		}
		name, err := h.store.SaveUpload(r.Context(), header.Filename, file)
		_ = file.Close()
		if err != nil {
			return err
		}
		path, err := h.store.Path(storage.AreaInput, name)
		if err != nil {
			return err
		}
		call.names = append(call.names, name)
		call.paths = append(call.paths, path)
	}
	return nil
}

func (h *Handlers) validate(call *opCall, form any) error {
	if err := call.form.err(); err != nil {
		return err
	}
	if form == nil {
		return nil
	}
	return h.validator.Struct(form)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, call *opCall, req operation.Request, d Delivery) {
	if h.jobs == nil {
		h.discard(call)
		writeError(w, http.StatusBadRequest, "async processing is not enabled", "ASYNC_DISABLED")
		return
	}

	created, err := h.jobs.Submit(r.Context(), job.SubmitInput{
		Request:     req,
		Inputs:      call.names,
		OutputName:  call.output,
		ContentType: operation.ContentType(call.output),
		Publish:     d.Publish,
	})
	if err != nil {
		h.discard(call)
		h.logger.Error("failed to create job", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	w.Header().Set("Location", "/jobs/"+created.ID)
	writeJSON(w, http.StatusAccepted, newJobResponse(created))
}

func (h *Handlers) execute(w http.ResponseWriter, r *http.Request, call *opCall, req operation.Request, d Delivery) {
	defer h.discard(call)

	res, err := h.processor.Execute(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ARGUMENT")
		return
	}
	if !res.IsSuccess {
		// The executed command is logged by the processor, never returned.
		writeError(w, http.StatusInternalServerError, res.ErrorMessage, "PROCESSING_FAILED")
		return
	}

	if d.Publish {
		url, err := h.store.Publish(r.Context(), call.output, "")
		if err != nil {
			h.logger.Error("failed to publish output",
				slog.String("output", call.output),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "failed to publish output", "PUBLISH_FAILED")
			return
		}
		writeJSON(w, http.StatusOK, PublishResponse{URL: url, Result: res})
		return
	}

	h.stream(w, r, call.output)
}

// stream writes an output file as the response body.
func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, name string) {
	f, err := h.store.Open(r.Context(), storage.AreaOutput, name)
	if err != nil {
		h.logger.Error("failed to open output", slog.String("output", name), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "output file is missing", "OUTPUT_MISSING")
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", operation.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("failed to stream output", slog.String("output", name), slog.String("error", err.Error()))
	}
}

// discard removes a request's uploads and output in the background.
func (h *Handlers) discard(call *opCall) {
	names := append([]string(nil), call.names...)
	if call.output != "" {
		names = append(names, call.output)
	}
	if len(names) == 0 {
		return
	}
	go func() {
		if err := h.store.Cleanup(context.Background(), names); err != nil {
			h.logger.Warn("cleanup failed", slog.String("error", err.Error()))
		}
	}()
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(found))
}

// GetJobOutput handles GET /jobs/{id}/output requests.
func (h *Handlers) GetJobOutput(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	if found.Status != job.StatusCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s", found.Status), "JOB_NOT_COMPLETED")
		return
	}
	if found.OutputURL != "" {
		http.Redirect(w, r, found.OutputURL, http.StatusFound)
		return
	}
	h.stream(w, r, found.OutputName)
}

// DeleteJob handles DELETE /jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	}
	jobID := r.PathValue("id")
	if err := h.jobs.Delete(r.Context(), jobID); err != nil {
		h.jobError(w, jobID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) findJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return nil, false
	}
	if h.jobs == nil {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return nil, false
	}
	found, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		h.jobError(w, jobID, err)
		return nil, false
	}
	return found, true
}

func (h *Handlers) jobError(w http.ResponseWriter, jobID string, err error) {
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	}
	h.logger.Error("job request failed",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "job request failed", "JOB_FETCH_FAILED")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
