package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaforge-api/internal/command"
	"github.com/maauso/mediaforge-api/internal/job"
	"github.com/maauso/mediaforge-api/internal/media"
	"github.com/maauso/mediaforge-api/internal/operation"
	"github.com/maauso/mediaforge-api/internal/runner"
	"github.com/maauso/mediaforge-api/internal/storage"
)

// mockProcessor implements media.Processor for testing.
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Execute(ctx context.Context, req operation.Request) (media.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(media.Result), args.Error(1)
}

func (m *mockProcessor) Plan(req operation.Request) (command.Command, error) {
	args := m.Called(req)
	return args.Get(0).(command.Command), args.Error(1)
}

// mockJobs implements JobService for testing.
type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) Submit(ctx context.Context, in job.SubmitInput) (*job.Job, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockJobs) Get(ctx context.Context, id string) (*job.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockJobs) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// publishingStore fakes S3 on top of local storage.
type publishingStore struct {
	*storage.LocalStorage
}

func (s *publishingStore) Publish(_ context.Context, name, _ string) (string, error) {
	return "https://bucket.example/" + name, nil
}

type upload struct {
	field, filename, content string
}

func multipartBody(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func newTestRequest(t *testing.T, path string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	return req
}

type testEnv struct {
	store   *storage.LocalStorage
	proc    *mockProcessor
	jobs    *mockJobs
	handler http.Handler
}

func setupTestEnv(t *testing.T, opts ...HandlerOption) *testEnv {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return setupTestEnvWithStore(t, store, store, opts...)
}

func setupTestEnvWithStore(t *testing.T, local *storage.LocalStorage, store storage.Storage, opts ...HandlerOption) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{store: local, proc: new(mockProcessor), jobs: new(mockJobs)}
	h := NewHandlers(env.proc, store, env.jobs, logger, opts...)
	env.handler = NewRouter(h, logger, DefaultConfig())
	return env
}

// writesOutput makes Execute create the request's output file and succeed.
func writesOutput(content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		var out string
		switch r := args.Get(1).(type) {
		case *operation.Cut:
			out = r.Output
		case *operation.Thumbnail:
			out = r.Output
		case *operation.Volume:
			out = r.Output
		case *operation.AudioMix:
			out = r.Output
		}
		if out != "" {
			_ = os.WriteFile(out, []byte(content), 0o600)
		}
	}
}

func successResult() media.Result {
	return media.NewResult(command.Command{Args: []string{"-i", "in", "out"}}, runner.Outcome{Kind: runner.Succeeded})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t, WithFFmpegPath("/usr/bin/ffmpeg"))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "/usr/bin/ffmpeg", resp.FFmpeg)
}

func TestOperations(t *testing.T) {
	env := setupTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/operations", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []OperationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp, len(operation.Specs()))
	assert.Equal(t, "audio_mix", resp[0].Kind)
}

func TestRoutes(t *testing.T) {
	routes := Routes()
	assert.Len(t, routes, 14)
	assert.Contains(t, routes, "/api/video/green-screen")
	assert.Contains(t, routes, "/api/audio/convert")
}

func TestCut_Sync(t *testing.T) {
	env := setupTestEnv(t)
	var planned *operation.Cut
	env.proc.On("Plan", mock.AnythingOfType("*operation.Cut")).
		Run(func(args mock.Arguments) { planned = args.Get(0).(*operation.Cut) }).
		Return(command.Command{}, nil)
	env.proc.On("Execute", mock.Anything, mock.AnythingOfType("*operation.Cut")).
		Run(writesOutput("cut-bytes")).
		Return(successResult(), nil)

	req := newTestRequest(t, "/api/video/cut",
		[]upload{{"file", "clip.MP4", "video"}},
		map[string]string{"start": "5", "end": "1:30"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".mp4")
	assert.Equal(t, "cut-bytes", rec.Body.String())

	require.NotNil(t, planned)
	assert.Equal(t, "00:00:05", planned.Start)
	assert.Equal(t, "00:01:30", planned.End)

	// Uploads and output are removed once the response is written.
	assert.Eventually(t, func() bool {
		_, inErr := os.Stat(planned.Input)
		_, outErr := os.Stat(planned.Output)
		return os.IsNotExist(inErr) && os.IsNotExist(outErr)
	}, 2*time.Second, 10*time.Millisecond)
	env.proc.AssertExpectations(t)
}

func TestThumbnail_ContentType(t *testing.T) {
	env := setupTestEnv(t)
	env.proc.On("Plan", mock.Anything).Return(command.Command{}, nil)
	env.proc.On("Execute", mock.Anything, mock.Anything).Run(writesOutput("png")).Return(successResult(), nil)

	req := newTestRequest(t, "/api/video/thumbnail",
		[]upload{{"file", "clip.mp4", "video"}},
		map[string]string{"at": "00:00:02", "format": "png"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestAudioMix_DefaultFormat(t *testing.T) {
	env := setupTestEnv(t)
	var planned *operation.AudioMix
	env.proc.On("Plan", mock.AnythingOfType("*operation.AudioMix")).
		Run(func(args mock.Arguments) { planned = args.Get(0).(*operation.AudioMix) }).
		Return(command.Command{}, nil)
	env.proc.On("Execute", mock.Anything, mock.Anything).Run(writesOutput("mix")).Return(successResult(), nil)

	req := newTestRequest(t, "/api/audio/mix",
		[]upload{{"first", "a.wav", "a"}, {"second", "b.wav", "b"}}, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	require.NotNil(t, planned)
	assert.Equal(t, operation.MixLongest, planned.Duration)
	assert.NotEqual(t, planned.First, planned.Second)
}

func TestOperation_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		files  []upload
		fields map[string]string
		code   string
	}{
		{"bad time", "/api/video/cut", []upload{{"file", "a.mp4", "x"}}, map[string]string{"start": "abc", "end": "10"}, "VALIDATION_ERROR"},
		{"minutes out of range", "/api/video/cut", []upload{{"file", "a.mp4", "x"}}, map[string]string{"start": "00:75:00", "end": "5:99"}, "VALIDATION_ERROR"},
		{"missing end", "/api/video/cut", []upload{{"file", "a.mp4", "x"}}, map[string]string{"start": "1"}, "VALIDATION_ERROR"},
		{"missing file", "/api/video/cut", nil, map[string]string{"start": "1", "end": "2"}, "MISSING_FILE"},
		{"missing overlay", "/api/video/watermark", []upload{{"file", "a.mp4", "x"}}, nil, "MISSING_FILE"},
		{"non-numeric factor", "/api/video/change-speed", []upload{{"file", "a.mp4", "x"}}, map[string]string{"factor": "fast"}, "VALIDATION_ERROR"},
		{"zero factor", "/api/video/change-speed", []upload{{"file", "a.mp4", "x"}}, map[string]string{"factor": "0"}, "VALIDATION_ERROR"},
		{"both speed flags", "/api/video/change-speed", []upload{{"file", "a.mp4", "x"}}, map[string]string{"factor": "2", "video_only": "true", "audio_only": "true"}, "VALIDATION_ERROR"},
		{"gain too high", "/api/audio/volume", []upload{{"file", "a.mp3", "x"}}, map[string]string{"gain": "11"}, "VALIDATION_ERROR"},
		{"missing gain", "/api/audio/volume", []upload{{"file", "a.mp3", "x"}}, nil, "VALIDATION_ERROR"},
		{"crf out of range", "/api/video/compress", []upload{{"file", "a.mp4", "x"}}, map[string]string{"crf": "60"}, "VALIDATION_ERROR"},
		{"unknown preset", "/api/video/compress", []upload{{"file", "a.mp4", "x"}}, map[string]string{"preset": "warp"}, "VALIDATION_ERROR"},
		{"bad direction", "/api/video/merge", []upload{{"first", "a.mp4", "x"}, {"second", "b.mp4", "y"}}, map[string]string{"direction": "diagonal"}, "VALIDATION_ERROR"},
		{"filter injection in color", "/api/video/border", []upload{{"file", "a.mp4", "x"}}, map[string]string{"color": "black[x];[0:v]"}, "VALIDATION_ERROR"},
		{"chained filter in border color", "/api/video/border", []upload{{"file", "a.mp4", "x"}}, map[string]string{"color": "red,drawtext=textfile=/etc/hosts"}, "VALIDATION_ERROR"},
		{"chained filter in key color", "/api/video/green-screen", []upload{{"file", "a.mp4", "x"}, {"background", "b.mp4", "y"}}, map[string]string{"color": "green,hflip"}, "VALIDATION_ERROR"},
		{"option in color", "/api/video/border", []upload{{"file", "a.mp4", "x"}}, map[string]string{"color": "a=b"}, "VALIDATION_ERROR"},
		{"similarity out of range", "/api/video/green-screen", []upload{{"file", "a.mp4", "x"}, {"background", "b.mp4", "y"}}, map[string]string{"similarity": "2"}, "VALIDATION_ERROR"},
		{"image convert format", "/api/audio/convert", []upload{{"file", "a.wav", "x"}}, map[string]string{"format": "png"}, "VALIDATION_ERROR"},
		{"missing convert format", "/api/audio/convert", []upload{{"file", "a.wav", "x"}}, nil, "VALIDATION_ERROR"},
		{"video mix format", "/api/audio/mix", []upload{{"first", "a.wav", "x"}, {"second", "b.wav", "y"}}, map[string]string{"format": "mp4"}, "VALIDATION_ERROR"},
		{"bad async flag", "/api/video/grayscale", []upload{{"file", "a.mp4", "x"}}, map[string]string{"async": "perhaps"}, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)

			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, newTestRequest(t, tt.path, tt.files, tt.fields))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
			env.proc.AssertNotCalled(t, "Plan", mock.Anything)
			env.proc.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		})
	}
}

func TestOperation_InvalidArgumentFromTranslator(t *testing.T) {
	env := setupTestEnv(t)
	env.proc.On("Plan", mock.Anything).
		Return(command.Command{}, fmt.Errorf("speed: %w: factor out of range", operation.ErrInvalidArgument))

	req := newTestRequest(t, "/api/video/change-speed", []upload{{"file", "a.mp4", "x"}}, map[string]string{"factor": "2"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec).Code)
	env.proc.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestOperation_NotMultipart(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/video/cut", bytes.NewBufferString(`{"start":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FORM", decodeError(t, rec).Code)
}

func TestOperation_TooLarge(t *testing.T) {
	env := setupTestEnv(t, WithMaxUploadBytes(1024))

	big := string(bytes.Repeat([]byte("x"), 4096))
	req := newTestRequest(t, "/api/video/grayscale", []upload{{"file", "a.mp4", big}}, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", resp.Code)
	assert.Contains(t, resp.Error, "1.0 KiB")
}

func TestOperation_ProcessingFailed(t *testing.T) {
	env := setupTestEnv(t)
	failed := media.NewResult(command.Command{Args: []string{"-i", "secret/path.mp4"}}, runner.Outcome{
		Kind:     runner.Failed,
		ExitCode: 1,
		Stderr:   "Invalid data found when processing input",
	})
	env.proc.On("Plan", mock.Anything).Return(command.Command{}, nil)
	env.proc.On("Execute", mock.Anything, mock.Anything).Return(failed, nil)

	req := newTestRequest(t, "/api/video/grayscale", []upload{{"file", "a.mp4", "x"}}, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "PROCESSING_FAILED", resp.Code)
	assert.Contains(t, resp.Error, "Invalid data found")
	assert.NotContains(t, resp.Error, "secret/path.mp4")
}

func TestOperation_Async(t *testing.T) {
	env := setupTestEnv(t)
	env.proc.On("Plan", mock.Anything).Return(command.Command{}, nil)

	var submitted job.SubmitInput
	created := job.NewWithID("job_01test", operation.KindGrayscale)
	env.jobs.On("Submit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { submitted = args.Get(1).(job.SubmitInput) }).
		Return(created, nil)

	req := newTestRequest(t, "/api/video/grayscale?async=true", []upload{{"file", "a.mov", "x"}}, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "/jobs/job_01test", rec.Header().Get("Location"))

	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "job_01test", resp.ID)
	assert.Equal(t, "IN_QUEUE", resp.Status)
	assert.Equal(t, "grayscale", resp.Kind)

	assert.Len(t, submitted.Inputs, 1)
	assert.Equal(t, "video/quicktime", submitted.ContentType)
	assert.NotEmpty(t, submitted.OutputName)
	assert.False(t, submitted.Publish)
	env.proc.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestOperation_AsyncDisabled(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	proc := new(mockProcessor)
	proc.On("Plan", mock.Anything).Return(command.Command{}, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewRouter(NewHandlers(proc, store, nil, logger), logger, DefaultConfig())

	req := newTestRequest(t, "/api/video/grayscale", []upload{{"file", "a.mp4", "x"}}, map[string]string{"async": "true"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ASYNC_DISABLED", decodeError(t, rec).Code)
}

func TestOperation_PublishWithoutS3(t *testing.T) {
	env := setupTestEnv(t)
	env.proc.On("Plan", mock.Anything).Return(command.Command{}, nil)

	req := newTestRequest(t, "/api/video/grayscale", []upload{{"file", "a.mp4", "x"}}, map[string]string{"publish": "true"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "S3_NOT_CONFIGURED", decodeError(t, rec).Code)
}

func TestOperation_PublishSync(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	env := setupTestEnvWithStore(t, local, &publishingStore{LocalStorage: local}, WithS3(true))
	env.proc.On("Plan", mock.Anything).Return(command.Command{}, nil)
	env.proc.On("Execute", mock.Anything, mock.Anything).Run(writesOutput("v")).Return(successResult(), nil)

	req := newTestRequest(t, "/api/audio/volume", []upload{{"file", "a.mp3", "x"}}, map[string]string{"gain": "1.5", "publish": "true"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp PublishResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.URL, "https://bucket.example/")
	assert.True(t, resp.Result.IsSuccess)
}

func TestGetJob(t *testing.T) {
	env := setupTestEnv(t)
	completed := job.NewWithID("job_done", operation.KindCut)
	_ = completed.Start()
	_ = completed.Finish(successResult())
	env.jobs.On("Get", mock.Anything, "job_done").Return(completed, nil)
	env.jobs.On("Get", mock.Anything, "job_missing").Return(nil, job.ErrJobNotFound)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/job_done", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "COMPLETED", resp.Status)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.IsSuccess)
	assert.NotNil(t, resp.CompletedAt)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/job_missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, rec).Code)
}

func TestGetJobOutput(t *testing.T) {
	env := setupTestEnv(t)
	outPath, err := env.store.Path(storage.AreaOutput, "result.mp3")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(outPath, []byte("audio"), 0o600))

	done := job.NewWithID("job_done", operation.KindVolume)
	done.OutputName = "result.mp3"
	_ = done.Start()
	_ = done.Finish(successResult())

	published := job.NewWithID("job_pub", operation.KindVolume)
	published.OutputURL = "https://bucket.example/result.mp3"
	_ = published.Start()
	_ = published.Finish(successResult())

	running := job.NewWithID("job_running", operation.KindVolume)
	_ = running.Start()

	env.jobs.On("Get", mock.Anything, "job_done").Return(done, nil)
	env.jobs.On("Get", mock.Anything, "job_pub").Return(published, nil)
	env.jobs.On("Get", mock.Anything, "job_running").Return(running, nil)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/job_done/output", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "audio", rec.Body.String())

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/job_pub/output", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://bucket.example/result.mp3", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/job_running/output", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "JOB_NOT_COMPLETED", decodeError(t, rec).Code)
}

func TestDeleteJob(t *testing.T) {
	env := setupTestEnv(t)
	env.jobs.On("Delete", mock.Anything, "job_a").Return(nil)
	env.jobs.On("Delete", mock.Anything, "job_b").Return(job.ErrJobNotFound)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/jobs/job_a", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/jobs/job_b", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddleware_RequestID(t *testing.T) {
	env := setupTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "4f9c1a52-7c61-4d7e-9d3a-0c6a8e2b1f00")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "4f9c1a52-7c61-4d7e-9d3a-0c6a8e2b1f00", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestMiddleware_CORSPreflight(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/video/cut", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddleware_Recovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}
