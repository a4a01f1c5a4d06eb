// Package server provides the HTTP surface of the media API: one multipart
// endpoint per operation, the async job endpoints, and middleware.
// Form DTOs and responses are kept separate from domain types.
package server

import (
	"time"

	"github.com/maauso/mediaforge-api/internal/job"
	"github.com/maauso/mediaforge-api/internal/media"
)

// Delivery holds the form fields shared by every operation endpoint.
type Delivery struct {
	// Async queues the operation as a job and returns 202.
	Async bool
	// Publish uploads the output to S3 instead of streaming it.
	Publish bool
}

// WatermarkForm is the form for POST /api/video/watermark.
type WatermarkForm struct {
	X     int `validate:"min=0,max=16384"`
	Y     int `validate:"min=0,max=16384"`
	Image bool
}

// CutForm is the form for POST /api/video/cut.
type CutForm struct {
	Start string `validate:"required,timecode"`
	End   string `validate:"required,timecode"`
}

// SpeedForm is the form for POST /api/video/change-speed.
type SpeedForm struct {
	Factor    float64 `validate:"gt=0,lte=100"`
	VideoOnly bool
	AudioOnly bool `validate:"excluded_with=VideoOnly"`
}

// RotationForm is the form for POST /api/video/rotation.
type RotationForm struct {
	Angle float64 `validate:"gte=-360,lte=360"`
}

// BorderForm is the form for POST /api/video/border.
type BorderForm struct {
	Thickness int    `validate:"min=1,max=1000"`
	Color     string `validate:"required,color"`
}

// GreenScreenForm is the form for POST /api/video/green-screen.
type GreenScreenForm struct {
	Color      string  `validate:"required,color"`
	Similarity float64 `validate:"gt=0,lte=1"`
	Blend      float64 `validate:"gte=0,lte=1"`
}

// MergeForm is the form for POST /api/video/merge.
type MergeForm struct {
	Direction string `validate:"oneof=horizontal vertical"`
}

// ThumbnailForm is the form for POST /api/video/thumbnail.
type ThumbnailForm struct {
	At     string `validate:"required,timecode"`
	Format string `validate:"oneof=jpg jpeg png"`
}

// CompressForm is the form for POST /api/video/compress.
type CompressForm struct {
	CRF    int    `validate:"min=0,max=51"`
	Preset string `validate:"omitempty,oneof=ultrafast superfast veryfast faster fast medium slow slower veryslow"`
	Width  int    `validate:"min=0,max=16384"`
	Height int    `validate:"min=0,max=16384"`
}

// VolumeForm is the form for POST /api/audio/volume.
type VolumeForm struct {
	Gain float64 `validate:"gt=0,lte=10"`
}

// MixForm is the form for POST /api/audio/mix.
type MixForm struct {
	Duration string `validate:"oneof=longest shortest first"`
	Format   string `validate:"required,audioformat"`
}

// ConvertForm is the form for POST /api/audio/convert.
type ConvertForm struct {
	Format  string `validate:"required,mediaformat"`
	Bitrate string `validate:"omitempty,bitrate"`
}

// JobResponse is the HTTP response for job endpoints.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Kind is the operation the job runs.
	Kind string `json:"kind"`
	// Status is the current job status.
	Status string `json:"status"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`
	// OutputURL is the S3 URL of the output (if published).
	OutputURL string `json:"output_url,omitempty"`
	// Result is the command report once the process has ended.
	Result *media.Result `json:"result,omitempty"`
	// CreatedAt is when the job was accepted.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func newJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:        j.ID,
		Kind:      string(j.Kind),
		Status:    string(j.Status),
		Error:     j.Error,
		OutputURL: j.OutputURL,
		Result:    j.Result,
		CreatedAt: j.CreatedAt,
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}

// PublishResponse is returned by synchronous requests with publish=true.
type PublishResponse struct {
	URL    string       `json:"url"`
	Result media.Result `json:"result"`
}

// OperationResponse describes one supported operation.
type OperationResponse struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Inputs      int    `json:"inputs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// FFmpeg is the configured executable.
	FFmpeg string `json:"ffmpeg,omitempty"`
}
