// Package storage manages the files operations read and write. Files live
// under one work directory split into input, output and temp areas and are
// addressed by logical name. Finished outputs can optionally be published
// to S3.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Area is one of the logical directories under the work directory.
type Area string

const (
	AreaInput  Area = "input"
	AreaOutput Area = "output"
	AreaTemp   Area = "temp"
)

// Areas lists every area in cleanup order.
var Areas = []Area{AreaInput, AreaOutput, AreaTemp}

var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrInvalidName is returned for names that are empty or try to leave
	// their area.
	ErrInvalidName = errors.New("invalid file name")
	// ErrUnknownArea is returned for an area outside Areas.
	ErrUnknownArea = errors.New("unknown storage area")
	// ErrSweepLocked is returned by Sweep when another sweep holds the lock.
	ErrSweepLocked = errors.New("sweep already in progress")
)

// Storage is the file service used by the HTTP layer and the job runner.
type Storage interface {
	// SaveUpload stores data in the input area under a fresh unique name
	// that keeps originalName's extension, and returns that name.
	SaveUpload(ctx context.Context, originalName string, data io.Reader) (name string, err error)

	// UniqueName returns a fresh name with the given extension.
	UniqueName(ext string) string

	// Path resolves name inside area to an absolute path.
	Path(area Area, name string) (string, error)

	// Open reads name from area. The caller closes the reader.
	Open(ctx context.Context, area Area, name string) (io.ReadCloser, error)

	// Cleanup removes every name from every area. It continues past
	// failures and returns them joined.
	Cleanup(ctx context.Context, names []string) error

	// Sweep removes files older than maxAge from every area, skipping the
	// names in keep, and returns how many were removed.
	Sweep(ctx context.Context, maxAge time.Duration, keep ...string) (int, error)

	// Publish uploads an output file under key and returns its URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	Publish(ctx context.Context, name, key string) (url string, err error)
}
