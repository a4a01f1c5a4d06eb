// Package id provides unique identifier generation for jobs.
package id

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const prefix = "job_"

// Generate creates a new job ID: "job_" followed by a lower-case ULID, so
// IDs sort by creation time.
// Example: job_01hqz5r8m4x7k2n9p3t6v1w0yb
func Generate() string {
	return prefix + strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}

// Valid reports whether s has the shape Generate produces.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(rest))
	return err == nil
}

// Time returns the creation time encoded in a valid ID.
func Time(s string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return time.Time{}, false
	}
	u, err := ulid.ParseStrict(strings.ToUpper(rest))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()), true
}
