package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediaforge-api/internal/operation"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

var errMissingFile = errors.New("missing file")

var bitratePattern = regexp.MustCompile(`^\d+[kKmM]?$`)

// newValidator returns a validator with the custom tags used by the forms.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("timecode", func(fl validator.FieldLevel) bool {
		return operation.IsValidTime(fl.Field().String())
	})
	_ = v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		return operation.IsValidColor(fl.Field().String())
	})
	_ = v.RegisterValidation("mediaformat", func(fl validator.FieldLevel) bool {
		f, ok := operation.LookupFormat(fl.Field().String())
		return ok && !f.Image
	})
	_ = v.RegisterValidation("audioformat", func(fl validator.FieldLevel) bool {
		f, ok := operation.LookupFormat(fl.Field().String())
		return ok && f.AudioOnly()
	})
	_ = v.RegisterValidation("bitrate", func(fl validator.FieldLevel) bool {
		return bitratePattern.MatchString(fl.Field().String())
	})
	return v
}

// formReader reads typed values from a parsed multipart form. Parse
// failures are collected and reported together by err.
type formReader struct {
	r    *http.Request
	errs []string
}

func newFormReader(r *http.Request) *formReader {
	return &formReader{r: r}
}

func (f *formReader) raw(name string) (string, bool) {
	if f.r.MultipartForm == nil {
		return "", false
	}
	vs, ok := f.r.MultipartForm.Value[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vs[0])
	return v, v != ""
}

func (f *formReader) str(name, def string) string {
	if v, ok := f.raw(name); ok {
		return v
	}
	return def
}

func (f *formReader) lower(name, def string) string {
	return strings.ToLower(f.str(name, def))
}

func (f *formReader) int(name string, def int) int {
	v, ok := f.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.errs = append(f.errs, fmt.Sprintf("%s: %q is not an integer", name, v))
		return def
	}
	return n
}

func (f *formReader) float(name string, def float64) float64 {
	v, ok := f.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		f.errs = append(f.errs, fmt.Sprintf("%s: %q is not a number", name, v))
		return def
	}
	return n
}

func (f *formReader) bool(name string) bool {
	v, ok := f.raw(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		f.errs = append(f.errs, fmt.Sprintf("%s: %q is not a boolean", name, v))
		return false
	}
	return b
}

// time reads a time value and normalises it to HH:MM:SS. Invalid values
// are returned unchanged for the validator to reject.
func (f *formReader) time(name, def string) string {
	v := f.str(name, def)
	if norm, err := operation.NormalizeTime(v); err == nil {
		return norm
	}
	return v
}

// flag reads a boolean from the form, falling back to the query string.
func (f *formReader) flag(name string) bool {
	if _, ok := f.raw(name); ok {
		return f.bool(name)
	}
	v := f.r.URL.Query().Get(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		f.errs = append(f.errs, fmt.Sprintf("%s: %q is not a boolean", name, v))
	}
	return b
}

func (f *formReader) delivery() Delivery {
	return Delivery{Async: f.flag("async"), Publish: f.flag("publish")}
}

func (f *formReader) err() error {
	if len(f.errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(f.errs, "; "))
}
