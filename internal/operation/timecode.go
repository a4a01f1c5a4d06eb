package operation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	secondsOnly = regexp.MustCompile(`^\d+(\.\d+)?$`)
	minSec      = regexp.MustCompile(`^[0-5]?\d:[0-5]\d(\.\d+)?$`)
	hourMinSec  = regexp.MustCompile(`^\d{1,2}:[0-5]\d:[0-5]\d(\.\d+)?$`)
)

// IsValidTime reports whether s is SS, MM:SS or HH:MM:SS, each optionally
// with fractional seconds. Minute and second fields after a colon must be
// below 60.
func IsValidTime(s string) bool {
	return secondsOnly.MatchString(s) || minSec.MatchString(s) || hourMinSec.MatchString(s)
}

// NormalizeTime rewrites a valid time value as HH:MM:SS, keeping any
// fractional part. Bare seconds are carried into minutes and hours.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case secondsOnly.MatchString(s):
		whole, frac, _ := strings.Cut(s, ".")
		n, err := strconv.Atoi(whole)
		if err != nil {
			return "", invalid("time %q: %v", s, err)
		}
		out := fmt.Sprintf("%02d:%02d:%02d", n/3600, n%3600/60, n%60)
		if frac != "" {
			out += "." + frac
		}
		return out, nil
	case minSec.MatchString(s):
		return "00:" + pad2(s), nil
	case hourMinSec.MatchString(s):
		return pad2(s), nil
	default:
		return "", invalid("time %q: want SS, MM:SS or HH:MM:SS", s)
	}
}

// pad2 left-pads a single-digit leading field.
func pad2(s string) string {
	if i := strings.IndexByte(s, ':'); i == 1 {
		return "0" + s
	}
	return s
}
