package operation

import "regexp"

// colorPattern accepts a colour name or a 0xRRGGBB[AA] / #RRGGBB[AA] value,
// optionally followed by @alpha as a decimal in [0, 1] or a 0xNN byte.
var colorPattern = regexp.MustCompile(`^(?:[A-Za-z]+|(?:0x|#)[0-9A-Fa-f]{6}(?:[0-9A-Fa-f]{2})?)(?:@(?:0?\.\d+|[01](?:\.0+)?|0x[0-9A-Fa-f]{2}))?$`)

// IsValidColor reports whether s is a colour value that can be placed in a
// filter argument as is.
func IsValidColor(s string) bool {
	return len(s) <= 32 && colorPattern.MatchString(s)
}

func checkColor(s string) error {
	if !IsValidColor(s) {
		return invalid("color %q: want a name, 0xRRGGBB or #RRGGBB, optionally with @alpha", s)
	}
	return nil
}
