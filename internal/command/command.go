package command

import "strings"

// Command is a rendered argument vector, excluding the executable itself.
type Command struct {
	Args []string
}

// String joins the arguments into one line. Arguments that would not survive
// a POSIX-style split are double-quoted, so the line can be fed back through
// shlex and reproduce Args exactly.
func (c Command) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = quote(a)
	}
	return strings.Join(parts, " ")
}

// Output returns the destination file, which Build always places last.
func (c Command) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// Clone returns a copy that does not share the argument slice.
func (c Command) Clone() Command {
	args := make([]string, len(c.Args))
	copy(args, c.Args)
	return Command{Args: args}
}

func quote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\#") {
		return arg
	}
	var sb strings.Builder
	sb.Grow(len(arg) + 2)
	sb.WriteByte('"')
	for _, r := range arg {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
