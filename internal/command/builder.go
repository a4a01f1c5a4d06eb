// Package command assembles argument vectors for the media-processing
// executable. A Builder accumulates inputs, filter-graph fragments, options
// and a single output, and renders them in a fixed order.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidArgument is returned when a builder call receives a value that
// cannot produce a valid command (empty path, bad frame count, unparsable
// option text).
var ErrInvalidArgument = errors.New("invalid argument")

// DefaultPad is the filter-graph output pad selected for the muxer unless
// SelectPads overrides it.
const DefaultPad = "out"

type output struct {
	path   string
	frames int
}

// Builder accumulates the parts of one command. It is owned by a single
// operation and must not be shared between goroutines or reused for a second
// command.
type Builder struct {
	inputs  []string
	filters []string
	pads    []string
	options [][]string
	output  *output
	err     error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// fail records the first error; later calls keep accumulating so the
// caller can check once at Build.
func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
	}
}

// AddInput appends an input file. Inputs are indexed from zero in the order
// they are added; filter fragments refer to them by that index.
func (b *Builder) AddInput(path string) *Builder {
	if strings.TrimSpace(path) == "" {
		b.fail("input path is empty")
		return b
	}
	b.inputs = append(b.inputs, path)
	return b
}

// InputCount returns the number of inputs added so far. The next input will
// receive this value as its index.
func (b *Builder) InputCount() int {
	return len(b.inputs)
}

// AddFilter appends a filter-graph fragment. Empty expressions are ignored so
// callers can add filters conditionally.
func (b *Builder) AddFilter(expr string) *Builder {
	if expr == "" {
		return b
	}
	b.filters = append(b.filters, expr)
	return b
}

// SetOverlay places the second input on top of the first at pixel offset
// (x, y), producing the default output pad.
func (b *Builder) SetOverlay(x, y int) *Builder {
	return b.SetOverlayOn(x, y, 0, 1)
}

// SetOverlayOn places input overlayIndex on top of input baseIndex at pixel
// offset (x, y), producing the default output pad.
func (b *Builder) SetOverlayOn(x, y, baseIndex, overlayIndex int) *Builder {
	return b.AddFilter(fmt.Sprintf("%s%soverlay=%d:%d[%s]",
		VideoPad(baseIndex), VideoPad(overlayIndex), x, y, DefaultPad))
}

// SetScale appends a scale fragment on the first input's video stream,
// producing the default output pad. A dimension of -1 or -2 keeps the aspect
// ratio.
func (b *Builder) SetScale(width, height int) *Builder {
	return b.AddFilter(fmt.Sprintf("%sscale=%d:%d[%s]", VideoPad(0), width, height, DefaultPad))
}

// SelectPads replaces the pads mapped to the output when a filter graph is
// present. Without a call the default pad is selected.
func (b *Builder) SelectPads(labels ...string) *Builder {
	pads := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.Trim(l, "[]"); l != "" {
			pads = append(pads, l)
		}
	}
	b.pads = pads
	return b
}

// AddOption appends free-form option text, tokenised without a shell.
// Empty text is ignored.
func (b *Builder) AddOption(text string) *Builder {
	if strings.TrimSpace(text) == "" {
		return b
	}
	raw, err := ParseRaw(text)
	if err != nil {
		b.fail("option %q: %v", text, err)
		return b
	}
	return b.Add(raw)
}

// Add appends a typed option. Options that render to nothing are dropped.
func (b *Builder) Add(opt Option) *Builder {
	if opt == nil {
		return b
	}
	if args := opt.args(); len(args) > 0 {
		b.options = append(b.options, args)
	}
	return b
}

// SetVideoCodec is shorthand for Add(VideoCodec(name)).
func (b *Builder) SetVideoCodec(name string) *Builder {
	return b.Add(VideoCodec(name))
}

// SetAudioCodec is shorthand for Add(AudioCodec(name)).
func (b *Builder) SetAudioCodec(name string) *Builder {
	return b.Add(AudioCodec(name))
}

// SetVideoQuality is shorthand for Add(Quality(crf)).
func (b *Builder) SetVideoQuality(crf int) *Builder {
	return b.Add(Quality(crf))
}

// SetFrameRate is shorthand for Add(FrameRate(fps)).
func (b *Builder) SetFrameRate(fps int) *Builder {
	return b.Add(FrameRate(fps))
}

// SetOutput records the destination file. A later call replaces the earlier
// one; a command has exactly one output.
func (b *Builder) SetOutput(path string) *Builder {
	return b.setOutput(path, 0)
}

// SetFrameOutput records the destination file and limits the output to
// frames video frames, which is how single images are extracted.
func (b *Builder) SetFrameOutput(path string, frames int) *Builder {
	if frames < 1 {
		b.fail("frame count must be positive, got %d", frames)
		return b
	}
	return b.setOutput(path, frames)
}

func (b *Builder) setOutput(path string, frames int) *Builder {
	if strings.TrimSpace(path) == "" {
		b.fail("output path is empty")
		return b
	}
	b.output = &output{path: path, frames: frames}
	return b
}

// Err returns the first error recorded by a builder call, if any.
func (b *Builder) Err() error {
	return b.err
}

// Build renders the accumulated state. The order is fixed: inputs, then the
// filter graph and its pad selection (only when fragments exist), then
// options in insertion order, then the output. Build does not modify the
// builder, so repeated calls return identical commands.
func (b *Builder) Build() (Command, error) {
	if b.err != nil {
		return Command{}, b.err
	}
	if len(b.inputs) == 0 {
		return Command{}, fmt.Errorf("%w: no inputs", ErrInvalidArgument)
	}
	if b.output == nil {
		return Command{}, fmt.Errorf("%w: no output", ErrInvalidArgument)
	}

	args := make([]string, 0, 2*len(b.inputs)+len(b.options)*2+6)
	for _, in := range b.inputs {
		args = append(args, "-i", in)
	}

	if len(b.filters) > 0 {
		args = append(args, "-filter_complex", strings.Join(b.filters, ";"))
		pads := b.pads
		if len(pads) == 0 {
			pads = []string{DefaultPad}
		}
		for _, p := range pads {
			args = append(args, "-map", "["+p+"]")
		}
	}

	for _, opt := range b.options {
		args = append(args, opt...)
	}

	if b.output.frames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(b.output.frames))
	}
	args = append(args, b.output.path)

	return Command{Args: args}, nil
}

// VideoPad returns the pad label of input index's video stream, e.g. "[0:v]".
func VideoPad(index int) string {
	return "[" + strconv.Itoa(index) + ":v]"
}

// AudioPad returns the pad label of input index's audio stream, e.g. "[1:a]".
func AudioPad(index int) string {
	return "[" + strconv.Itoa(index) + ":a]"
}

// FormatNumber renders a filter parameter in its shortest decimal form with
// at least one fractional digit: 2 -> "2.0", 1.25 -> "1.25".
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
