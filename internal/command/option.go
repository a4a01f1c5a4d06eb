package command

import (
	"strconv"

	"github.com/google/shlex"
)

// Option is a typed flag group emitted verbatim in the options section of a
// command. The set of variants is closed; Raw is the unchecked escape hatch.
type Option interface {
	args() []string
}

// VideoCodec selects the video encoder (-c:v). Empty emits nothing.
type VideoCodec string

func (o VideoCodec) args() []string {
	if o == "" {
		return nil
	}
	return []string{"-c:v", string(o)}
}

// AudioCodec selects the audio encoder (-c:a). Empty emits nothing.
type AudioCodec string

func (o AudioCodec) args() []string {
	if o == "" {
		return nil
	}
	return []string{"-c:a", string(o)}
}

// Quality sets the constant rate factor (-crf).
type Quality int

func (o Quality) args() []string {
	return []string{"-crf", strconv.Itoa(int(o))}
}

// FrameRate sets the output frame rate (-r).
type FrameRate int

func (o FrameRate) args() []string {
	return []string{"-r", strconv.Itoa(int(o))}
}

// Preset selects the encoder speed preset. Empty emits nothing.
type Preset string

func (o Preset) args() []string {
	if o == "" {
		return nil
	}
	return []string{"-preset", string(o)}
}

// Seek sets the start position (-ss). The value is passed through for the
// external tool to parse.
type Seek string

func (o Seek) args() []string {
	if o == "" {
		return nil
	}
	return []string{"-ss", string(o)}
}

// SeekTo sets the end position (-to).
type SeekTo string

func (o SeekTo) args() []string {
	if o == "" {
		return nil
	}
	return []string{"-to", string(o)}
}

// Map selects an input stream for the output, e.g. "0:a?".
type Map string

func (o Map) args() []string {
	if o == "" {
		return nil
	}
	return []string{"-map", string(o)}
}

// AudioFilter applies a simple audio filter chain (-af).
type AudioFilter string

func (o AudioFilter) args() []string {
	if o == "" {
		return nil
	}
	return []string{"-af", string(o)}
}

// StreamCopy copies every selected stream without re-encoding (-c copy).
type StreamCopy struct{}

func (StreamCopy) args() []string { return []string{"-c", "copy"} }

// NoAudio drops all audio streams (-an).
type NoAudio struct{}

func (NoAudio) args() []string { return []string{"-an"} }

// NoVideo drops all video streams (-vn).
type NoVideo struct{}

func (NoVideo) args() []string { return []string{"-vn"} }

// Overwrite lets the tool replace an existing output file (-y).
type Overwrite struct{}

func (Overwrite) args() []string { return []string{"-y"} }

// Raw is an unchecked option already split into arguments.
type Raw []string

func (o Raw) args() []string { return []string(o) }

// ParseRaw tokenises free-form option text the way a POSIX shell would,
// without invoking one.
func ParseRaw(text string) (Raw, error) {
	tokens, err := shlex.Split(text)
	if err != nil {
		return nil, err
	}
	return Raw(tokens), nil
}
