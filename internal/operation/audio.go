package operation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/maauso/mediaforge-api/internal/command"
)

// MaxGain is the largest accepted volume multiplier.
const MaxGain = 10.0

// Volume multiplies the audio gain by Gain and copies video, if any.
type Volume struct {
	Input  string  `json:"input" toml:"input"`
	Output string  `json:"output" toml:"output"`
	Gain   float64 `json:"gain" toml:"gain"`
}

// Kind returns KindVolume.
func (r *Volume) Kind() Kind { return KindVolume }

// Translate scales the first audio stream through the volume filter.
func (r *Volume) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output); err != nil {
		return nil, err
	}
	if !(r.Gain > 0 && r.Gain <= MaxGain) {
		return nil, invalid("gain must be in (0, %v], got %v", MaxGain, r.Gain)
	}

	b := command.NewBuilder().
		AddInput(r.Input).
		AddFilter(fmt.Sprintf("%svolume=%s[%s]", command.AudioPad(0), command.FormatNumber(r.Gain), command.DefaultPad)).
		Add(command.Map("0:v?")).
		SetVideoCodec("copy").
		SetOutput(r.Output)
	return b, b.Err()
}

// MixDuration selects how long the mixed track lasts.
type MixDuration string

const (
	MixLongest  MixDuration = "longest"
	MixShortest MixDuration = "shortest"
	MixFirst    MixDuration = "first"
)

// AudioMix mixes the audio of two inputs into one track.
type AudioMix struct {
	First    string      `json:"first" toml:"first"`
	Second   string      `json:"second" toml:"second"`
	Output   string      `json:"output" toml:"output"`
	Duration MixDuration `json:"duration,omitempty" toml:"duration"`
}

// NewAudioMix returns a mix request that lasts as long as the longer input.
func NewAudioMix(first, second, output string) *AudioMix {
	return &AudioMix{First: first, Second: second, Output: output, Duration: MixLongest}
}

// Kind returns KindAudioMix.
func (r *AudioMix) Kind() Kind { return KindAudioMix }

// Translate feeds both audio streams into amix. Video is not carried over.
func (r *AudioMix) Translate() (*command.Builder, error) {
	if err := required("first", r.First, "second", r.Second, "output", r.Output); err != nil {
		return nil, err
	}
	d := r.Duration
	if d == "" {
		d = MixLongest
	}
	switch d {
	case MixLongest, MixShortest, MixFirst:
	default:
		return nil, invalid("duration must be longest, shortest or first, got %q", r.Duration)
	}

	b := command.NewBuilder().
		AddInput(r.First).
		AddInput(r.Second).
		AddFilter(fmt.Sprintf("%s%samix=inputs=2:duration=%s[%s]",
			command.AudioPad(0), command.AudioPad(1), d, command.DefaultPad)).
		SetOutput(r.Output)
	return b, b.Err()
}

// Convert transcodes Input into Format, or the format implied by the output
// extension when Format is empty.
type Convert struct {
	Input   string `json:"input" toml:"input"`
	Output  string `json:"output" toml:"output"`
	Format  string `json:"format,omitempty" toml:"format"`
	Bitrate string `json:"bitrate,omitempty" toml:"bitrate"`
}

// Kind returns KindConvert.
func (r *Convert) Kind() Kind { return KindConvert }

// Translate picks codecs from the format table. Audio-only formats drop
// video and image formats are rejected.
func (r *Convert) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output); err != nil {
		return nil, err
	}

	name := r.Format
	if name == "" {
		name = filepath.Ext(r.Output)
	}
	f, ok := LookupFormat(name)
	if !ok {
		return nil, invalid("unsupported format %q", strings.TrimPrefix(name, "."))
	}
	if f.Image {
		return nil, invalid("format %q is a still image; use thumbnail", f.Name)
	}

	b := command.NewBuilder().AddInput(r.Input)
	if f.AudioOnly() {
		b.Add(command.NoVideo{})
	} else {
		b.SetVideoCodec(f.VideoCodec)
	}
	if f.AudioCodec == "" {
		b.Add(command.NoAudio{})
	} else {
		b.SetAudioCodec(f.AudioCodec)
		if r.Bitrate != "" {
			b.Add(command.Raw{"-b:a", r.Bitrate})
		}
	}
	b.SetOutput(r.Output)
	return b, b.Err()
}
