// Package operation translates typed media-transformation requests into
// command builders. Translators are pure: they validate the request, drive a
// fresh command.Builder and never touch the filesystem or spawn processes.
package operation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/maauso/mediaforge-api/internal/command"
)

// ErrInvalidArgument is returned when a request is missing a required field
// or carries a value outside its accepted range. It is the same sentinel the
// builder uses, so callers need a single errors.Is check.
var ErrInvalidArgument = command.ErrInvalidArgument

// Kind identifies an operation.
type Kind string

const (
	KindWatermark   Kind = "watermark"
	KindCut         Kind = "cut"
	KindSpeed       Kind = "speed"
	KindVolume      Kind = "volume"
	KindChromaKey   Kind = "chroma_key"
	KindStack       Kind = "stack"
	KindBorder      Kind = "border"
	KindRotate      Kind = "rotate"
	KindThumbnail   Kind = "thumbnail"
	KindCompress    Kind = "compress"
	KindAudioMix    Kind = "audio_mix"
	KindGrayscale   Kind = "grayscale"
	KindRemoveAudio Kind = "remove_audio"
	KindConvert     Kind = "convert"
)

// Request is a typed operation request.
type Request interface {
	Kind() Kind
	// Translate validates the request and returns a builder ready to Build.
	// No builder is returned when validation fails.
	Translate() (*command.Builder, error)
}

// Spec describes a registered operation kind.
type Spec struct {
	Kind        Kind
	Description string
	Inputs      int
	New         func() Request
}

var registry = map[Kind]Spec{
	KindWatermark: {
		Kind: KindWatermark, Inputs: 2,
		Description: "overlay an image onto a video at a pixel offset",
		New:         func() Request { return NewWatermark("", "", "", 0, 0) },
	},
	KindCut: {
		Kind: KindCut, Inputs: 1,
		Description: "trim a time range without re-encoding",
		New:         func() Request { return &Cut{} },
	},
	KindSpeed: {
		Kind: KindSpeed, Inputs: 1,
		Description: "change playback speed of video and audio",
		New:         func() Request { return NewSpeed("", "", 1) },
	},
	KindVolume: {
		Kind: KindVolume, Inputs: 1,
		Description: "scale audio gain",
		New:         func() Request { return &Volume{} },
	},
	KindChromaKey: {
		Kind: KindChromaKey, Inputs: 2,
		Description: "key out a colour and composite onto a background",
		New:         func() Request { return NewChromaKey("", "", "") },
	},
	KindStack: {
		Kind: KindStack, Inputs: 2,
		Description: "place two videos side by side or one above the other",
		New:         func() Request { return &Stack{Direction: Horizontal} },
	},
	KindBorder: {
		Kind: KindBorder, Inputs: 1,
		Description: "pad the frame with a coloured border",
		New:         func() Request { return NewBorder("", "") },
	},
	KindRotate: {
		Kind: KindRotate, Inputs: 1,
		Description: "rotate the frame by an angle in degrees",
		New:         func() Request { return &Rotate{} },
	},
	KindThumbnail: {
		Kind: KindThumbnail, Inputs: 1,
		Description: "extract a single frame at a timestamp",
		New:         func() Request { return &Thumbnail{} },
	},
	KindCompress: {
		Kind: KindCompress, Inputs: 1,
		Description: "re-encode with a constant rate factor",
		New:         func() Request { return NewCompress("", "") },
	},
	KindAudioMix: {
		Kind: KindAudioMix, Inputs: 2,
		Description: "mix two audio tracks into one",
		New:         func() Request { return NewAudioMix("", "", "") },
	},
	KindGrayscale: {
		Kind: KindGrayscale, Inputs: 1,
		Description: "remove colour saturation",
		New:         func() Request { return &Grayscale{} },
	},
	KindRemoveAudio: {
		Kind: KindRemoveAudio, Inputs: 1,
		Description: "drop every audio stream",
		New:         func() Request { return &RemoveAudio{} },
	},
	KindConvert: {
		Kind: KindConvert, Inputs: 1,
		Description: "transcode to the format implied by the output extension",
		New:         func() Request { return &Convert{} },
	},
}

// Lookup returns the registered spec for kind.
func Lookup(kind Kind) (Spec, bool) {
	s, ok := registry[kind]
	return s, ok
}

// Specs returns every registered operation sorted by kind.
func Specs() []Spec {
	out := make([]Spec, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

// required checks that every named field is non-blank. Pairs are
// field name, value.
func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return invalid("%s required", strings.Join(missing, ", "))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
