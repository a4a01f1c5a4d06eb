package operation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/mediaforge-api/internal/command"
)

// DefaultVideoCodec is the encoder used when a request re-encodes video and
// does not name one.
const DefaultVideoCodec = "libx264"

// keepAudio copies the first input's audio, if it has any, next to a filter
// graph output.
func keepAudio(b *command.Builder) *command.Builder {
	return b.Add(command.Map("0:a?")).SetAudioCodec("copy")
}

// Watermark overlays Overlay onto Input at pixel offset (X, Y).
type Watermark struct {
	Input      string `json:"input" toml:"input"`
	Overlay    string `json:"overlay" toml:"overlay"`
	Output     string `json:"output" toml:"output"`
	X          int    `json:"x" toml:"x"`
	Y          int    `json:"y" toml:"y"`
	VideoCodec string `json:"video_codec,omitempty" toml:"video_codec"`
	// Image marks a still-image input; the output is a single frame and no
	// video encoder is forced.
	Image bool `json:"image,omitempty" toml:"image"`
}

// NewWatermark returns a watermark request encoded with DefaultVideoCodec.
func NewWatermark(input, overlay, output string, x, y int) *Watermark {
	return &Watermark{Input: input, Overlay: overlay, Output: output, X: x, Y: y, VideoCodec: DefaultVideoCodec}
}

// Kind returns KindWatermark.
func (r *Watermark) Kind() Kind { return KindWatermark }

// Translate overlays the second input on the first, keeping the first input's audio.
func (r *Watermark) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "overlay", r.Overlay, "output", r.Output); err != nil {
		return nil, err
	}

	b := command.NewBuilder().
		AddInput(r.Input).
		AddInput(r.Overlay).
		SetOverlay(r.X, r.Y)
	keepAudio(b)

	if r.Image {
		b.SetFrameOutput(r.Output, 1)
	} else {
		b.SetVideoCodec(r.VideoCodec).SetOutput(r.Output)
	}
	return b, b.Err()
}

// Cut trims Input to [Start, End] without re-encoding. Times are passed
// through for the external tool to parse.
type Cut struct {
	Input  string `json:"input" toml:"input"`
	Output string `json:"output" toml:"output"`
	Start  string `json:"start" toml:"start"`
	End    string `json:"end" toml:"end"`
}

// Kind returns KindCut.
func (r *Cut) Kind() Kind { return KindCut }

// Translate seeks to Start and stops at End, copying every stream.
func (r *Cut) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output, "start", r.Start, "end", r.End); err != nil {
		return nil, err
	}

	b := command.NewBuilder().
		AddInput(r.Input).
		Add(command.Seek(r.Start)).
		Add(command.SeekTo(r.End)).
		Add(command.StreamCopy{}).
		SetOutput(r.Output)
	return b, b.Err()
}

// Speed changes playback speed by Factor. Video timestamps are scaled by
// 1/Factor and audio tempo by a chain of stages from TempoStages.
type Speed struct {
	Input      string  `json:"input" toml:"input"`
	Output     string  `json:"output" toml:"output"`
	Factor     float64 `json:"factor" toml:"factor"`
	VideoCodec string  `json:"video_codec,omitempty" toml:"video_codec"`
	// VideoOnly drops audio instead of retiming it.
	VideoOnly bool `json:"video_only,omitempty" toml:"video_only"`
	// AudioOnly retimes audio and emits no video stream.
	AudioOnly bool `json:"audio_only,omitempty" toml:"audio_only"`
}

// NewSpeed returns a speed request that retimes both video and audio.
func NewSpeed(input, output string, factor float64) *Speed {
	return &Speed{Input: input, Output: output, Factor: factor, VideoCodec: DefaultVideoCodec}
}

// Kind returns KindSpeed.
func (r *Speed) Kind() Kind { return KindSpeed }

// Translate retimes video with setpts and audio with the tempo chain.
// AudioOnly writes the chain as a simple audio filter and drops video.
func (r *Speed) Translate() (*command.Builder, error) {
	stages, err := TempoStages(r.Factor)
	if err != nil {
		return nil, err
	}
	if err := required("input", r.Input, "output", r.Output); err != nil {
		return nil, err
	}
	if r.VideoOnly && r.AudioOnly {
		return nil, invalid("video_only and audio_only are mutually exclusive")
	}

	b := command.NewBuilder().AddInput(r.Input)
	if r.AudioOnly {
		b.Add(command.NoVideo{}).Add(command.AudioFilter(tempoChain(stages))).SetOutput(r.Output)
		return b, b.Err()
	}

	video := fmt.Sprintf("%ssetpts=%s*PTS[v]", command.VideoPad(0), command.FormatNumber(1/r.Factor))
	audio := fmt.Sprintf("%s%s[a]", command.AudioPad(0), tempoChain(stages))

	switch {
	case r.VideoOnly:
		b.AddFilter(video).SelectPads("v").Add(command.NoAudio{}).SetVideoCodec(r.VideoCodec)
	default:
		b.AddFilter(video).AddFilter(audio).SelectPads("v", "a").SetVideoCodec(r.VideoCodec)
	}
	b.SetOutput(r.Output)
	return b, b.Err()
}

// ChromaKey keys Color out of Foreground and composites the result onto
// Background.
type ChromaKey struct {
	Foreground string  `json:"foreground" toml:"foreground"`
	Background string  `json:"background" toml:"background"`
	Output     string  `json:"output" toml:"output"`
	Color      string  `json:"color" toml:"color"`
	Similarity float64 `json:"similarity" toml:"similarity"`
	Blend      float64 `json:"blend" toml:"blend"`
	VideoCodec string  `json:"video_codec,omitempty" toml:"video_codec"`
}

// NewChromaKey returns a green-screen request with the usual tolerances.
func NewChromaKey(foreground, background, output string) *ChromaKey {
	return &ChromaKey{
		Foreground: foreground,
		Background: background,
		Output:     output,
		Color:      "0x00FF00",
		Similarity: 0.1,
		Blend:      0.2,
		VideoCodec: DefaultVideoCodec,
	}
}

// Kind returns KindChromaKey.
func (r *ChromaKey) Kind() Kind { return KindChromaKey }

// Translate keys the foreground and overlays it on the background. Color
// must pass IsValidColor.
func (r *ChromaKey) Translate() (*command.Builder, error) {
	if err := required("foreground", r.Foreground, "background", r.Background, "output", r.Output, "color", r.Color); err != nil {
		return nil, err
	}
	if err := checkColor(r.Color); err != nil {
		return nil, err
	}
	if !(r.Similarity > 0 && r.Similarity <= 1) {
		return nil, invalid("similarity must be in (0, 1], got %v", r.Similarity)
	}
	if !(r.Blend >= 0 && r.Blend <= 1) {
		return nil, invalid("blend must be in [0, 1], got %v", r.Blend)
	}

	b := command.NewBuilder().AddInput(r.Foreground).AddInput(r.Background)
	b.AddFilter(fmt.Sprintf("%schromakey=%s:%s:%s[ckout];%s[ckout]overlay[%s]",
		command.VideoPad(0), r.Color,
		command.FormatNumber(r.Similarity), command.FormatNumber(r.Blend),
		command.VideoPad(1), command.DefaultPad))
	b.SetVideoCodec(r.VideoCodec).SetOutput(r.Output)
	return b, b.Err()
}

// Direction selects the stack filter.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// Stack combines two videos side by side or one above the other. The inputs
// must share height (horizontal) or width (vertical).
type Stack struct {
	First     string    `json:"first" toml:"first"`
	Second    string    `json:"second" toml:"second"`
	Output    string    `json:"output" toml:"output"`
	Direction Direction `json:"direction" toml:"direction"`
}

// Kind returns KindStack.
func (r *Stack) Kind() Kind { return KindStack }

// Translate joins both video streams with hstack or vstack.
func (r *Stack) Translate() (*command.Builder, error) {
	if err := required("first", r.First, "second", r.Second, "output", r.Output); err != nil {
		return nil, err
	}

	var filter string
	switch Direction(strings.ToLower(string(r.Direction))) {
	case Horizontal:
		filter = "hstack"
	case Vertical:
		filter = "vstack"
	default:
		return nil, invalid("direction must be %q or %q, got %q", Horizontal, Vertical, r.Direction)
	}

	b := command.NewBuilder().
		AddInput(r.First).
		AddInput(r.Second).
		AddFilter(fmt.Sprintf("%s%s%s=inputs=2[%s]", command.VideoPad(0), command.VideoPad(1), filter, command.DefaultPad)).
		SetOutput(r.Output)
	return b, b.Err()
}

// Border pads every side of the frame by Thickness pixels of Color.
type Border struct {
	Input      string `json:"input" toml:"input"`
	Output     string `json:"output" toml:"output"`
	Thickness  int    `json:"thickness" toml:"thickness"`
	Color      string `json:"color" toml:"color"`
	VideoCodec string `json:"video_codec,omitempty" toml:"video_codec"`
}

// NewBorder returns a 20 pixel black border request.
func NewBorder(input, output string) *Border {
	return &Border{Input: input, Output: output, Thickness: 20, Color: "black", VideoCodec: DefaultVideoCodec}
}

// Kind returns KindBorder.
func (r *Border) Kind() Kind { return KindBorder }

// Translate pads the frame on every side. Color must pass IsValidColor.
func (r *Border) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output, "color", r.Color); err != nil {
		return nil, err
	}
	if r.Thickness <= 0 {
		return nil, invalid("thickness must be positive, got %d", r.Thickness)
	}
	if err := checkColor(r.Color); err != nil {
		return nil, err
	}

	t := r.Thickness
	b := command.NewBuilder().
		AddInput(r.Input).
		AddFilter(fmt.Sprintf("%spad=width=iw+%d:height=ih+%d:x=%d:y=%d:color=%s[%s]",
			command.VideoPad(0), 2*t, 2*t, t, t, r.Color, command.DefaultPad))
	keepAudio(b).SetVideoCodec(r.VideoCodec).SetOutput(r.Output)
	return b, b.Err()
}

// Rotate turns the frame by Angle degrees clockwise. The canvas keeps its
// size, so corners are clipped for angles that are not multiples of 180.
type Rotate struct {
	Input      string  `json:"input" toml:"input"`
	Output     string  `json:"output" toml:"output"`
	Angle      float64 `json:"angle" toml:"angle"`
	VideoCodec string  `json:"video_codec,omitempty" toml:"video_codec"`
}

// Kind returns KindRotate.
func (r *Rotate) Kind() Kind { return KindRotate }

// Translate rotates by Angle converted to radians.
func (r *Rotate) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output); err != nil {
		return nil, err
	}
	if !finite(r.Angle) {
		return nil, invalid("angle must be finite")
	}

	b := command.NewBuilder().
		AddInput(r.Input).
		AddFilter(fmt.Sprintf("%srotate=%s*PI/180[%s]",
			command.VideoPad(0), strconv.FormatFloat(r.Angle, 'f', -1, 64), command.DefaultPad))
	keepAudio(b).SetVideoCodec(r.VideoCodec).SetOutput(r.Output)
	return b, b.Err()
}

// Thumbnail extracts the frame at At into an image file.
type Thumbnail struct {
	Input  string `json:"input" toml:"input"`
	Output string `json:"output" toml:"output"`
	At     string `json:"at" toml:"at"`
}

// Kind returns KindThumbnail.
func (r *Thumbnail) Kind() Kind { return KindThumbnail }

// Translate seeks to At and writes one frame.
func (r *Thumbnail) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output, "at", r.At); err != nil {
		return nil, err
	}

	b := command.NewBuilder().
		AddInput(r.Input).
		Add(command.Seek(r.At)).
		SetFrameOutput(r.Output, 1)
	return b, b.Err()
}

// Compress re-encodes Input with a constant rate factor and optionally
// scales it. A zero Width or Height keeps the aspect ratio.
type Compress struct {
	Input      string `json:"input" toml:"input"`
	Output     string `json:"output" toml:"output"`
	CRF        int    `json:"crf" toml:"crf"`
	Preset     string `json:"preset,omitempty" toml:"preset"`
	VideoCodec string `json:"video_codec,omitempty" toml:"video_codec"`
	Width      int    `json:"width,omitempty" toml:"width"`
	Height     int    `json:"height,omitempty" toml:"height"`
}

// DefaultCRF trades a visible but modest quality loss for a much smaller file.
const DefaultCRF = 28

// NewCompress returns a compression request at DefaultCRF.
func NewCompress(input, output string) *Compress {
	return &Compress{Input: input, Output: output, CRF: DefaultCRF, VideoCodec: DefaultVideoCodec}
}

// Kind returns KindCompress.
func (r *Compress) Kind() Kind { return KindCompress }

// Translate re-encodes at CRF, scaling first when a dimension is set.
func (r *Compress) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output); err != nil {
		return nil, err
	}
	if r.CRF < 0 || r.CRF > 51 {
		return nil, invalid("crf must be in [0, 51], got %d", r.CRF)
	}

	b := command.NewBuilder().AddInput(r.Input)
	if r.Width != 0 || r.Height != 0 {
		w, h := scaleDim(r.Width), scaleDim(r.Height)
		if w == 0 || h == 0 {
			return nil, invalid("scale %dx%d: dimensions must be positive", r.Width, r.Height)
		}
		b.SetScale(w, h)
		b.Add(command.Map("0:a?"))
	}
	codec := r.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	b.SetVideoCodec(codec).
		SetVideoQuality(r.CRF).
		Add(command.Preset(r.Preset)).
		SetAudioCodec("copy").
		SetOutput(r.Output)
	return b, b.Err()
}

// scaleDim maps an unset dimension to -2 (keep aspect, even size) and
// rejects other non-positive values by returning 0.
func scaleDim(v int) int {
	switch {
	case v == 0:
		return -2
	case v < 0:
		return 0
	default:
		return v
	}
}

// Grayscale removes colour saturation from the video stream.
type Grayscale struct {
	Input      string `json:"input" toml:"input"`
	Output     string `json:"output" toml:"output"`
	VideoCodec string `json:"video_codec,omitempty" toml:"video_codec"`
}

// Kind returns KindGrayscale.
func (r *Grayscale) Kind() Kind { return KindGrayscale }

// Translate zeroes saturation and keeps the audio.
func (r *Grayscale) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output); err != nil {
		return nil, err
	}

	b := command.NewBuilder().
		AddInput(r.Input).
		AddFilter(command.VideoPad(0) + "hue=s=0[" + command.DefaultPad + "]")
	keepAudio(b).SetVideoCodec(r.VideoCodec).SetOutput(r.Output)
	return b, b.Err()
}

// RemoveAudio copies the video stream and drops all audio.
type RemoveAudio struct {
	Input  string `json:"input" toml:"input"`
	Output string `json:"output" toml:"output"`
}

// Kind returns KindRemoveAudio.
func (r *RemoveAudio) Kind() Kind { return KindRemoveAudio }

// Translate copies video and drops audio.
func (r *RemoveAudio) Translate() (*command.Builder, error) {
	if err := required("input", r.Input, "output", r.Output); err != nil {
		return nil, err
	}

	b := command.NewBuilder().
		AddInput(r.Input).
		Add(command.NoAudio{}).
		SetVideoCodec("copy").
		SetOutput(r.Output)
	return b, b.Err()
}
