package server

import (
	"path/filepath"

	"github.com/maauso/mediaforge-api/internal/operation"
	"github.com/maauso/mediaforge-api/internal/storage"
)

// opCall carries one request's uploads and output allocation into an
// endpoint's build function.
type opCall struct {
	form    *formReader
	store   storage.Storage
	names   []string
	paths   []string
	output  string
	outPath string
	err     error
}

// in returns the path of the i-th uploaded file.
func (c *opCall) in(i int) string {
	return c.paths[i]
}

// ext returns the extension of the i-th upload, defaulting to .mp4.
func (c *opCall) ext(i int) string {
	if e := filepath.Ext(c.names[i]); e != "" {
		return e
	}
	return ".mp4"
}

// out allocates the output file with extension ext and returns its path.
func (c *opCall) out(ext string) string {
	c.output = c.store.UniqueName(ext)
	c.outPath, c.err = c.store.Path(storage.AreaOutput, c.output)
	return c.outPath
}

// endpoint binds an HTTP route to an operation. build returns the form DTO
// to validate (nil for none) and the request to run.
type endpoint struct {
	kind  operation.Kind
	files []string
	build func(c *opCall) (form any, req operation.Request)
}

var endpoints = map[string]endpoint{
	"/api/video/watermark": {
		kind:  operation.KindWatermark,
		files: []string{"file", "overlay"},
		build: func(c *opCall) (any, operation.Request) {
			form := WatermarkForm{X: c.form.int("x", 10), Y: c.form.int("y", 10), Image: c.form.bool("image")}
			ext := c.ext(0)
			if form.Image {
				ext = ".png"
			}
			req := operation.NewWatermark(c.in(0), c.in(1), c.out(ext), form.X, form.Y)
			req.Image = form.Image
			return form, req
		},
	},
	"/api/video/cut": {
		kind:  operation.KindCut,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			form := CutForm{Start: c.form.time("start", ""), End: c.form.time("end", "")}
			return form, &operation.Cut{Input: c.in(0), Output: c.out(c.ext(0)), Start: form.Start, End: form.End}
		},
	},
	"/api/video/change-speed": {
		kind:  operation.KindSpeed,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			form := SpeedForm{
				Factor:    c.form.float("factor", 0),
				VideoOnly: c.form.bool("video_only"),
				AudioOnly: c.form.bool("audio_only"),
			}
			req := operation.NewSpeed(c.in(0), c.out(c.ext(0)), form.Factor)
			req.VideoOnly, req.AudioOnly = form.VideoOnly, form.AudioOnly
			return form, req
		},
	},
	"/api/video/rotation": {
		kind:  operation.KindRotate,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			form := RotationForm{Angle: c.form.float("angle", 90)}
			return form, &operation.Rotate{Input: c.in(0), Output: c.out(c.ext(0)), Angle: form.Angle}
		},
	},
	"/api/video/border": {
		kind:  operation.KindBorder,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			req := operation.NewBorder(c.in(0), c.out(c.ext(0)))
			form := BorderForm{Thickness: c.form.int("thickness", req.Thickness), Color: c.form.str("color", req.Color)}
			req.Thickness, req.Color = form.Thickness, form.Color
			return form, req
		},
	},
	"/api/video/green-screen": {
		kind:  operation.KindChromaKey,
		files: []string{"file", "background"},
		build: func(c *opCall) (any, operation.Request) {
			req := operation.NewChromaKey(c.in(0), c.in(1), c.out(c.ext(0)))
			form := GreenScreenForm{
				Color:      c.form.str("color", req.Color),
				Similarity: c.form.float("similarity", req.Similarity),
				Blend:      c.form.float("blend", req.Blend),
			}
			req.Color, req.Similarity, req.Blend = form.Color, form.Similarity, form.Blend
			return form, req
		},
	},
	"/api/video/merge": {
		kind:  operation.KindStack,
		files: []string{"first", "second"},
		build: func(c *opCall) (any, operation.Request) {
			form := MergeForm{Direction: c.form.lower("direction", string(operation.Horizontal))}
			return form, &operation.Stack{
				First:     c.in(0),
				Second:    c.in(1),
				Output:    c.out(c.ext(0)),
				Direction: operation.Direction(form.Direction),
			}
		},
	},
	"/api/video/thumbnail": {
		kind:  operation.KindThumbnail,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			form := ThumbnailForm{At: c.form.time("at", "00:00:00"), Format: c.form.lower("format", "jpg")}
			return form, &operation.Thumbnail{Input: c.in(0), Output: c.out("." + form.Format), At: form.At}
		},
	},
	"/api/video/compress": {
		kind:  operation.KindCompress,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			req := operation.NewCompress(c.in(0), c.out(c.ext(0)))
			form := CompressForm{
				CRF:    c.form.int("crf", req.CRF),
				Preset: c.form.lower("preset", ""),
				Width:  c.form.int("width", 0),
				Height: c.form.int("height", 0),
			}
			req.CRF, req.Preset, req.Width, req.Height = form.CRF, form.Preset, form.Width, form.Height
			return form, req
		},
	},
	"/api/video/grayscale": {
		kind:  operation.KindGrayscale,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			return nil, &operation.Grayscale{Input: c.in(0), Output: c.out(c.ext(0))}
		},
	},
	"/api/video/remove-audio": {
		kind:  operation.KindRemoveAudio,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			return nil, &operation.RemoveAudio{Input: c.in(0), Output: c.out(c.ext(0))}
		},
	},
	"/api/audio/volume": {
		kind:  operation.KindVolume,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			form := VolumeForm{Gain: c.form.float("gain", 0)}
			return form, &operation.Volume{Input: c.in(0), Output: c.out(c.ext(0)), Gain: form.Gain}
		},
	},
	"/api/audio/mix": {
		kind:  operation.KindAudioMix,
		files: []string{"first", "second"},
		build: func(c *opCall) (any, operation.Request) {
			form := MixForm{
				Duration: c.form.lower("duration", string(operation.MixLongest)),
				Format:   c.form.lower("format", "mp3"),
			}
			req := operation.NewAudioMix(c.in(0), c.in(1), c.out("."+form.Format))
			req.Duration = operation.MixDuration(form.Duration)
			return form, req
		},
	},
	"/api/audio/convert": {
		kind:  operation.KindConvert,
		files: []string{"file"},
		build: func(c *opCall) (any, operation.Request) {
			form := ConvertForm{Format: c.form.lower("format", ""), Bitrate: c.form.str("bitrate", "")}
			return form, &operation.Convert{
				Input:   c.in(0),
				Output:  c.out("." + form.Format),
				Format:  form.Format,
				Bitrate: form.Bitrate,
			}
		},
	},
}
