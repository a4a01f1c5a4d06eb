package operation

import (
	"path/filepath"
	"strings"
)

// Format describes a container the service can produce.
type Format struct {
	Name        string
	VideoCodec  string
	AudioCodec  string
	ContentType string
	Image       bool
}

// AudioOnly reports whether the format carries no video.
func (f Format) AudioOnly() bool {
	return f.VideoCodec == "" && !f.Image
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + f.Name
}

var formats = map[string]Format{
	"mp4":  {Name: "mp4", VideoCodec: "libx264", AudioCodec: "aac", ContentType: "video/mp4"},
	"mkv":  {Name: "mkv", VideoCodec: "libx264", AudioCodec: "aac", ContentType: "video/x-matroska"},
	"avi":  {Name: "avi", VideoCodec: "libx264", AudioCodec: "aac", ContentType: "video/x-msvideo"},
	"mov":  {Name: "mov", VideoCodec: "libx264", AudioCodec: "aac", ContentType: "video/quicktime"},
	"webm": {Name: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", ContentType: "video/webm"},
	"gif":  {Name: "gif", VideoCodec: "gif", ContentType: "image/gif"},
	"mp3":  {Name: "mp3", AudioCodec: "libmp3lame", ContentType: "audio/mpeg"},
	"wav":  {Name: "wav", AudioCodec: "pcm_s16le", ContentType: "audio/wav"},
	"ogg":  {Name: "ogg", AudioCodec: "libvorbis", ContentType: "audio/ogg"},
	"flac": {Name: "flac", AudioCodec: "flac", ContentType: "audio/flac"},
	"aac":  {Name: "aac", AudioCodec: "aac", ContentType: "audio/aac"},
	"m4a":  {Name: "m4a", AudioCodec: "aac", ContentType: "audio/mp4"},
	"jpg":  {Name: "jpg", ContentType: "image/jpeg", Image: true},
	"jpeg": {Name: "jpeg", ContentType: "image/jpeg", Image: true},
	"png":  {Name: "png", ContentType: "image/png", Image: true},
}

// LookupFormat finds a format by name or extension, case-insensitively.
// "mp4", ".mp4" and "MP4" are equivalent.
func LookupFormat(name string) (Format, bool) {
	f, ok := formats[strings.ToLower(strings.TrimPrefix(name, "."))]
	return f, ok
}

// ContentType returns the MIME type for path's extension, or
// application/octet-stream when the extension is unknown.
func ContentType(path string) string {
	if f, ok := LookupFormat(filepath.Ext(path)); ok {
		return f.ContentType
	}
	return "application/octet-stream"
}
