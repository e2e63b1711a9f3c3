package entity

import "time"

// Metadata keys a camera client may attach to an upload.
const (
	MetaFPS     = "fps"
	MetaQuality = "quality"
	MetaWidth   = "width"
	MetaHeight  = "height"
)

// MetaKeys lists the metadata fields accepted from uploads.
var MetaKeys = []string{MetaFPS, MetaQuality, MetaWidth, MetaHeight}

// Frame is one published image. It must not be modified once published.
type Frame struct {
	FrameMeta

	Payload []byte `json:"payload"`
}

type FrameMeta struct {
	ID          string            `json:"id"`
	Sequence    uint64            `json:"seq"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

// Size returns the payload length in bytes.
func (f *Frame) Size() int {
	return len(f.Payload)
}

// Meta returns the value of a metadata key, or "" when absent.
func (f *Frame) Meta(key string) string {
	if f.Metadata == nil {
		return ""
	}

	return f.Metadata[key]
}
