package photos

import (
	"bytes"
	"image"
	"strings"
	"time"

	"github.com/bep/imagemeta"
)

// exifTimeLayout is the EXIF date format.
const exifTimeLayout = "2006:01:02 15:04:05"

// Metadata holds the EXIF fields shown next to a photo.
type Metadata struct {
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	TakenAt     *time.Time `json:"takenAt,omitempty"`
	CameraMake  string     `json:"cameraMake,omitempty"`
	CameraModel string     `json:"cameraModel,omitempty"`
}

var wantedEXIFTags = map[string]bool{
	"DateTimeOriginal": true,
	"Make":             true,
	"Model":            true,
}

// ExtractMetadata reads dimensions and EXIF fields from raw image bytes.
// Returns nil when nothing could be read. Never returns an error.
func ExtractMetadata(data []byte) *Metadata {
	if len(data) == 0 {
		return nil
	}

	meta := &Metadata{}
	found := false

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
		found = true
	}

	// Errors only mean there is no readable EXIF block.
	_, _ = imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return wantedEXIFTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			handleEXIFTag(meta, ti, &found)
			return nil
		},
	})

	if !found {
		return nil
	}
	return meta
}

func handleEXIFTag(meta *Metadata, ti imagemeta.TagInfo, found *bool) {
	switch ti.Tag {
	case "DateTimeOriginal":
		if t, ok := tagValueTime(ti.Value); ok {
			meta.TakenAt = &t
			*found = true
		}
	case "Make":
		if s := tagValueString(ti.Value); s != "" {
			meta.CameraMake = s
			*found = true
		}
	case "Model":
		if s := tagValueString(ti.Value); s != "" {
			meta.CameraModel = s
			*found = true
		}
	}
}

func tagValueTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		t, err := time.Parse(exifTimeLayout, strings.TrimSpace(val))
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

// tagValueString extracts a trimmed string from a tag value.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(strings.TrimRight(val, "\x00"))
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
		return ""
	default:
		return ""
	}
}
