package recording

import (
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout is the shared token embedded in every segment file name.
// The remote index parses it back out of uploaded object keys.
const TimestampLayout = "2006-01-02_15-04-05"

// Segment is one capture cycle's matched pair of raw files plus the container
// they will be muxed into. All three paths derive from one timestamp token.
// A Segment is never mutated after creation; only its backing files change.
type Segment struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
}

// NewSegment derives the segment paths for a timestamp token under dir.
func NewSegment(dir, token string) Segment {
	base := "rec_" + token
	return Segment{
		VideoPath:  filepath.Join(dir, base+".h264"),
		AudioPath:  filepath.Join(dir, base+".wav"),
		OutputPath: filepath.Join(dir, base+".mp4"),
	}
}

// TimestampToken formats t as a segment token.
func TimestampToken(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Valid reports whether both raw captures exist and are non-empty. The
// capture tools give no structured success signal beyond their exit code,
// so file presence and size are the only acceptance check.
func (s Segment) Valid() bool {
	return fileNonEmpty(s.VideoPath) && fileNonEmpty(s.AudioPath)
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
