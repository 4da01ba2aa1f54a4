package recording

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// AudioLeadSeconds shifts audio presentation timestamps earlier to
// compensate for arecord's start-up latency relative to the camera.
const AudioLeadSeconds = 1.5

// FFmpegMuxer wraps the external ffmpeg binary. Video is stream-copied;
// audio is downmixed to mono, gained, and re-encoded to AAC.
type FFmpegMuxer struct {
	FFmpegPath string
	Framerate  int
}

func NewFFmpegMuxer() *FFmpegMuxer {
	return &FFmpegMuxer{
		FFmpegPath: "ffmpeg",
		Framerate:  30,
	}
}

// CheckAvailable verifies ffmpeg is installed and runnable.
func (f *FFmpegMuxer) CheckAvailable() error {
	output, err := exec.Command(f.FFmpegPath, "-version").Output()
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if !strings.Contains(string(output), "ffmpeg version") {
		return fmt.Errorf("ffmpeg not properly installed")
	}
	return nil
}

func (f *FFmpegMuxer) Mux(seg Segment) error {
	audioFilter := fmt.Sprintf(
		"asetpts=PTS-%.1f/TB,pan=mono|c0=0.5*c0+0.5*c1,volume=8.0",
		AudioLeadSeconds,
	)

	args := []string{
		"-y",
		"-r", fmt.Sprintf("%d", f.Framerate),
		"-i", seg.VideoPath,
		"-i", seg.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "48000",
		"-filter:a", audioFilter,
		"-movflags", "+faststart",
		seg.OutputPath,
	}

	cmd := exec.Command(f.FFmpegPath, args...)
	log.Printf("UP: Muxing A/V -> MP4: %s", cmd.String())

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(output), 400))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
