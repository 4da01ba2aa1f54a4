package recording

import (
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

// Handles are the two live capture processes of one in-flight segment.
type Handles struct {
	video *exec.Cmd
	audio *exec.Cmd
}

// Supervisor starts and stops the paired capture processes of a segment.
type Supervisor interface {
	// Start launches both capture processes for the given duration.
	Start(seg Segment, duration time.Duration) (*Handles, error)
	// Wait blocks until both processes exit and returns their exit codes.
	Wait(h *Handles) (videoExit, audioExit int)
	// Stop terminates both processes, escalating to SIGKILL after grace.
	Stop(h *Handles, grace time.Duration)
}

// CaptureSupervisor runs the on-device capture tools: rpicam-vid for video
// and arecord for audio. Both write straight to disk; the files are the only
// observable output.
type CaptureSupervisor struct {
	VideoTool   string
	AudioTool   string
	Width       int
	Height      int
	Framerate   int
	AudioDevice string
	SampleRate  int
}

func NewCaptureSupervisor() *CaptureSupervisor {
	return &CaptureSupervisor{
		VideoTool:   "rpicam-vid",
		AudioTool:   "arecord",
		Width:       1280,
		Height:      720,
		Framerate:   30,
		AudioDevice: "plughw:0,0",
		SampleRate:  48000,
	}
}

func (s *CaptureSupervisor) Start(seg Segment, duration time.Duration) (*Handles, error) {
	seconds := int(duration / time.Second)

	video := exec.Command(s.VideoTool,
		"-t", strconv.Itoa(seconds*1000),
		"--width", strconv.Itoa(s.Width),
		"--height", strconv.Itoa(s.Height),
		"--framerate", strconv.Itoa(s.Framerate),
		"-o", seg.VideoPath,
	)

	audio := exec.Command(s.AudioTool,
		"-D", s.AudioDevice,
		"-c2",
		"-r", strconv.Itoa(s.SampleRate),
		"-f", "S32_LE",
		"-t", "wav",
		"-d", strconv.Itoa(seconds),
		seg.AudioPath,
	)

	log.Printf("REC: Video cmd: %s", video.String())
	log.Printf("REC: Audio cmd: %s", audio.String())

	if err := video.Start(); err != nil {
		return nil, fmt.Errorf("failed to start video capture: %w", err)
	}
	if err := audio.Start(); err != nil {
		video.Process.Kill()
		video.Wait()
		return nil, fmt.Errorf("failed to start audio capture: %w", err)
	}

	return &Handles{video: video, audio: audio}, nil
}

func (s *CaptureSupervisor) Wait(h *Handles) (int, int) {
	return exitCode(h.video.Wait()), exitCode(h.audio.Wait())
}

// Stop signals both processes to terminate and force-kills anything still
// alive after grace. Reaping stays with the goroutine blocked in Wait, so
// Stop only ever signals.
func (s *CaptureSupervisor) Stop(h *Handles, grace time.Duration) {
	for name, cmd := range map[string]*exec.Cmd{"video": h.video, "audio": h.audio} {
		if cmd == nil || cmd.Process == nil {
			continue
		}
		log.Printf("REC: Terminating %s capture process", name)
		cmd.Process.Signal(syscall.SIGTERM)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !processAlive(h.video) && !processAlive(h.audio) {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	for name, cmd := range map[string]*exec.Cmd{"video": h.video, "audio": h.audio} {
		if processAlive(cmd) {
			log.Printf("REC: Force-killing %s capture process", name)
			cmd.Process.Kill()
		}
	}
}

func processAlive(cmd *exec.Cmd) bool {
	if cmd == nil || cmd.Process == nil {
		return false
	}
	return cmd.Process.Signal(syscall.Signal(0)) == nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
