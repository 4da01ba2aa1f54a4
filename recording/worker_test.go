package recording

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type nopUploader struct{}

func (nopUploader) Upload(ctx context.Context, localPath string) error { return nil }

// writeMuxer pretends to mux by writing the output container.
type writeMuxer struct {
	err   error
	order []string
	mu    sync.Mutex
}

func (m *writeMuxer) Mux(seg Segment) error {
	m.mu.Lock()
	m.order = append(m.order, filepath.Base(seg.OutputPath))
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(seg.OutputPath, []byte("mp4"), 0644)
}

type recordingUploader struct {
	err      error
	uploaded []string
	mu       sync.Mutex
	done     chan struct{}
}

func (u *recordingUploader) Upload(ctx context.Context, localPath string) error {
	u.mu.Lock()
	u.uploaded = append(u.uploaded, filepath.Base(localPath))
	u.mu.Unlock()
	if u.done != nil {
		u.done <- struct{}{}
	}
	return u.err
}

func makeSegment(t *testing.T, dir, token string) Segment {
	t.Helper()
	seg := NewSegment(dir, token)
	if err := os.WriteFile(seg.VideoPath, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(seg.AudioPath, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return seg
}

func TestWorkerHappyPath(t *testing.T) {
	dir := t.TempDir()
	seg := makeSegment(t, dir, "2025-01-02_03-04-05")

	muxer := &writeMuxer{}
	uploader := &recordingUploader{}
	w := NewWorker(newSegmentQueue(), muxer, uploader)

	w.process(seg)

	if fileExists(seg.VideoPath) || fileExists(seg.AudioPath) {
		t.Error("Expected raw inputs removed after successful mux")
	}
	if fileExists(seg.OutputPath) {
		t.Error("Expected local container removed after successful upload")
	}
	if len(uploader.uploaded) != 1 || uploader.uploaded[0] != "rec_2025-01-02_03-04-05.mp4" {
		t.Errorf("Expected one upload of the container, got %v", uploader.uploaded)
	}
}

func TestWorkerSkipsSegmentWithMissingInput(t *testing.T) {
	dir := t.TempDir()
	seg := NewSegment(dir, "2025-01-02_03-04-05")
	os.WriteFile(seg.AudioPath, []byte("audio"), 0644) // video missing

	muxer := &writeMuxer{}
	uploader := &recordingUploader{}
	w := NewWorker(newSegmentQueue(), muxer, uploader)

	w.process(seg)

	if len(muxer.order) != 0 {
		t.Error("Expected mux to be skipped when an input is missing")
	}
	if len(uploader.uploaded) != 0 {
		t.Error("Expected no upload for an abandoned segment")
	}
}

func TestWorkerKeepsRawsOnMuxFailure(t *testing.T) {
	dir := t.TempDir()
	seg := makeSegment(t, dir, "2025-01-02_03-04-05")

	muxer := &writeMuxer{err: errors.New("mux exploded")}
	uploader := &recordingUploader{}
	w := NewWorker(newSegmentQueue(), muxer, uploader)

	w.process(seg)

	if !fileExists(seg.VideoPath) || !fileExists(seg.AudioPath) {
		t.Error("Expected raw inputs kept after mux failure")
	}
	if len(uploader.uploaded) != 0 {
		t.Error("Expected no upload after mux failure")
	}
}

func TestWorkerKeepsContainerOnUploadFailure(t *testing.T) {
	dir := t.TempDir()
	seg := makeSegment(t, dir, "2025-01-02_03-04-05")

	muxer := &writeMuxer{}
	uploader := &recordingUploader{err: errors.New("no network")}
	w := NewWorker(newSegmentQueue(), muxer, uploader)

	w.process(seg)

	if !fileExists(seg.OutputPath) {
		t.Error("Expected container kept on local disk after upload failure")
	}
	if fileExists(seg.VideoPath) || fileExists(seg.AudioPath) {
		t.Error("Expected raw inputs still removed; mux succeeded")
	}
}

func TestWorkerProcessesInEnqueueOrder(t *testing.T) {
	dir := t.TempDir()
	queue := newSegmentQueue()
	muxer := &writeMuxer{}
	uploader := &recordingUploader{done: make(chan struct{})}
	w := NewWorker(queue, muxer, uploader)

	const n = 5
	var want []string
	for i := 0; i < n; i++ {
		token := TimestampToken(time.Date(2025, 1, 2, 3, 4, i, 0, time.UTC))
		queue.Push(makeSegment(t, dir, token))
		want = append(want, "rec_"+token+".mp4")
	}

	go w.Run()

	for i := 0; i < n; i++ {
		select {
		case <-uploader.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for segment %d", i)
		}
	}

	muxer.mu.Lock()
	defer muxer.mu.Unlock()
	for i := range want {
		if muxer.order[i] != want[i] {
			t.Fatalf("Segment %d processed out of order: expected %s, got %s", i, want[i], muxer.order[i])
		}
	}
}
