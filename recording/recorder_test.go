package recording

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/openglass/glassesd/status"
)

// fakeSupervisor simulates the capture pair without spawning processes.
// Each Start optionally writes the segment's raw files; Wait blocks until
// the cycle is released via Stop or finishCycle.
type fakeSupervisor struct {
	mu         sync.Mutex
	starts     int
	stops      int
	lastGrace  time.Duration
	writeVideo []byte
	writeAudio []byte
	onWait     func()
	cycles     []chan struct{}
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{
		writeVideo: []byte("video"),
		writeAudio: []byte("audio"),
	}
}

func (f *fakeSupervisor) Start(seg Segment, duration time.Duration) (*Handles, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.cycles = append(f.cycles, make(chan struct{}))
	if f.writeVideo != nil {
		os.WriteFile(seg.VideoPath, f.writeVideo, 0644)
	}
	if f.writeAudio != nil {
		os.WriteFile(seg.AudioPath, f.writeAudio, 0644)
	}
	return &Handles{}, nil
}

func (f *fakeSupervisor) Wait(h *Handles) (int, int) {
	f.mu.Lock()
	ch := f.cycles[len(f.cycles)-1]
	onWait := f.onWait
	f.mu.Unlock()
	if onWait != nil {
		onWait()
	}
	<-ch
	return 0, 0
}

func (f *fakeSupervisor) Stop(h *Handles, grace time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.lastGrace = grace
	for _, ch := range f.cycles {
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
}

func (f *fakeSupervisor) finishCycle(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.cycles[i])
}

func (f *fakeSupervisor) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeSupervisor) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type nopMuxer struct{}

func (nopMuxer) Mux(seg Segment) error { return nil }

func testRecorder(t *testing.T, sup Supervisor) *Recorder {
	t.Helper()
	opts := Options{
		Dir:                   t.TempDir(),
		DefaultSegmentSeconds: 900,
		Grace:                 5 * time.Second,
	}
	return NewRecorder(opts, sup, nopMuxer{}, nopUploader{}, status.NewPublisher())
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", msg)
}

func TestStartWhileActiveIsNoOp(t *testing.T) {
	sup := newFakeSupervisor()
	r := testRecorder(t, sup)

	r.Start(10)
	waitFor(t, func() bool { return sup.startCount() == 1 }, "first segment to start")

	r.Start(10)
	time.Sleep(50 * time.Millisecond)

	if got := sup.startCount(); got != 1 {
		t.Errorf("Expected 1 capture start after duplicate START, got %d", got)
	}
	if !r.Recording() {
		t.Error("Expected recorder to stay active")
	}

	r.Stop()
}

func TestStartRejectsNonPositiveSeconds(t *testing.T) {
	sup := newFakeSupervisor()
	r := testRecorder(t, sup)

	r.Start(0)
	r.Start(-5)
	time.Sleep(20 * time.Millisecond)

	if sup.startCount() != 0 {
		t.Errorf("Expected no capture starts, got %d", sup.startCount())
	}
	if r.Recording() {
		t.Error("Expected recorder to stay idle")
	}
}

func TestStopMidSegment(t *testing.T) {
	sup := newFakeSupervisor()
	r := testRecorder(t, sup)

	r.Start(10)
	waitFor(t, func() bool { return sup.startCount() == 1 }, "segment to start")

	r.Stop()

	if r.Recording() {
		t.Error("Expected enabled flag cleared immediately after STOP")
	}
	if sup.stopCount() != 1 {
		t.Errorf("Expected capture processes stopped once, got %d", sup.stopCount())
	}
	if sup.lastGrace != 5*time.Second {
		t.Errorf("Expected 5s grace window, got %v", sup.lastGrace)
	}

	// The loop finishes bookkeeping for the interrupted segment and exits,
	// so a fresh START must work again.
	waitFor(t, func() bool {
		r.Start(10)
		defer r.Stop()
		return sup.startCount() >= 2
	}, "recorder to accept a new START")
}

func TestStopWhileIdleIsSafe(t *testing.T) {
	sup := newFakeSupervisor()
	r := testRecorder(t, sup)

	r.Stop()

	if sup.stopCount() != 0 {
		t.Errorf("Expected no process stop while idle, got %d", sup.stopCount())
	}
}

func TestValidSegmentIsQueued(t *testing.T) {
	sup := newFakeSupervisor()
	r := testRecorder(t, sup)
	sup.onWait = r.Stop // one cycle, then idle

	r.Start(10)
	waitFor(t, func() bool { return r.QueuedSegments() == 1 }, "segment to be queued")
}

func TestEmptyRawFilesAreDropped(t *testing.T) {
	sup := newFakeSupervisor()
	sup.writeAudio = []byte{} // zero-byte audio capture
	r := testRecorder(t, sup)
	sup.onWait = r.Stop

	r.Start(10)
	waitFor(t, func() bool { return !r.Recording() && sup.startCount() == 1 }, "cycle to finish")
	time.Sleep(50 * time.Millisecond)

	if got := r.QueuedSegments(); got != 0 {
		t.Errorf("Expected invalid segment to be dropped, found %d queued", got)
	}
}

func TestMissingRawFilesAreDropped(t *testing.T) {
	sup := newFakeSupervisor()
	sup.writeVideo = nil // video tool produced nothing
	r := testRecorder(t, sup)
	sup.onWait = r.Stop

	r.Start(10)
	waitFor(t, func() bool { return !r.Recording() && sup.startCount() == 1 }, "cycle to finish")
	time.Sleep(50 * time.Millisecond)

	if got := r.QueuedSegments(); got != 0 {
		t.Errorf("Expected invalid segment to be dropped, found %d queued", got)
	}
}

func TestStatusString(t *testing.T) {
	sup := newFakeSupervisor()
	r := testRecorder(t, sup)

	if got := r.StatusString(); got != "IDLE" {
		t.Errorf("Expected IDLE, got %q", got)
	}

	r.Start(10)
	if got := r.StatusString(); got != "RECORDING" {
		t.Errorf("Expected RECORDING, got %q", got)
	}
	r.Stop()
	if got := r.StatusString(); got != "IDLE" {
		t.Errorf("Expected IDLE after STOP, got %q", got)
	}
}

func TestSegmentSecondsFollowsStart(t *testing.T) {
	sup := newFakeSupervisor()
	r := testRecorder(t, sup)

	if got := r.SegmentSeconds(); got != 900 {
		t.Errorf("Expected default 900, got %d", got)
	}

	r.Start(60)
	if got := r.SegmentSeconds(); got != 60 {
		t.Errorf("Expected 60 after START:60, got %d", got)
	}
	r.Stop()
}

func TestQueueFIFO(t *testing.T) {
	q := newSegmentQueue()

	const n = 20
	for i := 0; i < n; i++ {
		q.Push(NewSegment("/tmp", TimestampToken(time.Unix(int64(i), 0))))
	}

	for i := 0; i < n; i++ {
		want := NewSegment("/tmp", TimestampToken(time.Unix(int64(i), 0)))
		got := q.Pop()
		if got != want {
			t.Fatalf("Dequeue %d: expected %s, got %s", i, want.OutputPath, got.OutputPath)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	q := newSegmentQueue()

	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push(Segment{OutputPath: filepath.Join("/tmp", TimestampToken(time.Unix(int64(i), 0))+".mp4")})
		}(i)
	}
	wg.Wait()

	if q.Len() != n {
		t.Errorf("Expected %d queued segments, got %d", n, q.Len())
	}
}
