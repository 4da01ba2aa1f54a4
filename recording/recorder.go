// Package recording drives the segmented capture pipeline: a rotation loop
// producing fixed-length segments, and a single background worker that muxes
// and uploads everything the loop hands over.
package recording

import (
	"log"
	"sync"
	"time"

	"github.com/openglass/glassesd/status"
)

// Options configure the recorder.
type Options struct {
	// Dir is where segment files are written.
	Dir string
	// DefaultSegmentSeconds is used when START carries no duration.
	DefaultSegmentSeconds int
	// Grace is how long STOP waits between SIGTERM and SIGKILL.
	Grace time.Duration
}

// Recorder owns the recording state machine. Idle until START flips the
// enabled flag, then one segment cycles at a time until STOP. STOP is
// cooperative at segment boundaries and forceful toward the capture
// processes themselves.
type Recorder struct {
	mu             sync.Mutex
	enabled        bool
	segmentSeconds int
	handles        *Handles

	opts      Options
	sup       Supervisor
	queue     *segmentQueue
	worker    *Worker
	workerUp  sync.Once
	publisher *status.Publisher
}

func NewRecorder(opts Options, sup Supervisor, muxer Muxer, uploader Uploader, publisher *status.Publisher) *Recorder {
	queue := newSegmentQueue()
	return &Recorder{
		opts:           opts,
		segmentSeconds: opts.DefaultSegmentSeconds,
		sup:            sup,
		queue:          queue,
		worker:         NewWorker(queue, muxer, uploader),
		publisher:      publisher,
	}
}

// Start begins segmented recording with the given segment length. A second
// START while already recording is a no-op. The mux/upload worker is started
// lazily on the first START and lives for the rest of the process.
func (r *Recorder) Start(seconds int) {
	if seconds <= 0 {
		log.Printf("REC: Invalid segment length, ignoring: %d", seconds)
		return
	}

	r.mu.Lock()
	if r.enabled {
		r.mu.Unlock()
		log.Println("REC: Already in segmented recording mode, ignoring START")
		return
	}
	r.segmentSeconds = seconds
	r.enabled = true
	r.mu.Unlock()

	log.Printf("REC: Starting segmented recording, %ds per file", seconds)

	r.workerUp.Do(func() {
		log.Println("UP: Starting uploader worker")
		go r.worker.Run()
	})

	go r.loop()
}

// Stop clears the enabled flag and terminates any in-flight capture
// processes. The rotation loop finishes the current segment's bookkeeping
// before exiting; the queue and worker are untouched.
func (r *Recorder) Stop() {
	log.Println("REC: STOP requested")

	r.mu.Lock()
	r.enabled = false
	h := r.handles
	r.mu.Unlock()

	if h != nil {
		r.sup.Stop(h, r.opts.Grace)
	}
}

// Recording reports whether segmented recording is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// SegmentSeconds returns the segment length currently in effect. It is the
// fallback for a START command with an unparsable duration.
func (r *Recorder) SegmentSeconds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.segmentSeconds
}

// StatusString is the recording half of the status vocabulary.
func (r *Recorder) StatusString() string {
	if r.Recording() {
		return "RECORDING"
	}
	return "IDLE"
}

// QueuedSegments reports the backlog waiting for the worker.
func (r *Recorder) QueuedSegments() int {
	return r.queue.Len()
}

func (r *Recorder) loop() {
	log.Println("REC: Recording loop started")

	for {
		r.mu.Lock()
		if !r.enabled {
			r.mu.Unlock()
			break
		}
		seconds := r.segmentSeconds
		r.mu.Unlock()

		token := TimestampToken(time.Now())
		seg := NewSegment(r.opts.Dir, token)
		log.Printf("REC: Starting new segment at timestamp %s", token)

		h, err := r.sup.Start(seg, time.Duration(seconds)*time.Second)
		if err != nil {
			log.Printf("REC: Error starting capture processes: %v", err)
			r.mu.Lock()
			r.enabled = false
			r.mu.Unlock()
			r.publisher.Set(r.StatusString())
			break
		}

		r.mu.Lock()
		r.handles = h
		r.mu.Unlock()

		videoExit, audioExit := r.sup.Wait(h)

		r.mu.Lock()
		r.handles = nil
		r.mu.Unlock()

		log.Printf("REC: Video process exited with %d", videoExit)
		log.Printf("REC: Audio process exited with %d", audioExit)

		if seg.Valid() {
			log.Printf("REC: Queuing segment for processing: %s", seg.OutputPath)
			r.queue.Push(seg)
		} else {
			log.Printf("REC: Skipping segment, missing or empty raw files: %s %s", seg.VideoPath, seg.AudioPath)
		}

		r.mu.Lock()
		enabled := r.enabled
		r.mu.Unlock()
		if !enabled {
			log.Println("REC: Loop flag cleared after segment, exiting loop")
			break
		}
	}

	log.Println("REC: Recording loop exited")
}
