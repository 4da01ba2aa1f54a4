package recording

import (
	"context"
	"log"
	"os"
)

// Muxer combines a segment's raw streams into its output container.
type Muxer interface {
	Mux(seg Segment) error
}

// Uploader pushes a finished container to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath string) error
}

// Worker is the single consumer of the segment queue. Each item is processed
// to completion or abandoned; one bad segment never stalls the pipeline and
// there is no automatic retry.
type Worker struct {
	queue    *segmentQueue
	muxer    Muxer
	uploader Uploader
}

func NewWorker(queue *segmentQueue, muxer Muxer, uploader Uploader) *Worker {
	return &Worker{
		queue:    queue,
		muxer:    muxer,
		uploader: uploader,
	}
}

// Run drains the queue for the lifetime of the process.
func (w *Worker) Run() {
	log.Println("UP: Uploader worker started")
	for {
		seg := w.queue.Pop()
		w.process(seg)
	}
}

func (w *Worker) process(seg Segment) {
	log.Printf("UP: Processing segment: video=%s audio=%s mp4=%s", seg.VideoPath, seg.AudioPath, seg.OutputPath)

	// Inputs can vanish between enqueue and dequeue; that is terminal for
	// the segment, not for the worker.
	if !fileExists(seg.VideoPath) {
		log.Printf("UP: ERROR: raw video missing: %s", seg.VideoPath)
		return
	}
	if !fileExists(seg.AudioPath) {
		log.Printf("UP: ERROR: raw audio missing: %s", seg.AudioPath)
		return
	}

	if err := w.muxer.Mux(seg); err != nil {
		log.Printf("UP: ERROR during mux: %v", err)
		return
	}

	// Raw inputs are only disposable once the container exists. Removal is
	// best-effort; leftovers cost disk, not correctness.
	if fileExists(seg.OutputPath) {
		for _, raw := range []string{seg.VideoPath, seg.AudioPath} {
			if err := os.Remove(raw); err != nil {
				log.Printf("UP: Warning: failed to remove raw file %s: %v", raw, err)
			}
		}
	}

	if err := w.uploader.Upload(context.Background(), seg.OutputPath); err != nil {
		// Container stays on local disk for a manual re-run.
		log.Printf("UP: Upload failed, keeping local container: %v", err)
		return
	}

	if err := os.Remove(seg.OutputPath); err != nil {
		log.Printf("UP: Warning: failed to remove uploaded container %s: %v", seg.OutputPath, err)
	}
}
