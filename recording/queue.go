package recording

import "sync"

// segmentQueue is an unbounded FIFO between the rotation loop and the
// mux/upload worker. Enqueue is safe from any goroutine; exactly one
// consumer is expected to drain it.
type segmentQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []Segment
}

func newSegmentQueue() *segmentQueue {
	q := &segmentQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *segmentQueue) Push(seg Segment) {
	q.mu.Lock()
	q.items = append(q.items, seg)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until a segment is available and removes it in insertion order.
func (q *segmentQueue) Pop() Segment {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	seg := q.items[0]
	q.items = q.items[1:]
	return seg
}

func (q *segmentQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
