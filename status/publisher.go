// Package status holds the single current device status payload and pushes
// changes to whoever subscribed: the BLE status characteristic, the local
// WebSocket hub, anything with a callback.
package status

import (
	"log"
	"sync"
)

// DefaultPayload is what a reader sees before anything has happened.
const DefaultPayload = "IDLE"

// NotifyFunc delivers a new payload to one subscriber. A non-nil error
// removes the subscriber from the set.
type NotifyFunc func(payload string) error

// Publisher is the process-wide status value. Last writer wins; there is no
// history. Safe for concurrent use.
type Publisher struct {
	mu          sync.RWMutex
	payload     string
	subscribers map[string]NotifyFunc
}

func NewPublisher() *Publisher {
	return &Publisher{
		payload:     DefaultPayload,
		subscribers: make(map[string]NotifyFunc),
	}
}

// Set overwrites the current payload and notifies all subscribers.
// Delivery is best-effort: a failing subscriber is evicted and the rest
// still get the update.
func (p *Publisher) Set(payload string) {
	p.mu.Lock()
	p.payload = payload
	type sub struct {
		id string
		fn NotifyFunc
	}
	subs := make([]sub, 0, len(p.subscribers))
	for id, fn := range p.subscribers {
		subs = append(subs, sub{id, fn})
	}
	p.mu.Unlock()

	log.Printf("STATUS: Updated status payload: %s", truncateForLog(payload))

	var failed []string
	for _, s := range subs {
		if err := s.fn(payload); err != nil {
			log.Printf("STATUS: Notify failed for subscriber %s: %v", s.id, err)
			failed = append(failed, s.id)
		}
	}

	if len(failed) > 0 {
		p.mu.Lock()
		for _, id := range failed {
			delete(p.subscribers, id)
		}
		p.mu.Unlock()
	}
}

// Get returns the current payload.
func (p *Publisher) Get() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.payload
}

// ReadChunk returns the payload bytes from offset onward. The transport caps
// single reads, so large payloads (a recordings page, a signed URL) are
// fetched by repeated reads at increasing offsets. An offset at or past the
// end yields an empty slice, not an error.
func (p *Publisher) ReadChunk(offset int) []byte {
	full := []byte(p.Get())
	if offset < 0 || offset >= len(full) {
		return []byte{}
	}
	return full[offset:]
}

// Subscribe registers fn under id, replacing any previous subscriber with
// the same id.
func (p *Publisher) Subscribe(id string, fn NotifyFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers[id] = fn
}

// Unsubscribe removes the subscriber registered under id, if any.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribers, id)
}

// SubscriberCount reports the current subscriber set size.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

func truncateForLog(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
