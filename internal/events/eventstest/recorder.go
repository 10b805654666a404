// Package eventstest has an in-memory events.Publisher for tests.
package eventstest

import (
	"context"
	"sync"
)

type Published struct {
	Topic     string
	Key       string
	EventType string
	Payload   any
}

type Recorder struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

func (r *Recorder) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Published{Topic: topic, Key: key, EventType: eventType, Payload: payload})
	return nil
}

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Count returns how many events of eventType were published.
func (r *Recorder) Count(eventType string) int {
	n := 0
	for _, e := range r.Events() {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}
