// Package eventstest records published events for assertions.
package eventstest

import (
	"context"
	"sync"
)

type Event struct {
	RoutingKey string
	Payload    any
}

type Recorder struct {
	mu     sync.Mutex
	events []Event

	// Err, when set, is returned from Publish after the event is recorded.
	Err error
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{RoutingKey: routingKey, Payload: payload})
	return r.Err
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Keys returns the routing keys in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.events))
	for _, e := range r.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}
