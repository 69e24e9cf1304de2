// Package events carries domain events out of the simulation phases.
package events

import "sync"

// Queue receives events produced during a phase.
type Queue interface {
	Queue(eventType string, payload any, tick int64)
}

// Event is a queued domain event.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	Tick    int64  `json:"tick"`
}

// Collector buffers events in emission order.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Queue appends an event.
func (c *Collector) Queue(eventType string, payload any, tick int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Type: eventType, Payload: payload, Tick: tick})
}

// Events returns a copy of the buffered events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Drain returns the buffered events and resets the collector.
func (c *Collector) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// Count returns how many events of the given type were queued.
func (c *Collector) Count(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
