// Package mock provides a test double for the statusbus package.
package mock

import (
	"sync"

	"github.com/wrenrobotics/wren/pkg/statusbus"
)

// Compile-time assertion that Publisher satisfies statusbus.Publisher.
var _ statusbus.Publisher = (*Publisher)(nil)

// Update records one published topic/payload pair.
type Update struct {
	Topic   string
	Payload string
}

// Publisher is a mock implementation of statusbus.Publisher that records
// every update.
type Publisher struct {
	mu      sync.Mutex
	Updates []Update
}

// Publish records the update.
func (p *Publisher) Publish(topic, payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Updates = append(p.Updates, Update{Topic: topic, Payload: payload})
}

// Last returns the most recent payload published on topic, or "" if none.
func (p *Publisher) Last(topic string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.Updates) - 1; i >= 0; i-- {
		if p.Updates[i].Topic == topic {
			return p.Updates[i].Payload
		}
	}
	return ""
}

// On returns every payload published on topic, in order.
func (p *Publisher) On(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, u := range p.Updates {
		if u.Topic == topic {
			out = append(out, u.Payload)
		}
	}
	return out
}
