package publisher

import (
	"context"
	"sync"

	"address-cri/pkg/platform/audit"
)

// Publisher delivers audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
	Close() error
}

// InMemoryPublisher collects events for tests and development.
type InMemoryPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

// NewInMemory constructs an empty in-memory publisher.
func NewInMemory() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a snapshot of everything emitted so far.
func (p *InMemoryPublisher) Events() []audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]audit.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *InMemoryPublisher) Close() error {
	return nil
}
