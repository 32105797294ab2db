package test

import (
	"context"
	"sync"

	"github.com/polkiloo/paygate/internal/events"
)

// PublisherStub records published events.
type PublisherStub struct {
	Err error

	mu     sync.Mutex
	events []events.Event
}

// Publish stores event and returns configured error.
func (p *PublisherStub) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

// Close does nothing.
func (p *PublisherStub) Close() error { return nil }

// Events returns copy of recorded events.
func (p *PublisherStub) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}
