package helpers

import (
	"context"
	"sync"

	"github.com/kode4food/weave/pkg/api"
)

// MockProvider is a dispatch.Provider returning a fixed generation and
// counting its calls
type MockProvider struct {
	id         api.ProviderID
	generation *api.Generation
	err        error
	events     []api.Event
	sinks      []api.EventSink
	mu         sync.Mutex
}

// NewMockProvider creates a provider answering with a single completion
func NewMockProvider(id api.ProviderID) *MockProvider {
	return &MockProvider{
		id:         id,
		generation: NewGeneration("provider completion"),
	}
}

func (p *MockProvider) ID() api.ProviderID {
	return p.id
}

// Chat records the sink, emits the configured events to it and returns
// the configured result
func (p *MockProvider) Chat(
	_ context.Context, _ *api.ChatRequest, _ api.Credentials,
	sink api.EventSink,
) (*api.Generation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, sink)
	if sink != nil {
		for _, ev := range p.events {
			_ = sink.Send(ev)
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.generation, nil
}

// SetError configures an error returned by Chat
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// SetEvents configures the raw events emitted by Chat
func (p *MockProvider) SetEvents(events ...api.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
}

// CallCount returns the number of Chat calls
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sinks)
}

// Sinks returns the sink passed to each Chat call
func (p *MockProvider) Sinks() []api.EventSink {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]api.EventSink, len(p.sinks))
	copy(res, p.sinks)
	return res
}
