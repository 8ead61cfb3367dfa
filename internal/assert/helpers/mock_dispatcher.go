package helpers

import (
	"context"
	"sync"

	"github.com/kode4food/weave/pkg/api"
)

type (
	// MockDispatcher is a configurable api.Dispatcher that records every
	// request it receives
	MockDispatcher struct {
		generation *api.Generation
		err        error
		events     []api.Event
		cached     []CachedCall
		streamed   []*api.ChatRequest
		mu         sync.Mutex
	}

	// CachedCall records one call to ExecuteWithCache
	CachedCall struct {
		Request  *api.ChatRequest
		Project  api.Project
		Store    api.Store
		UseCache bool
	}
)

// NewMockDispatcher creates a dispatcher returning a single completion
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{
		generation: NewGeneration("mock completion"),
	}
}

// ExecuteWithCache records the call and returns the configured result
func (d *MockDispatcher) ExecuteWithCache(
	_ context.Context, req *api.ChatRequest, _ api.Credentials,
	project api.Project, store api.Store, useCache bool,
) (*api.Generation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = append(d.cached, CachedCall{
		Request:  req,
		Project:  project,
		Store:    store,
		UseCache: useCache,
	})
	return d.result()
}

// Execute records the call, emits the configured events to sink and
// returns the configured result
func (d *MockDispatcher) Execute(
	_ context.Context, req *api.ChatRequest, _ api.Credentials,
	sink api.EventSink,
) (*api.Generation, error) {
	d.mu.Lock()
	d.streamed = append(d.streamed, req)
	events := d.events
	d.mu.Unlock()

	if sink != nil {
		for _, ev := range events {
			_ = sink.Send(ev)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result()
}

// SetGeneration configures the generation returned by both entry points
func (d *MockDispatcher) SetGeneration(gen *api.Generation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation = gen
}

// SetError configures an error returned by both entry points
func (d *MockDispatcher) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// SetEvents configures the raw events emitted by Execute
func (d *MockDispatcher) SetEvents(events ...api.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = events
}

// CachedCalls returns the recorded ExecuteWithCache calls
func (d *MockDispatcher) CachedCalls() []CachedCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := make([]CachedCall, len(d.cached))
	copy(res, d.cached)
	return res
}

// StreamedRequests returns the requests received by Execute
func (d *MockDispatcher) StreamedRequests() []*api.ChatRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := make([]*api.ChatRequest, len(d.streamed))
	copy(res, d.streamed)
	return res
}

// LastRequest returns the most recent request from either entry point
func (d *MockDispatcher) LastRequest() *api.ChatRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streamed) > 0 {
		return d.streamed[len(d.streamed)-1]
	}
	if len(d.cached) > 0 {
		return d.cached[len(d.cached)-1].Request
	}
	return nil
}

// CallCount returns the total number of dispatches
func (d *MockDispatcher) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cached) + len(d.streamed)
}

func (d *MockDispatcher) result() (*api.Generation, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.generation, nil
}
