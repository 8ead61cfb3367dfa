package helpers

import (
	"sync"

	"github.com/kode4food/weave/pkg/api"
)

// RecordingSink is an api.EventSink that keeps every event it receives
// until it is closed
type RecordingSink struct {
	events []api.Event
	closed bool
	mu     sync.Mutex
}

// NewRecordingSink creates an open recording sink
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Send records ev, or returns api.ErrSinkClosed after Close
func (s *RecordingSink) Send(ev api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.ErrSinkClosed
	}
	s.events = append(s.events, ev)
	return nil
}

// Close makes further sends fail
func (s *RecordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Events returns the recorded events in order
func (s *RecordingSink) Events() []api.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]api.Event, len(s.events))
	copy(res, s.events)
	return res
}
