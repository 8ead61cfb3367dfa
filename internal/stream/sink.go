package stream

import (
	"context"
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/weave/pkg/api"
)

type (
	// Sink is a closable api.EventSink. Sent events are queued without
	// blocking the sender and are delivered in order by Drain
	Sink struct {
		prod      topic.Producer[item]
		cons      topic.Consumer[item]
		mu        sync.Mutex
		closed    bool
		closeOnce sync.Once
	}

	// Handler receives each drained event. Returning an error stops the
	// drain
	Handler func(api.Event) error

	item struct {
		event api.Event
		last  bool
	}
)

var _ api.EventSink = (*Sink)(nil)

// NewSink creates an open sink
func NewSink() *Sink {
	queue := caravan.NewTopic[item]()
	return &Sink{
		prod: queue.NewProducer(),
		cons: queue.NewConsumer(),
	}
}

// Send queues ev, or returns api.ErrSinkClosed once the sink is closed
func (s *Sink) Send(ev api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.ErrSinkClosed
	}
	message.Send(s.prod, item{event: ev})
	return nil
}

// Close rejects further sends. Events already queued are still drained
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	message.Send(s.prod, item{last: true})
}

// Closed reports whether the sink rejects sends
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Drain calls fn for every queued event until the sink is closed and
// emptied, fn fails, or ctx is done. A sink can only be drained once
func (s *Sink) Drain(ctx context.Context, fn Handler) error {
	defer s.release()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case it, ok := <-s.cons.Receive():
			if !ok || it.last {
				return nil
			}
			if err := fn(it.event); err != nil {
				s.Close()
				return err
			}
		}
	}
}

func (s *Sink) release() {
	s.closeOnce.Do(func() {
		s.cons.Close()
		s.prod.Close()
	})
}
