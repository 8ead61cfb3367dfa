package block

import (
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/weave/pkg/api"
)

type (
	// forwarder is the raw event sink handed to a streaming dispatch. Events
	// are queued on an unbounded topic and a dedicated task re-wraps the
	// forwardable ones for the external sink, preserving their order
	forwarder struct {
		prod   topic.Producer[queued]
		cons   topic.Consumer[queued]
		sink   api.EventSink
		header api.BlockEventContent
		mu     sync.Mutex
		closed bool
		wg     sync.WaitGroup
	}

	queued struct {
		event api.Event
		last  bool
	}
)

func newForwarder(
	sink api.EventSink, typ api.BlockType, name api.Name, env *api.Env,
) *forwarder {
	queue := caravan.NewTopic[queued]()
	return &forwarder{
		prod: queue.NewProducer(),
		cons: queue.NewConsumer(),
		sink: sink,
		header: api.BlockEventContent{
			BlockType:  typ,
			BlockName:  name,
			InputIndex: env.Input.Index,
			Map:        env.Map,
		},
	}
}

// Send queues a raw dispatcher event. It never blocks on the external sink
func (f *forwarder) Send(ev api.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return api.ErrSinkClosed
	}
	message.Send(f.prod, queued{event: ev})
	return nil
}

func (f *forwarder) start() {
	f.wg.Go(func() {
		for {
			q, ok := <-f.cons.Receive()
			if !ok || q.last {
				return
			}
			f.forward(q.event)
		}
	})
}

// finish waits until every queued event has been forwarded. Later sends
// are rejected
func (f *forwarder) finish() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		message.Send(f.prod, queued{last: true})
	}
	f.mu.Unlock()

	f.wg.Wait()
	f.prod.Close()
	f.cons.Close()
}

func (f *forwarder) forward(ev api.Event) {
	content := f.header
	switch ev.Type {
	case api.EventTypeTokens, api.EventTypeFunctionCallArgumentsTokens:
		content.Tokens = ev.Content
	case api.EventTypeFunctionCall:
		content.FunctionCall = ev.Content
	default:
		return
	}
	// a closed sink turns forwarding into a no-op
	_ = f.sink.Send(api.Event{Type: ev.Type, Content: content})
}
