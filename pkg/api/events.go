package api

import "errors"

type (
	// EventType identifies the kind of a stream event
	EventType string

	// Event is the envelope of every streaming event, both the raw events
	// produced by a dispatcher and the block events forwarded to a sink
	Event struct {
		Type    EventType `json:"type"`
		Content any       `json:"content"`
	}

	// BlockEventContent is the content of an event forwarded by a block. It
	// identifies the block and the iteration that produced the payload
	BlockEventContent struct {
		BlockType    BlockType `json:"block_type"`
		BlockName    Name      `json:"block_name"`
		InputIndex   int       `json:"input_index"`
		Map          *MapState `json:"map"`
		Tokens       any       `json:"tokens,omitempty"`
		FunctionCall any       `json:"function_call,omitempty"`
	}

	// BlockStatus is the content of a block_status event, emitted by the
	// program runner before and after a block runs over every input
	BlockStatus struct {
		BlockType    BlockType       `json:"block_type"`
		Name         Name            `json:"name"`
		Status       BlockStatusKind `json:"status"`
		SuccessCount int             `json:"success_count"`
		ErrorCount   int             `json:"error_count"`
	}

	// BlockStatusKind is the progress of a block within a program run
	BlockStatusKind string

	// EventSink receives stream events. Send returns ErrSinkClosed once the
	// sink no longer accepts events
	EventSink interface {
		Send(Event) error
	}
)

const (
	EventTypeTokens                      EventType = "tokens"
	EventTypeFunctionCall                EventType = "function_call"
	EventTypeFunctionCallArgumentsTokens EventType = "function_call_arguments_tokens"
	EventTypeBlockStatus                 EventType = "block_status"
	EventTypeFinal                       EventType = "final"
	EventTypeError                       EventType = "error"
)

const (
	StatusRunning   BlockStatusKind = "running"
	StatusSucceeded BlockStatusKind = "succeeded"
	StatusErrored   BlockStatusKind = "errored"
)

var ErrSinkClosed = errors.New("event sink closed")
