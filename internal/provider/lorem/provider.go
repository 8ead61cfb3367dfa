package lorem

import (
	"context"
	"encoding/json"
	"iter"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"

	"github.com/kode4food/weave/pkg/api"
)

// Provider generates lorem ipsum completions. It needs no credentials and
// is used for development and testing
type Provider struct {
	generator *loremgen.Lorem
	delay     time.Duration
	mu        sync.Mutex
}

const (
	defaultWords = 24
	maxWords     = 512
	idPrefix     = "lorem-"
)

// NewProvider creates a lorem provider that streams without delay
func NewProvider() *Provider {
	return NewProviderWithDelay(0)
}

// NewProviderWithDelay creates a lorem provider that pauses between
// streamed words
func NewProviderWithDelay(delay time.Duration) *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     delay,
	}
}

// ID returns api.ProviderLorem
func (p *Provider) ID() api.ProviderID {
	return api.ProviderLorem
}

// Chat produces req.N completions. When the request forces a declared
// function, the completions call it with lorem arguments. The first
// completion is streamed to sink when it is not nil
func (p *Provider) Chat(
	ctx context.Context, req *api.ChatRequest, _ api.Credentials,
	sink api.EventSink,
) (*api.Generation, error) {
	n := max(req.N, 1)
	fn := forcedFunction(req)

	completions := make([]api.ChatMessage, 0, n)
	for i := range n {
		var sendTo api.EventSink
		if i == 0 {
			sendTo = sink
		}
		var msg api.ChatMessage
		var err error
		if fn != nil {
			msg, err = p.functionCall(ctx, fn, sendTo)
		} else {
			msg, err = p.text(ctx, req, sendTo)
		}
		if err != nil {
			return nil, err
		}
		completions = append(completions, msg)
	}

	return &api.Generation{
		ID:          idPrefix + uuid.NewString(),
		Created:     time.Now().UnixMilli(),
		Provider:    api.ProviderLorem,
		Model:       req.ModelID,
		Completions: completions,
	}, nil
}

func (p *Provider) text(
	ctx context.Context, req *api.ChatRequest, sink api.EventSink,
) (api.ChatMessage, error) {
	words := p.words(wordCount(req))
	words = truncateAtStop(words, req.Stop)

	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		if err := p.emit(ctx, sink, api.EventTypeTokens, w); err != nil {
			return api.ChatMessage{}, err
		}
	}
	return api.NewTextMessage(api.RoleAssistant, strings.Join(words, " ")), nil
}

func (p *Provider) functionCall(
	ctx context.Context, fn *api.ChatFunction, sink api.EventSink,
) (api.ChatMessage, error) {
	args := map[string]any{}
	for _, name := range parameterNames(fn.Parameters) {
		args[name] = strings.Join(p.words(3), " ")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return api.ChatMessage{}, err
	}

	if sink != nil {
		_ = sink.Send(api.Event{
			Type:    api.EventTypeFunctionCall,
			Content: map[string]any{"name": fn.Name},
		})
	}
	for chunk := range chunks(string(data), 8) {
		err := p.emit(ctx, sink, api.EventTypeFunctionCallArgumentsTokens, chunk)
		if err != nil {
			return api.ChatMessage{}, err
		}
	}

	return api.ChatMessage{
		Role: api.RoleAssistant,
		FunctionCall: &api.ChatFunctionCall{
			Name:      fn.Name,
			Arguments: string(data),
		},
	}, nil
}

func (p *Provider) emit(
	ctx context.Context, sink api.EventSink, typ api.EventType, text string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sink == nil {
		return nil
	}
	_ = sink.Send(api.Event{
		Type:    typ,
		Content: map[string]any{"text": text},
	})
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Provider) words(count int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res []string
	for len(res) < count {
		res = append(res, strings.Fields(p.generator.Sentence(5, 15))...)
	}
	return res[:count]
}

func wordCount(req *api.ChatRequest) int {
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		return min(int(*req.MaxTokens), maxWords)
	}
	return defaultWords
}

// forcedFunction returns the declared function the request forces, if any
func forcedFunction(req *api.ChatRequest) *api.ChatFunction {
	if req.FunctionCall == nil {
		return nil
	}
	for i, f := range req.Functions {
		if f.Name == *req.FunctionCall {
			return &req.Functions[i]
		}
	}
	return nil
}

func parameterNames(params any) []string {
	schema, ok := params.(map[string]any)
	if !ok {
		return nil
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	res := make([]string, 0, len(props))
	for name := range props {
		res = append(res, name)
	}
	return res
}

func truncateAtStop(words []string, stop []string) []string {
	for i := range words {
		prefix := strings.Join(words[:i+1], " ")
		for _, s := range stop {
			if strings.Contains(prefix, s) {
				return words[:i]
			}
		}
	}
	return words
}

func chunks(s string, size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(s) > 0 {
			n := min(size, len(s))
			if !yield(s[:n]) {
				return
			}
			s = s[n:]
		}
	}
}
