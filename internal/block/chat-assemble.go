package block

import (
	"errors"
	"fmt"

	"github.com/kode4food/weave/pkg/api"
)

var (
	ErrInvalidMessages  = errors.New("invalid messages code output")
	ErrInvalidFunctions = errors.New("invalid functions code output")
)

const (
	messagesShape = "expecting an array of objects with fields " +
		"`role`, possibly `name`, and `content`"
	functionsShape = "expecting an array of objects with fields " +
		"`name`, `description`, and `parameters`"
)

// parseMessages validates the value produced by messages code
func parseMessages(value any) ([]api.ChatMessage, error) {
	items, ok := asArray(value)
	if !ok {
		return nil, fmt.Errorf("%w, %s", ErrInvalidMessages, messagesShape)
	}

	res := make([]api.ChatMessage, 0, len(items))
	for i, item := range items {
		msg, err := parseMessage(item)
		if err != nil {
			return nil, fmt.Errorf("%w at index %d, %s: %w",
				ErrInvalidMessages, i, messagesShape, err,
			)
		}
		res = append(res, msg)
	}
	return res, nil
}

func parseMessage(item any) (api.ChatMessage, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return api.ChatMessage{}, fmt.Errorf("got %T", item)
	}
	role, ok := obj["role"].(string)
	if !ok {
		return api.ChatMessage{}, errors.New("`role` must be a string")
	}
	content, ok := obj["content"].(string)
	if !ok {
		return api.ChatMessage{}, errors.New("`content` must be a string")
	}
	r, err := api.ParseChatMessageRole(role)
	if err != nil {
		return api.ChatMessage{}, err
	}

	msg := api.NewTextMessage(r, content)
	if name, ok := obj["name"].(string); ok {
		msg.Name = &name
	}
	return msg, nil
}

// parseFunctions validates the value produced by functions code. A null
// value declares no functions
func parseFunctions(value any) ([]api.ChatFunction, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := asArray(value)
	if !ok {
		return nil, fmt.Errorf("%w, %s", ErrInvalidFunctions, functionsShape)
	}

	res := make([]api.ChatFunction, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, invalidFunction(i)
		}
		name, ok := obj["name"].(string)
		if !ok {
			return nil, invalidFunction(i)
		}
		desc, ok := obj["description"].(string)
		if !ok {
			return nil, invalidFunction(i)
		}
		params, ok := obj["parameters"]
		if !ok {
			return nil, invalidFunction(i)
		}
		res = append(res, api.ChatFunction{
			Name:        name,
			Description: &desc,
			Parameters:  params,
		})
	}
	return res, nil
}

func invalidFunction(i int) error {
	return fmt.Errorf("%w at index %d, %s",
		ErrInvalidFunctions, i, functionsShape,
	)
}

// asArray accepts arrays, and the empty map a scripting language may
// produce for an empty table
func asArray(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case map[string]any:
		if len(v) == 0 {
			return []any{}, true
		}
	}
	return nil, false
}
