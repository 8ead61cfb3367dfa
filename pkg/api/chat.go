package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

type (
	// ChatMessageRole is the author role of a chat message
	ChatMessageRole string

	// ChatMessage is a single message of a chat conversation. Ordering of
	// messages within a request is significant
	ChatMessage struct {
		Role         ChatMessageRole   `json:"role"`
		Name         *string           `json:"name,omitempty"`
		Content      *string           `json:"content,omitempty"`
		FunctionCall *ChatFunctionCall `json:"function_call,omitempty"`
	}

	// ChatFunctionCall is the payload of a message that invokes a function
	ChatFunctionCall struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	}

	// ChatFunction declares a function the model may decide to call
	ChatFunction struct {
		Name        string  `json:"name"`
		Description *string `json:"description,omitempty"`
		Parameters  any     `json:"parameters,omitempty"`
	}

	// ChatRequest is the immutable, normalized payload handed to a provider
	// dispatcher. It doubles as the cache key material
	ChatRequest struct {
		ProviderID       ProviderID     `json:"provider_id"`
		ModelID          string         `json:"model_id"`
		Messages         []ChatMessage  `json:"messages"`
		Functions        []ChatFunction `json:"functions"`
		FunctionCall     *string        `json:"function_call"`
		Temperature      float32        `json:"temperature"`
		TopP             *float32       `json:"top_p"`
		N                int            `json:"n"`
		Stop             []string       `json:"stop"`
		MaxTokens        *int32         `json:"max_tokens"`
		PresencePenalty  *float32       `json:"presence_penalty"`
		FrequencyPenalty *float32       `json:"frequency_penalty"`
		Extras           Args           `json:"extras,omitempty"`
	}

	// Generation is what a provider returns for a ChatRequest
	Generation struct {
		ID          string        `json:"id"`
		Created     int64         `json:"created"`
		Provider    ProviderID    `json:"provider"`
		Model       string        `json:"model"`
		Completions []ChatMessage `json:"completions"`
	}
)

const (
	RoleSystem    ChatMessageRole = "system"
	RoleUser      ChatMessageRole = "user"
	RoleAssistant ChatMessageRole = "assistant"
	RoleFunction  ChatMessageRole = "function"
)

var (
	ErrInvalidRole    = errors.New("invalid chat message role")
	ErrMarshalRequest = errors.New("failed to marshal chat request")
)

// ParseChatMessageRole converts a string into a ChatMessageRole
func ParseChatMessageRole(s string) (ChatMessageRole, error) {
	switch r := ChatMessageRole(s); r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, s)
	}
}

// NewChatRequest builds a ChatRequest that owns copies of the provided
// messages, functions, stop sequences and extras
func NewChatRequest(
	provider ProviderID, model string,
	messages []ChatMessage, functions []ChatFunction, functionCall *string,
	temperature float32, topP *float32, n int, stop []string,
	maxTokens *int32, presencePenalty, frequencyPenalty *float32, extras Args,
) *ChatRequest {
	return &ChatRequest{
		ProviderID:       provider,
		ModelID:          model,
		Messages:         slices.Clone(messages),
		Functions:        slices.Clone(functions),
		FunctionCall:     functionCall,
		Temperature:      temperature,
		TopP:             topP,
		N:                n,
		Stop:             slices.Clone(stop),
		MaxTokens:        maxTokens,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: frequencyPenalty,
		Extras:           maps.Clone(extras),
	}
}

// Hash computes a deterministic SHA256 hash of the request, suitable for use
// as a cache key. Extras are hashed with their keys sorted
func (r *ChatRequest) Hash() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMarshalRequest, err)
	}
	return sha256Hex(string(data)), nil
}

// NewTextMessage creates a message with the given role and content
func NewTextMessage(role ChatMessageRole, content string) ChatMessage {
	return ChatMessage{
		Role:    role,
		Content: &content,
	}
}
