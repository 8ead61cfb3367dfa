package api

import (
	"encoding/json"

	"github.com/google/uuid"
)

type (
	// Env is the run context passed into every block execution. It is
	// treated as immutable by blocks; concurrent executions share only its
	// read-only handles
	Env struct {
		Config      *RunConfig  `json:"config,omitempty"`
		State       Args        `json:"state,omitempty"`
		Input       Input       `json:"input"`
		Map         *MapState   `json:"map,omitempty"`
		Credentials Credentials `json:"-"`
		Store       Store       `json:"-"`
		Project     Project     `json:"project"`
		RunID       RunID       `json:"run_id,omitempty"`
	}

	// Input identifies the input element a run is processing
	Input struct {
		Value any `json:"value"`
		Index int `json:"index"`
	}

	// MapState carries the coordinates of the map iteration that produced
	// an execution
	MapState struct {
		Name      Name `json:"name"`
		Iteration int  `json:"iteration"`
	}

	// RunConfig holds per-run, per-block configuration overrides keyed by
	// block name. Each value is an arbitrary JSON object
	RunConfig struct {
		Blocks map[Name]json.RawMessage `json:"blocks"`
	}

	// Credentials maps credential names (e.g. OPENAI_API_KEY) to secrets
	Credentials map[string]string

	// Project scopes cache entries and stored results
	Project struct {
		ID int64 `json:"project_id"`
	}

	// RunID identifies a single program run
	RunID string
)

// NewRunID generates a new random run identifier
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// ForBlock returns the raw configuration for the named block, if any
func (c *RunConfig) ForBlock(name Name) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}
	raw, ok := c.Blocks[name]
	return raw, ok
}

// WithInput returns a copy of the Env positioned on another input element
func (e *Env) WithInput(index int, value any) *Env {
	res := *e
	res.Input = Input{Index: index, Value: value}
	return &res
}

// WithState returns a copy of the Env with a block result recorded
func (e *Env) WithState(name Name, value any) *Env {
	res := *e
	res.State = e.State.Set(name, value)
	return &res
}

// ScriptValue returns the JSON-compatible view of the Env exposed to guest
// code. Credentials and store handles are never included
func (e *Env) ScriptValue() map[string]any {
	state := make(map[string]any, len(e.State))
	for k, v := range e.State {
		state[string(k)] = v
	}

	var m any
	if e.Map != nil {
		m = map[string]any{
			"name":      string(e.Map.Name),
			"iteration": e.Map.Iteration,
		}
	}

	return map[string]any{
		"state": state,
		"input": map[string]any{
			"index": e.Input.Index,
			"value": e.Input.Value,
		},
		"map":    m,
		"run_id": string(e.RunID),
	}
}
