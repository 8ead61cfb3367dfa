package program_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/weave/internal/assert/helpers"
	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/internal/program"
	"github.com/kode4food/weave/pkg/api"
)

const chainProgram = `
blocks:
  - type: chat
    name: MODEL
    spec:
      instructions: Answer in one word
      temperature: 0.7
      messages_code: |
        _fun = function(env)
          return {{role = "user", content = "item " .. env.input.value}}
        end
  - type: code
    name: ANSWER
    spec:
      code: |
        _fun = function(env)
          return env.state.MODEL.message.content
        end
config:
  MODEL:
    provider_id: lorem
    model_id: lorem-1
`

const doubleProgram = `
blocks:
  - type: code
    name: DOUBLE
    spec:
      code: |
        _fun = function(env) return env.input.value * 2 end
  - type: code
    name: PLUS_ONE
    spec:
      code: |
        _fun = function(env) return env.state.DOUBLE + 1 end
`

func newEnv() *api.Env {
	return &api.Env{RunID: "test-run", State: api.Args{}}
}

func TestLoadAndRun(t *testing.T) {
	p, err := program.Load([]byte(chainProgram))
	require.NoError(t, err)

	blocks := p.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, api.BlockTypeChat, blocks[0].Type())
	assert.Equal(t, api.Name("ANSWER"), blocks[1].Name())

	disp := helpers.NewMockDispatcher()
	traces, err := p.Run(context.Background(),
		helpers.NewTestRuntime(disp), newEnv(), []any{"a", "b"}, nil,
	)
	require.NoError(t, err)
	require.Len(t, traces, 2)

	assert.Equal(t, api.Name("ANSWER"), traces[1].Name)
	for _, res := range traces[1].Results {
		assert.Equal(t, "mock completion", res.Value)
	}

	calls := disp.CachedCalls()
	require.Len(t, calls, 2)
	var contents []string
	for _, c := range calls {
		assert.Equal(t, api.ProviderLorem, c.Request.ProviderID)
		assert.Equal(t, "lorem-1", c.Request.ModelID)
		require.Len(t, c.Request.Messages, 2)
		contents = append(contents, *c.Request.Messages[1].Content)
	}
	assert.ElementsMatch(t, []string{"item a", "item b"}, contents)
}

func TestRunDataParallel(t *testing.T) {
	p, err := program.Load([]byte(doubleProgram))
	require.NoError(t, err)

	traces, err := p.Run(context.Background(),
		helpers.NewTestRuntime(nil), newEnv(), []any{1, 2, 3}, nil,
	)
	require.NoError(t, err)
	require.Len(t, traces, 2)

	var got []any
	for _, res := range traces[1].Results {
		got = append(got, res.Value)
	}
	assert.Equal(t, []any{3, 5, 7}, got)
}

func TestRunStatusEvents(t *testing.T) {
	p, err := program.Load([]byte(doubleProgram))
	require.NoError(t, err)

	sink := helpers.NewRecordingSink()
	_, err = p.Run(context.Background(),
		helpers.NewTestRuntime(nil), newEnv(), []any{1, 2}, sink,
	)
	require.NoError(t, err)

	status := func(
		name api.Name, s api.BlockStatusKind, ok int,
	) api.Event {
		return api.Event{
			Type: api.EventTypeBlockStatus,
			Content: api.BlockStatus{
				BlockType:    api.BlockTypeCode,
				Name:         name,
				Status:       s,
				SuccessCount: ok,
			},
		}
	}
	assert.Equal(t, []api.Event{
		status("DOUBLE", api.StatusRunning, 0),
		status("DOUBLE", api.StatusSucceeded, 2),
		status("PLUS_ONE", api.StatusRunning, 0),
		status("PLUS_ONE", api.StatusSucceeded, 2),
	}, sink.Events())
}

func TestRunStopsOnError(t *testing.T) {
	p, err := program.Load([]byte(`
blocks:
  - type: code
    name: CHECK
    spec:
      code: |
        _fun = function(env)
          if env.input.value > 1 then error("too big") end
          return env.input.value
        end
  - type: code
    name: NEVER
    spec:
      code: "_fun = function(env) return 1 end"
`))
	require.NoError(t, err)

	sink := helpers.NewRecordingSink()
	traces, err := p.Run(context.Background(),
		helpers.NewTestRuntime(nil), newEnv(), []any{1, 2, 3}, sink,
	)
	assert.ErrorIs(t, err, program.ErrBlockFailed)
	assert.ErrorIs(t, err, block.ErrGuestExecution)
	require.Len(t, traces, 1)

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, api.BlockStatus{
		BlockType:    api.BlockTypeCode,
		Name:         "CHECK",
		Status:       api.StatusErrored,
		SuccessCount: 1,
		ErrorCount:   2,
	}, events[1].Content)
}

func TestRunConfigOverride(t *testing.T) {
	p, err := program.Load([]byte(chainProgram))
	require.NoError(t, err)

	env := helpers.NewTestEnv(map[api.Name]any{
		"MODEL": map[string]any{
			"provider_id": "openai",
			"model_id":    "gpt-4",
			"use_cache":   false,
		},
	})
	disp := helpers.NewMockDispatcher()
	_, err = p.Run(context.Background(),
		helpers.NewTestRuntime(disp), env, []any{"a"}, nil,
	)
	require.NoError(t, err)

	calls := disp.CachedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, api.ProviderOpenAI, calls[0].Request.ProviderID)
	assert.False(t, calls[0].UseCache)
}

func TestRunNoInputs(t *testing.T) {
	p, err := program.Load([]byte(doubleProgram))
	require.NoError(t, err)

	_, err = p.Run(context.Background(),
		helpers.NewTestRuntime(nil), newEnv(), nil, nil,
	)
	assert.ErrorIs(t, err, program.ErrNoInputs)
}

func TestRunContractViolation(t *testing.T) {
	p, err := program.Load([]byte(chainProgram))
	require.NoError(t, err)

	disp := helpers.NewMockDispatcher()
	disp.SetGeneration(helpers.NewGeneration("one", "two"))
	assert.Panics(t, func() {
		_, _ = p.Run(context.Background(),
			helpers.NewTestRuntime(disp), newEnv(), []any{"a"}, nil,
		)
	})
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{"invalid yaml", "blocks: [", program.ErrDecodeProgram},
		{"no blocks", "blocks: []", program.ErrNoBlocks},
		{
			"duplicate names",
			`
blocks:
  - {type: code, name: A, spec: {code: x}}
  - {type: code, name: A, spec: {code: y}}
`,
			program.ErrDuplicateBlock,
		},
		{
			"spec not a mapping",
			`
blocks:
  - {type: code, name: A, spec: [code]}
`,
			program.ErrInvalidSpec,
		},
		{
			"nested value",
			`
blocks:
  - {type: code, name: A, spec: {code: {x: 1}}}
`,
			program.ErrInvalidSpec,
		},
		{
			"unknown type",
			`
blocks:
  - {type: curl, name: A, spec: {url: x}}
`,
			block.ErrUnknownBlockType,
		},
		{
			"duplicate key",
			`
blocks:
  - type: code
    name: A
    spec:
      code: x
      code: y
`,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := program.Load([]byte(tt.src))
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doubleProgram), 0o600))

	p, err := program.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, p.Blocks(), 2)

	_, err = program.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
