package helpers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/internal/config"
	"github.com/kode4food/weave/internal/sandbox"
	"github.com/kode4food/weave/pkg/api"
)

const testScriptWorkers = 4

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestRuntime creates a block runtime backed by the Lua sandbox and the
// provided dispatcher
func NewTestRuntime(disp api.Dispatcher) *block.Runtime {
	return &block.Runtime{
		Dispatcher: disp,
		Sandbox:    sandbox.NewPool(sandbox.NewLuaEnv(), testScriptWorkers),
	}
}

// NewBlockSpec builds a block spec from alternating keys and values
func NewBlockSpec(
	typ api.BlockType, name api.Name, kv ...string,
) *api.BlockSpec {
	spec := &api.BlockSpec{Type: typ, Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		spec.Pairs = append(spec.Pairs, api.Pair{Key: kv[i], Value: kv[i+1]})
	}
	return spec
}

// ParseBlock parses a spec, failing the test on error
func ParseBlock(t *testing.T, spec *api.BlockSpec) block.Block {
	t.Helper()
	b, err := block.Parse(spec)
	require.NoError(t, err)
	return b
}

// NewTestEnv creates a run context with the given per-block configuration
func NewTestEnv(blocks map[api.Name]any) *api.Env {
	cfg := &api.RunConfig{Blocks: map[api.Name]json.RawMessage{}}
	for name, v := range blocks {
		raw, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		cfg.Blocks[name] = raw
	}
	return &api.Env{
		Config: cfg,
		State:  api.Args{},
		RunID:  "test-run",
	}
}

// NewGeneration creates a generation holding assistant completions with the
// given contents
func NewGeneration(contents ...string) *api.Generation {
	gen := &api.Generation{
		ID:       "gen-test",
		Provider: api.ProviderLorem,
		Model:    "test-model",
	}
	for _, c := range contents {
		gen.Completions = append(gen.Completions,
			api.NewTextMessage(api.RoleAssistant, c),
		)
	}
	return gen
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
