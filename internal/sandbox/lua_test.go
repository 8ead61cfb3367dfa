package sandbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/weave/internal/sandbox"
)

func TestLuaReturnsValue(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(), `
		function _fun(env)
			return {{role = "user", content = "hi " .. env.input.value}}
		end
	`, map[string]any{
		"input": map[string]any{"index": 0, "value": "there"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"role": "user", "content": "hi there"},
	}, out.Value)
	assert.Empty(t, out.Logs)
	assert.NotNil(t, out.Logs)
}

func TestLuaCapturesLogs(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(), `
		function _fun(env)
			log("first")
			log("second", 2)
			return 42
		end
	`, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, []any{"first", []any{"second", 2}}, out.Logs)
}

func TestLuaNumbers(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(), `
		function _fun(env)
			return {whole = env.n * 2, frac = env.n / 4}
		end
	`, map[string]any{"n": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"whole": 6, "frac": 0.75}, out.Value)
}

func TestLuaEmptyTableIsMap(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(),
		`function _fun(env) return {} end`, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, out.Value)
}

func TestLuaSparseTableIsMap(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(),
		`function _fun(env) return {[1] = "a", [3] = "c"} end`, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": "a", "3": "c"}, out.Value)
}

func TestLuaNilReturn(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(),
		`function _fun(env) return nil end`, nil,
	)
	require.NoError(t, err)
	assert.Nil(t, out.Value)
}

func TestLuaMissingEntryPoint(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(), `local x = 1`, nil)
	assert.ErrorIs(t, err, sandbox.ErrEntryPointMissing)
}

func TestLuaRuntimeError(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(),
		`function _fun(env) error("boom") end`, nil,
	)
	assert.ErrorIs(t, err, sandbox.ErrLuaExecution)
	assert.Contains(t, err.Error(), "boom")
}

func TestLuaSyntaxError(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(),
		`function _fun(env) return end end`, nil,
	)
	assert.ErrorIs(t, err, sandbox.ErrLuaLoad)
}

func TestLuaSandboxExcludesOS(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(),
		`function _fun(env) return os.time() end`, nil,
	)
	assert.ErrorIs(t, err, sandbox.ErrLuaExecution)
}

func TestLuaCancelledContext(t *testing.T) {
	env := sandbox.NewLuaEnv()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.Evaluate(ctx,
		`function _fun(env) while true do end end`, nil,
	)
	assert.ErrorIs(t, err, sandbox.ErrTimeout)
}

func TestLuaIsolatedGlobals(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(), `
		leaked = "yes"
		function _fun(env) return leaked end
	`, nil)
	require.NoError(t, err)

	out, err := env.Evaluate(context.Background(),
		`function _fun(env) return leaked end`, nil,
	)
	require.NoError(t, err)
	assert.Nil(t, out.Value)
}

func TestLuaNestedTable(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(), `
		function _fun(env)
			local t = {}
			for i = 1, 30 do t = {child = t} end
			return t
		end
	`, nil)
	require.NoError(t, err)

	value := out.Value
	for range 30 {
		m, ok := value.(map[string]any)
		require.True(t, ok)
		value = m["child"]
	}
	assert.Equal(t, map[string]any{}, value)
}

func TestLuaTableTooDeep(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(), `
		function _fun(env)
			local t = {}
			for i = 1, 100 do t = {t} end
			return t
		end
	`, nil)
	assert.ErrorIs(t, err, sandbox.ErrLuaExecution)
	assert.ErrorIs(t, err, sandbox.ErrValueTooDeep)
}

func TestLuaCyclicTable(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(), `
		function _fun(env)
			local t = {name = "loop"}
			t.self = t
			return t
		end
	`, nil)
	assert.ErrorIs(t, err, sandbox.ErrLuaExecution)
	assert.ErrorIs(t, err, sandbox.ErrValueCyclic)
}

func TestLuaSharedTable(t *testing.T) {
	env := sandbox.NewLuaEnv()

	out, err := env.Evaluate(context.Background(), `
		function _fun(env)
			local s = {x = 1}
			return {a = s, b = s}
		end
	`, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 1},
		"b": map[string]any{"x": 1},
	}, out.Value)
}

func TestLuaCyclicLog(t *testing.T) {
	env := sandbox.NewLuaEnv()

	_, err := env.Evaluate(context.Background(), `
		function _fun(env)
			local t = {}
			t[1] = t
			log("before", t)
			return "unreachable"
		end
	`, nil)
	assert.ErrorIs(t, err, sandbox.ErrLuaExecution)
	assert.Contains(t, err.Error(), sandbox.ErrValueCyclic.Error())
}

func TestLuaInputTooDeep(t *testing.T) {
	env := sandbox.NewLuaEnv()
	src := `
		function _fun(env)
			local n = 0
			while type(env) == "table" do
				env = env.child
				n = n + 1
			end
			return n
		end
	`

	out, err := env.Evaluate(context.Background(), src, nestedInput(30))
	require.NoError(t, err)
	assert.Equal(t, 30, out.Value)

	_, err = env.Evaluate(context.Background(), src, nestedInput(100))
	assert.ErrorIs(t, err, sandbox.ErrLuaExecution)
	assert.ErrorIs(t, err, sandbox.ErrValueTooDeep)
}

func nestedInput(depth int) any {
	var res any = "leaf"
	for range depth {
		res = map[string]any{"child": res}
	}
	return res
}
