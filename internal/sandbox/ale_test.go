package sandbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/weave/internal/sandbox"
)

func TestAleReturnsValue(t *testing.T) {
	env := sandbox.NewAleEnv()

	out, err := env.Evaluate(context.Background(),
		`{:result (+ 1 2)}`, map[string]any{},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": 3}, out.Value)
	assert.Empty(t, out.Logs)
}

func TestAleList(t *testing.T) {
	env := sandbox.NewAleEnv()

	out, err := env.Evaluate(context.Background(), `[1 2 3]`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, out.Value)
}

func TestAleCapturesLogs(t *testing.T) {
	env := sandbox.NewAleEnv()

	out, err := env.Evaluate(context.Background(),
		`(log "hello") {:done true}`, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"done": true}, out.Value)
	assert.Equal(t, []any{"hello"}, out.Logs)
}

func TestAleCompileError(t *testing.T) {
	env := sandbox.NewAleEnv()

	_, err := env.Evaluate(context.Background(), `(+ 1`, nil)
	assert.ErrorIs(t, err, sandbox.ErrAleCompile)
}
