package block

import (
	"context"
	"errors"

	"github.com/kode4food/weave/internal/sandbox"
	"github.com/kode4food/weave/pkg/api"
)

var (
	ErrMessagesCode  = errors.New("error in messages code")
	ErrFunctionsCode = errors.New("error in functions code")
	ErrCode          = errors.New("error in code")
	ErrNoSandbox     = errors.New("no sandbox configured")
)

// scriptEnv builds the JSON value guest code receives as its argument
func scriptEnv(env *api.Env) (any, error) {
	return api.Normalize(env.ScriptValue())
}

// evaluate runs one guest snippet against the prepared script env. The
// backtick escape is restored before the snippet reaches the sandbox
func evaluate(
	ctx context.Context, rt *Runtime, src string, input any,
) (*sandbox.Output, error) {
	if rt.Sandbox == nil {
		return nil, ErrNoSandbox
	}
	out, err := rt.Sandbox.Evaluate(ctx, RestoreBackticks(src), input)
	if err != nil {
		return nil, err
	}
	if out.Logs == nil {
		out.Logs = []any{}
	}
	return out, nil
}
