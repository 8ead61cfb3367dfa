package block

import (
	"context"
	"fmt"

	"github.com/kode4food/weave/pkg/api"
)

// Code evaluates a guest snippet and yields its value, with the snippet's
// logs as metadata
type Code struct {
	name api.Name
	code string
}

const keyCode = "code"

func parseCode(spec *api.BlockSpec) (Block, error) {
	fail := func(err error) (Block, error) {
		return nil, newError(ErrConstruction, api.BlockTypeCode, spec.Name, err)
	}

	var code *string
	for _, p := range spec.Pairs {
		switch p.Key {
		case keyCode:
			if code != nil {
				return fail(fmt.Errorf(
					"%w: `%s` in `code` block", ErrDuplicateKey, p.Key,
				))
			}
			code = &p.Value
		default:
			return fail(fmt.Errorf(
				"%w: `%s` in `code` block", ErrUnexpectedKey, p.Key,
			))
		}
	}
	if code == nil {
		return fail(fmt.Errorf(
			"%w: `%s` in `code` block", ErrMissingKey, keyCode,
		))
	}
	return &Code{name: spec.Name, code: *code}, nil
}

// Type returns api.BlockTypeCode
func (c *Code) Type() api.BlockType {
	return api.BlockTypeCode
}

// Name returns the block's declared name
func (c *Code) Name() api.Name {
	return c.name
}

// InnerHash digests the block's snippet
func (c *Code) InnerHash() string {
	h := newFieldHasher(api.BlockTypeCode)
	h.field(keyCode, c.code)
	return h.sum()
}

// Execute evaluates the snippet against env
func (c *Code) Execute(
	ctx context.Context, rt *Runtime, env *api.Env, _ api.EventSink,
) (*api.BlockResult, error) {
	input, err := scriptEnv(env)
	if err != nil {
		return nil, c.fail(err)
	}
	out, err := evaluate(ctx, rt, c.code, input)
	if err != nil {
		return nil, c.fail(fmt.Errorf("%w: %w", ErrCode, err))
	}
	return &api.BlockResult{
		Value: out.Value,
		Meta:  &api.BlockMeta{Logs: out.Logs},
	}, nil
}

func (c *Code) fail(err error) error {
	return newError(ErrGuestExecution, api.BlockTypeCode, c.name, err)
}
