package block

import (
	"context"
	"fmt"

	"github.com/kode4food/weave/internal/sandbox"
	"github.com/kode4food/weave/pkg/api"
)

type (
	// Block is a compiled, immutable unit of a program. A Block may be
	// executed concurrently any number of times
	Block interface {
		Type() api.BlockType
		Name() api.Name

		// InnerHash is a deterministic digest of the block's static
		// definition, independent of any run
		InnerHash() string

		// Execute runs the block against env. Streaming events, if any, are
		// forwarded to sink, which may be nil
		Execute(
			ctx context.Context, rt *Runtime, env *api.Env, sink api.EventSink,
		) (*api.BlockResult, error)
	}

	// Runtime holds the collaborators shared by all block executions
	Runtime struct {
		Dispatcher api.Dispatcher
		Sandbox    sandbox.Evaluator
	}

	parser func(spec *api.BlockSpec) (Block, error)
)

var parsers = map[api.BlockType]parser{
	api.BlockTypeChat: parseChat,
	api.BlockTypeCode: parseCode,
}

// Parse compiles a block specification into a Block
func Parse(spec *api.BlockSpec) (Block, error) {
	if err := spec.Validate(); err != nil {
		return nil, newError(ErrConstruction, spec.Type, spec.Name, err)
	}
	p, ok := parsers[spec.Type]
	if !ok {
		return nil, newError(ErrConstruction, spec.Type, spec.Name,
			fmt.Errorf("%w: %s", ErrUnknownBlockType, spec.Type),
		)
	}
	return p(spec)
}

// Types returns the supported block types
func Types() []api.BlockType {
	return []api.BlockType{api.BlockTypeChat, api.BlockTypeCode}
}
