package program

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/log"
)

// Trace holds the results of one block, indexed by input
type Trace struct {
	BlockType api.BlockType      `json:"block_type"`
	Name      api.Name           `json:"name"`
	Results   []*api.BlockResult `json:"results"`
}

var (
	ErrNoInputs    = errors.New("program run requires at least one input")
	ErrBlockFailed = errors.New("block failed")
)

// Run executes the program over inputs. Each block runs over every input
// concurrently, and its normalized values are recorded in the state seen
// by later blocks. The run stops after the first block with a failing
// input. Block status events are sent to sink when it is not nil
func (p *Program) Run(
	ctx context.Context, rt *block.Runtime, base *api.Env, inputs []any,
	sink api.EventSink,
) ([]*Trace, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	root := *base
	root.Config = p.mergeConfig(base.Config)
	envs := make([]*api.Env, len(inputs))
	for i, in := range inputs {
		envs[i] = root.WithInput(i, in)
	}

	traces := make([]*Trace, 0, len(p.blocks))
	for _, b := range p.blocks {
		slog.Debug("Running block",
			log.BlockType(b.Type()),
			log.BlockName(b.Name()),
			log.RunID(base.RunID),
			slog.Int("inputs", len(envs)))

		emitStatus(sink, b, api.StatusRunning, 0, 0)
		results, errs := runBlock(ctx, rt, b, envs, sink)

		trace := &Trace{BlockType: b.Type(), Name: b.Name(), Results: results}
		traces = append(traces, trace)

		if err := errors.Join(errs...); err != nil {
			failed := countErrors(errs)
			emitStatus(sink, b, api.StatusErrored, len(envs)-failed, failed)
			return traces, fmt.Errorf("%w `%s`: %w", ErrBlockFailed, b.Name(), err)
		}
		emitStatus(sink, b, api.StatusSucceeded, len(envs), 0)

		for i, res := range results {
			value, err := api.Normalize(res.Value)
			if err != nil {
				return traces, err
			}
			envs[i] = envs[i].WithState(b.Name(), value)
		}
	}
	return traces, nil
}

// mergeConfig layers run configuration over the program's own
func (p *Program) mergeConfig(cfg *api.RunConfig) *api.RunConfig {
	res := &api.RunConfig{Blocks: map[api.Name]json.RawMessage{}}
	if p.config != nil {
		maps.Copy(res.Blocks, p.config.Blocks)
	}
	if cfg != nil {
		maps.Copy(res.Blocks, cfg.Blocks)
	}
	return res
}

// runBlock executes b once per env. A panic in any execution is raised
// again in the caller's goroutine once every execution has returned
func runBlock(
	ctx context.Context, rt *block.Runtime, b block.Block, envs []*api.Env,
	sink api.EventSink,
) ([]*api.BlockResult, []error) {
	results := make([]*api.BlockResult, len(envs))
	errs := make([]error, len(envs))
	var panicked any
	var once sync.Once

	var wg sync.WaitGroup
	for i, env := range envs {
		wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { panicked = r })
				}
			}()
			results[i], errs[i] = b.Execute(ctx, rt, env, sink)
		})
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
	return results, errs
}

func countErrors(errs []error) int {
	res := 0
	for _, err := range errs {
		if err != nil {
			res++
		}
	}
	return res
}

func emitStatus(
	sink api.EventSink, b block.Block, status api.BlockStatusKind,
	success, failed int,
) {
	if sink == nil {
		return
	}
	_ = sink.Send(api.Event{
		Type: api.EventTypeBlockStatus,
		Content: api.BlockStatus{
			BlockType:    b.Type(),
			Name:         b.Name(),
			Status:       status,
			SuccessCount: success,
			ErrorCount:   failed,
		},
	})
}
