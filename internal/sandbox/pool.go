package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Pool runs guest evaluations on a bounded set of workers, each under its
// own deadline. The deadline starts when a worker picks the evaluation up
type Pool struct {
	env     Environment
	slots   chan struct{}
	timeout time.Duration
}

// DefaultTimeout bounds every guest evaluation
const DefaultTimeout = 10 * time.Second

// NewPool creates a pool of the given size using the default deadline
func NewPool(env Environment, workers int) *Pool {
	return NewPoolWithTimeout(env, workers, DefaultTimeout)
}

// NewPoolWithTimeout creates a pool of the given size and deadline
func NewPoolWithTimeout(
	env Environment, workers int, timeout time.Duration,
) *Pool {
	return &Pool{
		env:     env,
		slots:   make(chan struct{}, max(workers, 1)),
		timeout: timeout,
	}
}

// Evaluate waits for a free worker and evaluates src against env. A
// snippet still running at the deadline is abandoned and keeps its worker
// until it returns
func (p *Pool) Evaluate(
	ctx context.Context, src string, env any,
) (*Output, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		out *Output
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() { <-p.slots }()
		out, err := catchPanic(ErrEvaluationPanic, func() (*Output, error) {
			return p.env.Evaluate(ctx, src, env)
		})
		done <- result{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
		}
		return nil, ctx.Err()
	}
}
