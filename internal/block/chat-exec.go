package block

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/log"
)

// ChatResult is the value produced by a chat block
type ChatResult struct {
	Message api.ChatMessage `json:"message"`
}

const completionCount = 1

// Execute resolves the run configuration, evaluates the guest code,
// assembles the chat request and dispatches it, streaming when configured
// to and a sink is present
func (c *Chat) Execute(
	ctx context.Context, rt *Runtime, env *api.Env, sink api.EventSink,
) (*api.BlockResult, error) {
	cfg, err := c.resolveConfig(env)
	if err != nil {
		return nil, c.fail(ErrConfiguration, err)
	}

	input, err := scriptEnv(env)
	if err != nil {
		return nil, c.fail(ErrGuestExecution, err)
	}

	msgOut, err := evaluate(ctx, rt, c.messagesCode, input)
	if err != nil {
		return nil, c.fail(ErrGuestExecution,
			fmt.Errorf("%w: %w", ErrMessagesCode, err),
		)
	}
	messages, err := parseMessages(msgOut.Value)
	if err != nil {
		return nil, c.fail(ErrValidation, err)
	}

	var functions []api.ChatFunction
	fnLogs := []any{}
	if c.functionsCode != nil {
		fnOut, err := evaluate(ctx, rt, *c.functionsCode, input)
		if err != nil {
			return nil, c.fail(ErrGuestExecution,
				fmt.Errorf("%w: %w", ErrFunctionsCode, err),
			)
		}
		if functions, err = parseFunctions(fnOut.Value); err != nil {
			return nil, c.fail(ErrValidation, err)
		}
		fnLogs = fnOut.Logs
	}

	if err := c.validateFunctionCall(cfg.functionCall, functions); err != nil {
		return nil, c.fail(ErrConfiguration, err)
	}

	instructions, err := c.renderInstructions(env)
	if err != nil {
		return nil, c.fail(ErrValidation, err)
	}
	if instructions != "" {
		messages = slices.Insert(messages, 0,
			api.NewTextMessage(api.RoleSystem, instructions),
		)
	}

	temperature := c.temperature
	if cfg.temperature != nil {
		temperature = *cfg.temperature
	}
	req := api.NewChatRequest(
		cfg.providerID, cfg.modelID, messages, functions, cfg.functionCall,
		temperature, c.topP, completionCount, c.stop, c.maxTokens,
		c.presencePenalty, c.frequencyPenalty, cfg.extras,
	)

	gen, err := c.dispatch(ctx, rt, env, sink, cfg, req)
	if err != nil {
		return nil, c.fail(ErrDispatch, err)
	}
	if gen == nil || len(gen.Completions) != completionCount {
		panic(fmt.Errorf("%w: expected %d completion, got %d",
			ErrContractViolation, completionCount, completions(gen),
		))
	}

	logs := append(slices.Clone(msgOut.Logs), fnLogs...)
	return &api.BlockResult{
		Value: ChatResult{Message: gen.Completions[0]},
		Meta:  &api.BlockMeta{Logs: logs},
	}, nil
}

func (c *Chat) dispatch(
	ctx context.Context, rt *Runtime, env *api.Env, sink api.EventSink,
	cfg *chatConfig, req *api.ChatRequest,
) (*api.Generation, error) {
	stream := cfg.useStream && sink != nil
	slog.Debug("Dispatching chat request",
		log.BlockName(c.name),
		log.ProviderID(cfg.providerID),
		log.ModelID(cfg.modelID),
		slog.Bool("stream", stream),
		slog.Bool("use_cache", cfg.useCache))

	if !stream {
		return rt.Dispatcher.ExecuteWithCache(
			ctx, req, env.Credentials, env.Project, env.Store, cfg.useCache,
		)
	}

	fwd := newForwarder(sink, api.BlockTypeChat, c.name, env)
	fwd.start()
	defer fwd.finish()
	return rt.Dispatcher.Execute(ctx, req, env.Credentials, fwd)
}

func (c *Chat) renderInstructions(env *api.Env) (string, error) {
	if c.instructions == nil {
		return "", nil
	}
	res, err := ReplaceVariables(*c.instructions, env.State)
	if err != nil {
		return "", fmt.Errorf("%w in `instructions`", err)
	}
	return RestoreBackticks(res), nil
}

func (c *Chat) fail(kind, err error) error {
	return newError(kind, api.BlockTypeChat, c.name, err)
}

func completions(gen *api.Generation) int {
	if gen == nil {
		return 0
	}
	return len(gen.Completions)
}
