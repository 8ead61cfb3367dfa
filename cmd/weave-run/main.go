package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kode4food/weave"
	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/internal/cache"
	"github.com/kode4food/weave/internal/config"
	"github.com/kode4food/weave/internal/dispatch"
	"github.com/kode4food/weave/internal/program"
	"github.com/kode4food/weave/internal/provider/lorem"
	"github.com/kode4food/weave/internal/sandbox"
	"github.com/kode4food/weave/internal/stream"
	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/log"
)

type options struct {
	programPath string
	inputsPath  string
	configPath  string
	projectID   int64
	stream      bool
}

var ErrProgramRequired = errors.New("a program file is required")

func main() {
	var opts options
	flag.StringVar(&opts.programPath, "program", "", "YAML program file")
	flag.StringVar(&opts.inputsPath, "inputs", "-",
		"JSON array of inputs, - for stdin")
	flag.StringVar(&opts.configPath, "config", "",
		"JSON run configuration keyed by block name")
	flag.Int64Var(&opts.projectID, "project", 0, "Project id scoping the cache")
	flag.BoolVar(&opts.stream, "stream", false,
		"Print events as JSON lines while running")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		exit(err)
	}
	if err := cfg.Validate(); err != nil {
		exit(err)
	}
	level := log.ParseLevel(cfg.LogLevel)
	slog.SetDefault(log.NewWithLevel(
		weave.Name, os.Getenv("ENV"), weave.Version, level,
	))

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, cfg, &opts, os.Stdin, os.Stdout); err != nil {
		exit(err)
	}
}

func run(
	ctx context.Context, cfg *config.Config, opts *options,
	stdin io.Reader, stdout io.Writer,
) error {
	if opts.programPath == "" {
		return ErrProgramRequired
	}
	prog, err := program.LoadFile(opts.programPath)
	if err != nil {
		return err
	}

	inputs, err := readInputs(opts.inputsPath, stdin)
	if err != nil {
		return err
	}
	runCfg, err := readRunConfig(opts.configPath)
	if err != nil {
		return err
	}

	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	lang, err := sandbox.NewRegistry().Get(cfg.ScriptLanguage)
	if err != nil {
		return err
	}
	rt := &block.Runtime{
		Dispatcher: dispatch.NewRouter(lorem.NewProvider()),
		Sandbox:    sandbox.NewPool(lang, cfg.ScriptWorkers),
	}

	env := &api.Env{
		Config:  runCfg,
		State:   api.Args{},
		Store:   store,
		Project: api.Project{ID: opts.projectID},
		RunID:   api.NewRunID(),
	}

	enc := json.NewEncoder(stdout)
	if !opts.stream {
		traces, err := prog.Run(ctx, rt, env, inputs, nil)
		if err != nil {
			return err
		}
		return enc.Encode(traces)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := stream.NewSink()
	type outcome struct {
		traces []*program.Trace
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer sink.Close()
		traces, err := prog.Run(ctx, rt, env, inputs, sink)
		done <- outcome{traces: traces, err: err}
	}()

	drainErr := sink.Drain(ctx, func(ev api.Event) error {
		return enc.Encode(ev)
	})
	if drainErr != nil {
		cancel()
		<-done
		return drainErr
	}
	out := <-done
	if out.err != nil {
		return enc.Encode(api.Event{
			Type:    api.EventTypeError,
			Content: api.ErrorResponse{Error: out.err.Error()},
		})
	}
	return enc.Encode(api.Event{Type: api.EventTypeFinal, Content: out.traces})
}

func readInputs(path string, stdin io.Reader) ([]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var inputs []any
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("inputs must be a JSON array: %w", err)
	}
	return inputs, nil
}

func readRunConfig(path string) (*api.RunConfig, error) {
	res := &api.RunConfig{Blocks: map[api.Name]json.RawMessage{}}
	if path == "" {
		return res, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &res.Blocks); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	return res, nil
}

func exit(err error) {
	_, _ = os.Stderr.WriteString(err.Error() + "\n")
	os.Exit(1)
}
