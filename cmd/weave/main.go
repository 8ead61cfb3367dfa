package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kode4food/weave"
	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/internal/cache"
	"github.com/kode4food/weave/internal/config"
	"github.com/kode4food/weave/internal/dispatch"
	"github.com/kode4food/weave/internal/provider/lorem"
	"github.com/kode4food/weave/internal/sandbox"
	"github.com/kode4food/weave/internal/server"
	"github.com/kode4food/weave/pkg/log"
)

type weaveServer struct {
	cfg        *config.Config
	store      cache.Store
	runtime    *block.Runtime
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var ErrOpenCache = errors.New("failed to open cache store")

func main() {
	_ = godotenv.Load()

	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &weaveServer{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *weaveServer) run() error {
	if err := s.initializeCache(); err != nil {
		return err
	}
	if err := s.initializeRuntime(); err != nil {
		_ = s.closeCache()
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *weaveServer) setupLogging() {
	level := log.ParseLevel(s.cfg.LogLevel)
	env := os.Getenv("ENV")
	logger := log.NewWithLevel(weave.Name, env, weave.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Weave engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("script_language", s.cfg.ScriptLanguage),
		slog.Int("script_workers", s.cfg.ScriptWorkers),
		slog.String("cache_backend", s.cfg.Cache.Backend),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *weaveServer) initializeCache() error {
	store, err := cache.Open(context.Background(), s.cfg.Cache)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenCache, err)
	}
	s.store = store
	return nil
}

func (s *weaveServer) initializeRuntime() error {
	env, err := sandbox.NewRegistry().Get(s.cfg.ScriptLanguage)
	if err != nil {
		return err
	}
	s.runtime = &block.Runtime{
		Dispatcher: dispatch.NewRouter(lorem.NewProvider()),
		Sandbox:    sandbox.NewPool(env, s.cfg.ScriptWorkers),
	}
	return nil
}

func (s *weaveServer) startServer() {
	s.apiServer = server.NewServer(s.runtime, s.store)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *weaveServer) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}
	s.apiServer.CloseWebSockets()

	if err := s.closeCache(); err != nil {
		slog.Error("Cache shutdown failed", log.Error(err))
	}

	slog.Info("Server exited")
}

func (s *weaveServer) closeCache() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
