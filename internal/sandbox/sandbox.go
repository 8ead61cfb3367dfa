package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

type (
	// Environment evaluates guest snippets for one scripting language. A
	// snippet defines a single entry point that receives the run context
	Environment interface {
		Evaluate(ctx context.Context, src string, env any) (*Output, error)
	}

	// Evaluator is the sandbox entry point consumed by blocks
	Evaluator interface {
		Evaluate(ctx context.Context, src string, env any) (*Output, error)
	}

	// Output is the result of one guest evaluation: the entry point's
	// return value and the entries it logged, in order
	Output struct {
		Value any   `json:"value"`
		Logs  []any `json:"logs"`
	}

	// Registry manages the script environments for supported languages
	Registry struct {
		envs map[string]Environment
	}
)

const (
	// EntryPoint is the name of the function a Lua snippet must define
	EntryPoint = "_fun"

	LanguageLua = "lua"
	LanguageAle = "ale"

	scriptCacheSize = 4096
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported script language")
	ErrEntryPointMissing   = errors.New("entry point not defined")
	ErrTimeout             = errors.New("evaluation timed out")
	ErrEvaluationPanic     = errors.New("evaluation panicked")
)

// NewRegistry creates a registry with the Lua and Ale environments
func NewRegistry() *Registry {
	return &Registry{
		envs: map[string]Environment{
			LanguageAle: NewAleEnv(),
			LanguageLua: NewLuaEnv(),
		},
	}
}

// Register adds or replaces the environment for a language
func (r *Registry) Register(language string, env Environment) {
	r.envs[language] = env
}

// Get returns the script environment for the given language
func (r *Registry) Get(language string) (Environment, error) {
	env, ok := r.envs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return env, nil
}

func hashScript(src string) string {
	h := sha256.Sum256([]byte(src))
	return hex.EncodeToString(h[:])
}

// catchPanic converts a panic raised by fn into an error wrapping baseErr
func catchPanic[T any](baseErr error, fn func() (T, error)) (res T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(error); ok {
			err = fmt.Errorf("%w: %w", baseErr, e)
			return
		}
		err = fmt.Errorf("%w: %v", baseErr, r)
	}()
	return fn()
}
