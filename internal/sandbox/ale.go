package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/kode4food/ale"
	"github.com/kode4food/ale/core/bootstrap"
	"github.com/kode4food/ale/data"
	"github.com/kode4food/ale/env"
	"github.com/kode4food/ale/eval"

	"github.com/kode4food/weave/internal/util"
)

// AleEnv evaluates Ale snippets. A snippet is the body of a procedure
// taking the run context and a log procedure
type AleEnv struct {
	env   *env.Environment
	cache *util.LRUCache[data.Procedure]
}

const aleLambdaTemplate = "(lambda (env log) %s)"

var (
	ErrAleNotProcedure = errors.New("not a procedure")
	ErrAleCompile      = errors.New("script compile error")
	ErrAleCall         = errors.New("error calling procedure")
)

// NewAleEnv creates an Ale evaluation environment with the core library
func NewAleEnv() *AleEnv {
	e := env.NewEnvironment()
	bootstrap.Into(e)
	return &AleEnv{
		env:   e,
		cache: util.NewLRUCache[data.Procedure](scriptCacheSize),
	}
}

// Evaluate compiles src and calls it with env and a log procedure. Ale
// evaluation cannot be interrupted; the pool abandons it at the deadline
func (e *AleEnv) Evaluate(
	_ context.Context, src string, env any,
) (*Output, error) {
	proc, err := e.compile(src)
	if err != nil {
		return nil, err
	}

	logs := []any{}
	logProc := data.MakeProcedure(func(args ...ale.Value) ale.Value {
		logs = append(logs, aleToJSON(args[0]))
		return data.Null
	}, 1)

	res, err := catchPanic(ErrAleCall, func() (ale.Value, error) {
		return proc.Call(jsonToAle(env), logProc), nil
	})
	if err != nil {
		return nil, err
	}
	return &Output{Value: aleToJSON(res), Logs: logs}, nil
}

func (e *AleEnv) compile(src string) (data.Procedure, error) {
	return e.cache.Get(hashScript(src), func() (data.Procedure, error) {
		return catchPanic(ErrAleCompile, func() (data.Procedure, error) {
			ns := e.env.GetAnonymous()
			code := fmt.Sprintf(aleLambdaTemplate, src)
			res, err := eval.String(ns, data.String(code))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrAleCompile, err)
			}

			proc, ok := res.(data.Procedure)
			if !ok {
				return nil, fmt.Errorf("%w, got: %T", ErrAleNotProcedure, res)
			}
			return proc, nil
		})
	})
}

func jsonToAle(value any) ale.Value {
	switch v := value.(type) {
	case string:
		return data.String(v)
	case bool:
		return data.Bool(v)
	case int:
		return data.Integer(v)
	case int64:
		return data.Integer(v)
	case float64:
		if v == float64(int64(v)) {
			return data.Integer(int64(v))
		}
		return data.Float(v)
	case []any:
		vec := make(data.Vector, len(v))
		for i, item := range v {
			vec[i] = jsonToAle(item)
		}
		return vec
	case map[string]any:
		obj := data.NewObject()
		for k, val := range v {
			pair := data.NewCons(data.Keyword(k), jsonToAle(val))
			obj = obj.Put(pair).(*data.Object)
		}
		return obj
	case nil:
		return data.Null
	default:
		return data.String(fmt.Sprintf("%v", v))
	}
}

func aleToJSON(value ale.Value) any {
	if value == data.Null {
		return nil
	}
	switch v := value.(type) {
	case data.Bool:
		return bool(v)
	case data.String:
		return string(v)
	case data.Keyword:
		return string(v)
	case data.Integer:
		return int(v)
	case data.Float:
		return float64(v)
	case data.Vector:
		res := make([]any, len(v))
		for i, item := range v {
			res[i] = aleToJSON(item)
		}
		return res
	case *data.List:
		return aleListToJSON(v)
	case *data.Object:
		res := map[string]any{}
		for _, pair := range v.Pairs() {
			key := fmt.Sprintf("%v", aleToJSON(pair.Car()))
			res[key] = aleToJSON(pair.Cdr())
		}
		return res
	default:
		return fmt.Sprintf("%v", v)
	}
}

func aleListToJSON(list *data.List) []any {
	res := []any{}
	for l := list; !l.IsEmpty(); {
		head, tail, ok := l.Split()
		if !ok {
			break
		}
		res = append(res, aleToJSON(head))
		l = tail.(*data.List)
	}
	return res
}
