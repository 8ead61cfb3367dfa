package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/kode4food/weave/internal/util"
)

// LuaEnv evaluates Lua snippets. Each evaluation runs in a fresh state with
// the sandboxed standard library; compiled chunks are cached by source
type LuaEnv struct {
	cache *util.LRUCache[[]byte]
}

const (
	luaGlobalTableName = "_G"
	luaLogFunction     = "log"
	luaChunkName       = "snippet"
	luaHookInstrCount  = 1000

	// MaxValueDepth bounds the nesting of values passed into or returned
	// from a Lua snippet
	MaxValueDepth = 64

	luaValueStack = 3
)

var (
	ErrLuaLoad       = errors.New("lua load error")
	ErrLuaExecution  = errors.New("lua execution error")
	ErrValueTooDeep  = errors.New("value nested too deeply")
	ErrValueCyclic   = errors.New("value contains a cycle")
	ErrStackOverflow = errors.New("lua stack overflow")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// NewLuaEnv creates a Lua evaluation environment
func NewLuaEnv() *LuaEnv {
	return &LuaEnv{
		cache: util.NewLRUCache[[]byte](scriptCacheSize),
	}
}

// Evaluate runs src, then calls its _fun entry point with env. Calls to the
// global log function are captured as log entries. The evaluation is
// aborted once ctx is done
func (e *LuaEnv) Evaluate(
	ctx context.Context, src string, env any,
) (*Output, error) {
	return catchPanic(ErrLuaExecution, func() (*Output, error) {
		return e.evaluate(ctx, src, env)
	})
}

func (e *LuaEnv) evaluate(
	ctx context.Context, src string, env any,
) (*Output, error) {
	bytecode, err := e.compile(src)
	if err != nil {
		return nil, err
	}

	var logs []any
	L := lua.NewState()
	setupSandbox(L)
	L.Register(luaLogFunction, func(L *lua.State) int {
		entry, err := luaLogEntry(L)
		if err != nil {
			lua.Errorf(L, "%s", err.Error())
		}
		logs = append(logs, entry)
		return 0
	})
	lua.SetDebugHook(L, func(L *lua.State, _ lua.Debug) {
		if err := ctx.Err(); err != nil {
			lua.Errorf(L, "%s", ErrTimeout.Error())
		}
	}, lua.MaskCount, luaHookInstrCount)

	if err := L.Load(bytes.NewReader(bytecode), luaChunkName, "b"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}
	if err := L.ProtectedCall(0, 0, 0); err != nil {
		return nil, luaCallError(ctx, err)
	}

	L.Global(EntryPoint)
	if !L.IsFunction(-1) {
		return nil, fmt.Errorf("%w: %s", ErrEntryPointMissing, EntryPoint)
	}
	if err := goToLua(L, env, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}
	if err := L.ProtectedCall(1, 1, 0); err != nil {
		return nil, luaCallError(ctx, err)
	}

	value, err := newLuaReader(L).read(-1, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}
	L.Pop(1)
	if logs == nil {
		logs = []any{}
	}
	return &Output{Value: value, Logs: logs}, nil
}

func (e *LuaEnv) compile(src string) ([]byte, error) {
	return e.cache.Get(hashScript(src), func() ([]byte, error) {
		L := lua.NewState()
		setupSandbox(L)

		if err := lua.LoadString(L, src); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
		}

		var buf bytes.Buffer
		if err := L.Dump(&buf); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
		}
		return buf.Bytes(), nil
	})
}

func setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(-2, name)
	}
	L.Pop(1)
}

func luaCallError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
	return fmt.Errorf("%w: %w", ErrLuaExecution, err)
}

// luaLogEntry converts the arguments of one log call. A single argument is
// logged as is, several as an array
func luaLogEntry(L *lua.State) (any, error) {
	r := newLuaReader(L)
	n := L.Top()
	if n == 1 {
		return r.read(1, 0)
	}
	args := make([]any, n)
	for i := 1; i <= n; i++ {
		arg, err := r.read(i, 0)
		if err != nil {
			return nil, err
		}
		args[i-1] = arg
	}
	return args, nil
}

func goToLua(L *lua.State, value any, depth int) error {
	if !L.CheckStack(luaValueStack) {
		return ErrStackOverflow
	}
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		return pushLuaArray(L, v, depth)
	case map[string]any:
		return pushLuaMap(L, v, depth)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
	return nil
}

func pushLuaArray(L *lua.State, arr []any, depth int) error {
	if depth >= MaxValueDepth {
		return ErrValueTooDeep
	}
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		if err := goToLua(L, item, depth+1); err != nil {
			return err
		}
		L.RawSetInt(-2, i+1)
	}
	return nil
}

func pushLuaMap(L *lua.State, m map[string]any, depth int) error {
	if depth >= MaxValueDepth {
		return ErrValueTooDeep
	}
	L.CreateTable(0, len(m))
	for k, val := range m {
		if err := goToLua(L, val, depth+1); err != nil {
			return err
		}
		L.SetField(-2, k)
	}
	return nil
}

// luaReader converts Lua values into their JSON-compatible Go form. Tables
// on the current path are tracked so a cycle is reported instead of
// followed. A table shared by siblings is converted once per reference
type luaReader struct {
	L    *lua.State
	path map[any]bool
}

func newLuaReader(L *lua.State) *luaReader {
	return &luaReader{L: L, path: map[any]bool{}}
}

func (r *luaReader) read(index, depth int) (any, error) {
	L := r.L
	switch L.TypeOf(index) {
	case lua.TypeBoolean:
		return L.ToBoolean(index), nil
	case lua.TypeNumber:
		num, _ := L.ToNumber(index)
		if num == float64(int(num)) {
			return int(num), nil
		}
		return num, nil
	case lua.TypeString:
		s, _ := L.ToString(index)
		return s, nil
	case lua.TypeTable:
		return r.readTable(L.AbsIndex(index), depth)
	default:
		return nil, nil
	}
}

// readTable converts the table at the absolute index. A table whose keys
// are exactly 1..n becomes an array, any other table a map. Empty tables
// become empty maps
func (r *luaReader) readTable(index, depth int) (any, error) {
	L := r.L
	if depth >= MaxValueDepth {
		return nil, ErrValueTooDeep
	}
	if !L.CheckStack(luaValueStack) {
		return nil, ErrStackOverflow
	}
	id := L.ToValue(index)
	if r.path[id] {
		return nil, ErrValueCyclic
	}
	r.path[id] = true
	defer delete(r.path, id)

	if n, ok := luaSequenceLen(L, index); ok {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			L.RawGetInt(index, i)
			item, err := r.read(-1, depth+1)
			L.Pop(1)
			if err != nil {
				return nil, err
			}
			arr[i-1] = item
		}
		return arr, nil
	}

	res := map[string]any{}
	L.PushNil()
	for L.Next(index) {
		key, err := r.readKey(depth + 1)
		if err != nil {
			L.Pop(2)
			return nil, err
		}
		val, err := r.read(-1, depth+1)
		L.Pop(1)
		if err != nil {
			L.Pop(1)
			return nil, err
		}
		res[key] = val
	}
	return res, nil
}

func (r *luaReader) readKey(depth int) (string, error) {
	if r.L.TypeOf(-2) == lua.TypeString {
		key, _ := r.L.ToString(-2)
		return key, nil
	}
	key, err := r.read(-2, depth)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", key), nil
}

func luaSequenceLen(L *lua.State, index int) (int, bool) {
	count := 0
	L.PushNil()
	for L.Next(index) {
		if L.TypeOf(-2) != lua.TypeNumber {
			L.Pop(2)
			return 0, false
		}
		count++
		L.Pop(1)
	}
	if count == 0 {
		return 0, false
	}
	for i := 1; i <= count; i++ {
		L.RawGetInt(index, i)
		missing := L.IsNil(-1)
		L.Pop(1)
		if missing {
			return 0, false
		}
	}
	return count, true
}
