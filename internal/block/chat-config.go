package block

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/weave/pkg/api"
)

// chatConfig is the per-run configuration of a chat block
type chatConfig struct {
	providerID   api.ProviderID
	modelID      string
	temperature  *float32
	functionCall *string
	useCache     bool
	useStream    bool
	extras       api.Args
}

const (
	cfgProviderID   = "provider_id"
	cfgModelID      = "model_id"
	cfgTemperature  = "temperature"
	cfgFunctionCall = "function_call"
	cfgUseCache     = "use_cache"
	cfgUseStream    = "use_stream"

	functionCallAuto = "auto"
	functionCallNone = "none"
)

var (
	ErrConfigMissing      = errors.New("missing configuration")
	ErrConfigOption       = errors.New("invalid configuration option")
	ErrInvalidFunctionRef = errors.New("invalid function call")
)

func (c *Chat) resolveConfig(env *api.Env) (*chatConfig, error) {
	raw, ok := env.Config.ForBlock(c.name)
	if !ok || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, fmt.Errorf(
			"%w for chat block `%s`, expecting "+
				"`{ \"provider_id\": ..., \"model_id\": ... }`",
			ErrConfigMissing, c.name,
		)
	}
	v := gjson.ParseBytes(raw)

	res := &chatConfig{useCache: true}
	providerID, err := c.requiredString(v, cfgProviderID)
	if err != nil {
		return nil, err
	}
	if res.providerID, err = api.ParseProviderID(providerID); err != nil {
		return nil, c.optionError(cfgProviderID, err.Error())
	}
	if res.modelID, err = c.requiredString(v, cfgModelID); err != nil {
		return nil, err
	}

	if t := v.Get(cfgTemperature); t.Exists() {
		if t.Type != gjson.Number {
			return nil, c.optionError(cfgTemperature, "expecting a number")
		}
		f := float32(t.Float())
		res.temperature = &f
	}

	if fc := v.Get(cfgFunctionCall); fc.Exists() && fc.Type != gjson.Null {
		if fc.Type != gjson.String {
			return nil, c.optionError(cfgFunctionCall, "expecting a string")
		}
		s := fc.String()
		res.functionCall = &s
	}

	if res.useCache, err = c.optionalBool(v, cfgUseCache, true); err != nil {
		return nil, err
	}
	if res.useStream, err = c.optionalBool(v, cfgUseStream, false); err != nil {
		return nil, err
	}

	if res.extras, err = c.providerExtras(v, res.providerID); err != nil {
		return nil, err
	}
	return res, nil
}

// providerExtras collects the options prefixed by the provider's id, such
// as openai_user
func (c *Chat) providerExtras(
	v gjson.Result, id api.ProviderID,
) (api.Args, error) {
	prefix := string(id) + "_"
	var res api.Args
	var err error
	v.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !strings.HasPrefix(name, prefix) {
			return true
		}
		if value.Type != gjson.String {
			err = c.optionError(name, "expecting a string")
			return false
		}
		res = res.Set(api.Name(name), value.String())
		return true
	})
	return res, err
}

func (c *Chat) requiredString(v gjson.Result, key string) (string, error) {
	r := v.Get(key)
	if !r.Exists() {
		return "", fmt.Errorf(
			"%w: `%s` in configuration for chat block `%s`",
			ErrConfigMissing, key, c.name,
		)
	}
	if r.Type != gjson.String {
		return "", c.optionError(key, "expecting a string")
	}
	return r.String(), nil
}

func (c *Chat) optionalBool(
	v gjson.Result, key string, def bool,
) (bool, error) {
	r := v.Get(key)
	switch {
	case !r.Exists():
		return def, nil
	case r.IsBool():
		return r.Bool(), nil
	default:
		return false, c.optionError(key, "expecting a boolean")
	}
}

func (c *Chat) optionError(key, reason string) error {
	return fmt.Errorf(
		"%w: `%s` in configuration for chat block `%s`, %s",
		ErrConfigOption, key, c.name, reason,
	)
}

// validateFunctionCall checks that a function call directive names one of
// the declared functions, unless it is "auto" or "none"
func (c *Chat) validateFunctionCall(
	fc *string, functions []api.ChatFunction,
) error {
	if fc == nil || *fc == functionCallAuto || *fc == functionCallNone {
		return nil
	}
	valid := []string{functionCallAuto, functionCallNone}
	for _, f := range functions {
		if f.Name == *fc {
			return nil
		}
		valid = append(valid, f.Name)
	}
	return fmt.Errorf(
		"%w: `function_call` in configuration for chat block `%s`: "+
			"function `%s` not found, expecting one of %s",
		ErrInvalidFunctionRef, c.name, *fc, quoteAll(valid),
	)
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "\"" + n + "\""
	}
	return strings.Join(quoted, ", ")
}
