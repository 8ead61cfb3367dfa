package block

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kode4food/weave/pkg/api"
)

// Chat is the conversational completion block. Guest code produces the
// messages (and optionally the functions) of a chat request, which is then
// dispatched to the configured provider
type Chat struct {
	name             api.Name
	instructions     *string
	messagesCode     string
	functionsCode    *string
	temperature      float32
	topP             *float32
	stop             []string
	maxTokens        *int32
	presencePenalty  *float32
	frequencyPenalty *float32
}

const (
	keyInstructions     = "instructions"
	keyMessagesCode     = "messages_code"
	keyFunctionsCode    = "functions_code"
	keyTemperature      = "temperature"
	keyTopP             = "top_p"
	keyStop             = "stop"
	keyMaxTokens        = "max_tokens"
	keyPresencePenalty  = "presence_penalty"
	keyFrequencyPenalty = "frequency_penalty"
)

var (
	ErrUnexpectedKey   = errors.New("unexpected key")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrMissingKey      = errors.New("missing required key")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrExpectedInvalid = errors.New("expected output is not supported")
)

func parseChat(spec *api.BlockSpec) (Block, error) {
	fail := func(err error) (Block, error) {
		return nil, newError(ErrConstruction, api.BlockTypeChat, spec.Name, err)
	}

	if spec.Expected != nil {
		return fail(fmt.Errorf(
			"%w: `expected` is not yet supported in `chat` block",
			ErrExpectedInvalid,
		))
	}

	res := &Chat{name: spec.Name}
	var temperature *float32
	var messagesCode *string
	seen := map[string]bool{}

	for _, p := range spec.Pairs {
		if seen[p.Key] {
			return fail(fmt.Errorf(
				"%w: `%s` in `chat` block", ErrDuplicateKey, p.Key,
			))
		}
		seen[p.Key] = true

		var err error
		switch p.Key {
		case keyInstructions:
			res.instructions = &p.Value
		case keyMessagesCode:
			messagesCode = &p.Value
		case keyFunctionsCode:
			res.functionsCode = &p.Value
		case keyTemperature:
			temperature, err = parseFloat(p.Key, p.Value)
		case keyTopP:
			res.topP, err = parseFloat(p.Key, p.Value)
		case keyStop:
			res.stop = parseStop(p.Value)
		case keyMaxTokens:
			res.maxTokens, err = parseInt(p.Key, p.Value)
		case keyPresencePenalty:
			res.presencePenalty, err = parseFloat(p.Key, p.Value)
		case keyFrequencyPenalty:
			res.frequencyPenalty, err = parseFloat(p.Key, p.Value)
		default:
			err = fmt.Errorf(
				"%w: `%s` in `chat` block", ErrUnexpectedKey, p.Key,
			)
		}
		if err != nil {
			return fail(err)
		}
	}

	if temperature == nil {
		return fail(missingKey(keyTemperature))
	}
	if messagesCode == nil {
		return fail(missingKey(keyMessagesCode))
	}
	res.temperature = *temperature
	res.messagesCode = *messagesCode
	return res, nil
}

// Type returns api.BlockTypeChat
func (c *Chat) Type() api.BlockType {
	return api.BlockTypeChat
}

// Name returns the block's declared name
func (c *Chat) Name() api.Name {
	return c.name
}

// InnerHash digests every static field. Optional fields contribute a
// tagged entry only when present, and stop sequences are hashed in order
func (c *Chat) InnerHash() string {
	h := newFieldHasher(api.BlockTypeChat)
	h.optional(keyInstructions, c.instructions)
	h.field(keyMessagesCode, c.messagesCode)
	h.optional(keyFunctionsCode, c.functionsCode)
	h.field(keyTemperature, formatFloat(c.temperature))
	if c.topP != nil {
		h.field(keyTopP, formatFloat(*c.topP))
	}
	for _, s := range c.stop {
		h.field(keyStop, s)
	}
	if c.maxTokens != nil {
		h.field(keyMaxTokens, strconv.FormatInt(int64(*c.maxTokens), 10))
	}
	if c.presencePenalty != nil {
		h.field(keyPresencePenalty, formatFloat(*c.presencePenalty))
	}
	if c.frequencyPenalty != nil {
		h.field(keyFrequencyPenalty, formatFloat(*c.frequencyPenalty))
	}
	return h.sum()
}

func parseFloat(key, value string) (*float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: `%s` in `chat` block, expecting float", ErrInvalidNumber, key,
		)
	}
	res := float32(f)
	return &res, nil
}

func parseInt(key, value string) (*int32, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: `%s` in `chat` block, expecting integer", ErrInvalidNumber, key,
		)
	}
	res := int32(i)
	return &res, nil
}

func parseStop(value string) []string {
	var res []string
	for s := range strings.SplitSeq(value, "\n") {
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}

func missingKey(key string) error {
	return fmt.Errorf("%w: `%s` in `chat` block", ErrMissingKey, key)
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

type fieldHasher struct {
	buf []byte
}

func newFieldHasher(typ api.BlockType) *fieldHasher {
	h := &fieldHasher{}
	h.write(string(typ))
	return h
}

func (h *fieldHasher) field(name, value string) {
	h.write(name)
	h.write(value)
}

func (h *fieldHasher) optional(name string, value *string) {
	if value != nil {
		h.field(name, *value)
	}
}

func (h *fieldHasher) write(s string) {
	h.buf = strconv.AppendInt(h.buf, int64(len(s)), 10)
	h.buf = append(h.buf, ':')
	h.buf = append(h.buf, s...)
	h.buf = append(h.buf, 0)
}

func (h *fieldHasher) sum() string {
	sum := sha256.Sum256(h.buf)
	return hex.EncodeToString(sum[:])
}
