package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

type (
	// BlockType is the kind of a block
	BlockType string

	// Pair is a single key/value pair of a block's static definition, as
	// produced by the program parser
	Pair struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	// BlockSpec is the parsed, not yet compiled, form of a block
	BlockSpec struct {
		Type     BlockType `json:"type"`
		Name     Name      `json:"name"`
		Pairs    []Pair    `json:"pairs"`
		Expected any       `json:"expected,omitempty"`
	}

	// BlockResult is produced by each block execution. Ownership passes to
	// the caller; blocks never retain results
	BlockResult struct {
		Value any        `json:"value"`
		Meta  *BlockMeta `json:"meta,omitempty"`
	}

	// BlockMeta carries side-channel metadata of a block execution
	BlockMeta struct {
		Logs []any `json:"logs"`
	}
)

const (
	BlockTypeChat BlockType = "chat"
	BlockTypeCode BlockType = "code"
)

var (
	ErrBlockNameEmpty = errors.New("block name empty")
	ErrNormalize      = errors.New("failed to normalize value")
)

// Validate checks the identifying fields of a BlockSpec
func (s *BlockSpec) Validate() error {
	if s.Name == "" {
		return ErrBlockNameEmpty
	}
	return nil
}

// Normalize round-trips a value through JSON so it only contains maps,
// slices, strings, float64s, bools and nils
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNormalize, err)
	}
	var res any
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNormalize, err)
	}
	return res, nil
}
