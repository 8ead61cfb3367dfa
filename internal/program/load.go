package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/util"
)

type (
	// Program is a compiled, immutable sequence of blocks. It may be run
	// any number of times, concurrently
	Program struct {
		blocks []block.Block
		config *api.RunConfig
	}

	// File is the YAML form of a program
	File struct {
		Blocks []BlockDef     `yaml:"blocks"`
		Config map[string]any `yaml:"config"`
	}

	// BlockDef is the YAML form of one block. Spec is an ordered mapping
	// of scalar values
	BlockDef struct {
		Type     string    `yaml:"type"`
		Name     string    `yaml:"name"`
		Spec     yaml.Node `yaml:"spec"`
		Expected any       `yaml:"expected"`
	}
)

var (
	ErrNoBlocks       = errors.New("program has no blocks")
	ErrDuplicateBlock = errors.New("duplicate block name")
	ErrInvalidSpec    = errors.New("invalid block spec")
	ErrInvalidConfig  = errors.New("invalid program configuration")
	ErrDecodeProgram  = errors.New("failed to decode program")
)

// LoadFile reads and compiles the program at path
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load decodes a YAML program and compiles its blocks
func Load(data []byte) (*Program, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeProgram, err)
	}
	specs, err := f.BlockSpecs()
	if err != nil {
		return nil, err
	}
	cfg, err := f.RunConfig()
	if err != nil {
		return nil, err
	}
	return Compile(specs, cfg)
}

// BlockSpecs converts the block definitions, preserving key order
func (f *File) BlockSpecs() ([]*api.BlockSpec, error) {
	res := make([]*api.BlockSpec, 0, len(f.Blocks))
	for _, def := range f.Blocks {
		pairs, err := specPairs(&def.Spec)
		if err != nil {
			return nil, fmt.Errorf("%w `%s`: %w", ErrInvalidSpec, def.Name, err)
		}
		res = append(res, &api.BlockSpec{
			Type:     api.BlockType(def.Type),
			Name:     api.Name(def.Name),
			Pairs:    pairs,
			Expected: def.Expected,
		})
	}
	return res, nil
}

// RunConfig converts the per-block configuration of the file
func (f *File) RunConfig() (*api.RunConfig, error) {
	res := &api.RunConfig{Blocks: map[api.Name]json.RawMessage{}}
	for name, v := range f.Config {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w `%s`: %w", ErrInvalidConfig, name, err)
		}
		res.Blocks[api.Name(name)] = raw
	}
	return res, nil
}

// Compile parses every spec once. Block names must be unique
func Compile(specs []*api.BlockSpec, cfg *api.RunConfig) (*Program, error) {
	if len(specs) == 0 {
		return nil, ErrNoBlocks
	}
	names := util.Set[api.Name]{}
	blocks := make([]block.Block, 0, len(specs))
	for _, spec := range specs {
		if names.Contains(spec.Name) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBlock, spec.Name)
		}
		names.Add(spec.Name)

		b, err := block.Parse(spec)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return &Program{blocks: blocks, config: cfg}, nil
}

// Blocks returns the compiled blocks in execution order
func (p *Program) Blocks() []block.Block {
	res := make([]block.Block, len(p.blocks))
	copy(res, p.blocks)
	return res
}

func specPairs(n *yaml.Node) ([]api.Pair, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errors.New("expecting a mapping")
	}
	res := make([]api.Pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("`%s` must be a scalar", k.Value)
		}
		res = append(res, api.Pair{Key: k.Value, Value: v.Value})
	}
	return res, nil
}
