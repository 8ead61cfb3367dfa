package assert

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/internal/config"
	"github.com/kode4food/weave/pkg/api"
)

// Wrapper wraps testify assertions with engine-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
}

// New creates a new test assertion wrapper with testify plus engine-specific
// helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
}

// ConfigInvalid asserts that a configuration is invalid and that the error
// message contains the expected text
func (w *Wrapper) ConfigInvalid(cfg *config.Config, expectedContains string) {
	w.Helper()
	err := cfg.Validate()
	w.Assertions.Error(err)
	if err != nil && expectedContains != "" {
		w.Contains(err.Error(), expectedContains)
	}
}

// BlockError asserts that err is a block error of the expected kind, raised
// by the named block, and returns it
func (w *Wrapper) BlockError(
	err error, kind error, name api.Name,
) *block.Error {
	w.Helper()
	w.ErrorIs(err, kind)

	var be *block.Error
	if !w.True(errors.As(err, &be), "expected *block.Error, got %T", err) {
		return nil
	}
	w.Equal(name, be.BlockName)
	return be
}
