package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/log"
)

type errStub string

func TestBlockName(t *testing.T) {
	attr := log.BlockName(api.Name("MODEL"))
	assertAttrEqual(t, attr, "block_name", "MODEL")
}

func TestBlockType(t *testing.T) {
	attr := log.BlockType(api.BlockTypeChat)
	assertAttrEqual(t, attr, "block_type", "chat")
}

func TestProviderID(t *testing.T) {
	attr := log.ProviderID(api.ProviderOpenAI)
	assertAttrEqual(t, attr, "provider_id", "openai")
}

func TestModelID(t *testing.T) {
	attr := log.ModelID("gpt-4")
	assertAttrEqual(t, attr, "model_id", "gpt-4")
}

func TestRunID(t *testing.T) {
	attr := log.RunID(api.RunID("run-1"))
	assertAttrEqual(t, attr, "run_id", "run-1")
}

func TestError(t *testing.T) {
	attr := log.Error(nil)
	assertAttrEqual(t, attr, "error", "")

	attr = log.Error(errStub("boom"))
	assertAttrEqual(t, attr, "error", "boom")
}

func TestErrorString(t *testing.T) {
	attr := log.ErrorString("badness")
	assertAttrEqual(t, attr, "error", "badness")
}

func (e errStub) Error() string { return string(e) }

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
