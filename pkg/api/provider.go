package api

import (
	"errors"
	"fmt"

	"github.com/kode4food/weave/pkg/util"
)

// ProviderID identifies an LLM provider backend
type ProviderID string

const (
	ProviderOpenAI         ProviderID = "openai"
	ProviderAzureOpenAI    ProviderID = "azure_openai"
	ProviderAnthropic      ProviderID = "anthropic"
	ProviderCohere         ProviderID = "cohere"
	ProviderAI21           ProviderID = "ai21"
	ProviderTextSynth      ProviderID = "textsynth"
	ProviderMistral        ProviderID = "mistral"
	ProviderGoogleAIStudio ProviderID = "google_ai_studio"
	ProviderLorem          ProviderID = "lorem"
)

var ErrInvalidProviderID = errors.New("invalid provider id")

var validProviderIDs = util.SetOf(
	ProviderOpenAI,
	ProviderAzureOpenAI,
	ProviderAnthropic,
	ProviderCohere,
	ProviderAI21,
	ProviderTextSynth,
	ProviderMistral,
	ProviderGoogleAIStudio,
	ProviderLorem,
)

// ParseProviderID converts a string into a known ProviderID
func ParseProviderID(s string) (ProviderID, error) {
	id := ProviderID(s)
	if !id.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidProviderID, s)
	}
	return id, nil
}

// ProviderIDs returns every known provider identifier
func ProviderIDs() []ProviderID {
	res := make([]ProviderID, 0, len(validProviderIDs))
	for id := range validProviderIDs {
		res = append(res, id)
	}
	return res
}

// IsValid returns true if the provider ID is a known provider
func (p ProviderID) IsValid() bool {
	return validProviderIDs.Contains(p)
}

func (p ProviderID) String() string {
	return string(p)
}
