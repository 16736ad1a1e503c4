// Package llmutils is the generation provider utility package
package llmutils

import (
	"fmt"

	"github.com/papercomputeco/docent/pkg/llm"
	"github.com/papercomputeco/docent/pkg/llm/ollama"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

func NewGenerator(o *NewGeneratorOpts) (llm.Generator, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewGenerator(ollama.GeneratorConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
