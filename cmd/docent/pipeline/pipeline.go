// Package pipelinecmder wires the grounding pipeline from loaded
// configuration. Shared by the serve and ask commands so both entry
// points assemble identical components.
package pipelinecmder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/answer"
	"github.com/papercomputeco/docent/pkg/assemble"
	"github.com/papercomputeco/docent/pkg/config"
	"github.com/papercomputeco/docent/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/docent/pkg/embeddings/utils"
	"github.com/papercomputeco/docent/pkg/llm"
	llmutils "github.com/papercomputeco/docent/pkg/llm/utils"
	"github.com/papercomputeco/docent/pkg/retriever"
	"github.com/papercomputeco/docent/pkg/sanitize"
	"github.com/papercomputeco/docent/pkg/vector"
	vectorutils "github.com/papercomputeco/docent/pkg/vector/utils"
)

// Pipeline bundles the constructed components for one process.
type Pipeline struct {
	Embedder     embeddings.Embedder
	VectorDriver vector.Driver
	Generator    llm.Generator
	Retriever    *retriever.Retriever
	Sanitizer    *sanitize.Sanitizer
	Assembler    *assemble.Assembler
	Orchestrator *answer.Orchestrator
}

// Build constructs the full pipeline from configuration. The corpus
// version requirement is checked here so a misconfigured process fails at
// startup, not per request.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg.Corpus.Version == "" {
		return nil, retriever.ErrVersionRequired
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	driver, err := vectorutils.NewDriver(ctx, &vectorutils.NewDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	generator, err := llmutils.NewGenerator(&llmutils.NewGeneratorOpts{
		ProviderType: cfg.LLM.Provider,
		TargetURL:    cfg.LLM.Target,
		Model:        cfg.LLM.Model,
	})
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	sanitizer := sanitize.New(cfg.Sanitize.Signatures)

	retr := retriever.New(driver, retriever.Config{
		TopK:          cfg.Retrieval.TopK,
		MinScore:      cfg.Retrieval.MinScore,
		CandidatePool: cfg.Retrieval.CandidatePool,
	}, logger)

	assembler := assemble.New(cfg.Context.MaxChars, sanitizer, logger)

	orchestrator := answer.New(embedder, retr, assembler, generator, answer.Config{
		CorpusVersion:    cfg.Corpus.Version,
		APIKey:           cfg.API.Key,
		MaxQuestionChars: cfg.API.MaxQuestionChars,
		UpstreamTimeout:  cfg.Upstream.Timeout(),
	}, logger)

	return &Pipeline{
		Embedder:     embedder,
		VectorDriver: driver,
		Generator:    generator,
		Retriever:    retr,
		Sanitizer:    sanitizer,
		Assembler:    assembler,
		Orchestrator: orchestrator,
	}, nil
}

// Close releases the pipeline's external resources.
func (p *Pipeline) Close() {
	p.Embedder.Close()
	p.Generator.Close()
	p.VectorDriver.Close()
}
