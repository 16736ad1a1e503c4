// Package config holds the process-wide configuration for docent. All
// tunables load once at startup into an immutable Config passed explicitly
// to each component; nothing below this package reads ambient environment
// state, which keeps unit tests deterministic under varied configurations.
package config

import (
	"time"
)

// Config is the fully-populated runtime configuration.
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Corpus      CorpusConfig      `mapstructure:"corpus"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Context     ContextConfig     `mapstructure:"context"`
	Sanitize    SanitizeConfig    `mapstructure:"sanitize"`
}

// APIConfig holds the HTTP surface settings.
type APIConfig struct {
	// Listen is the address the API server binds (e.g. ":8080").
	Listen string `mapstructure:"listen"`

	// Key is the shared-secret credential; empty disables the check.
	Key string `mapstructure:"key"`

	// MaxQuestionChars bounds inbound question length.
	MaxQuestionChars int `mapstructure:"max_question_chars"`
}

// UpstreamConfig bounds the outbound provider calls.
type UpstreamConfig struct {
	// TimeoutSeconds applies to each embed, retrieve, and generate call.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the upstream timeout as a duration.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// LLMConfig holds generation provider settings.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Target   string `mapstructure:"target"`
	Model    string `mapstructure:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Target     string `mapstructure:"target"`
	Model      string `mapstructure:"model"`
	Dimensions uint   `mapstructure:"dimensions"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	// Provider selects the driver: pgvector, qdrant, sqlitevec, inmemory.
	Provider string `mapstructure:"provider"`

	// Target is the provider-specific connection string, address, or path.
	Target string `mapstructure:"target"`
}

// CorpusConfig holds the retrieval authority constraint.
type CorpusConfig struct {
	// Version is the required corpus version tag for every retrieval.
	Version string `mapstructure:"version"`
}

// RetrievalConfig holds the retrieval guardrail tunables.
type RetrievalConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float32 `mapstructure:"min_score"`

	// CandidatePool is the store-side oversampling size; zero derives
	// max(25, 10*top_k).
	CandidatePool int `mapstructure:"candidate_pool"`
}

// ContextConfig holds the context assembly budget.
type ContextConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// SanitizeConfig holds the injection-signature list.
type SanitizeConfig struct {
	Signatures []string `mapstructure:"signatures"`
}
