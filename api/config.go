// Package api provides the HTTP surface for grounded question answering.
package api

import (
	"github.com/papercomputeco/docent/pkg/embeddings"
	"github.com/papercomputeco/docent/pkg/retriever"
	"github.com/papercomputeco/docent/pkg/sanitize"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g. ":8080")
	ListenAddr string

	// APIKey is the shared-secret credential checked on /v1 routes;
	// empty disables the check.
	APIKey string

	// CorpusVersion is the default version scope for the search endpoint.
	CorpusVersion string

	// Embedder and Retriever back the debug search endpoint; the ask
	// endpoint reaches them through the orchestrator.
	Embedder  embeddings.Embedder
	Retriever *retriever.Retriever

	// Sanitizer flags injection-bearing hits on the search endpoint.
	Sanitizer *sanitize.Sanitizer
}
