// Package vector provides interfaces and implementations for storing and
// querying corpus chunk embeddings.
package vector

import (
	"context"

	"github.com/papercomputeco/docent/pkg/corpus"
)

// Driver handles storage and similarity retrieval of corpus chunks.
type Driver interface {
	// Add stores chunks with their embeddings. If a chunk with the same ID
	// already exists, implementers should update it in place.
	Add(ctx context.Context, chunks []corpus.Chunk) error

	// Query returns up to limit candidates most similar to the given
	// embedding, restricted to chunks whose version tag exactly equals
	// version. Rows without a stored embedding are excluded. Results are
	// ordered by descending similarity; scores are cosine-similarity
	// derived (1 - cosine distance for backends that report distance).
	Query(ctx context.Context, embedding []float32, version string, limit int) ([]corpus.Candidate, error)

	// Close releases any resources held by the driver.
	Close() error
}
