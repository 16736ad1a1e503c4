// Package embeddings
package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmbed is returned when embedding generation fails.
	ErrEmbed = errors.New("embedding failed")

	// ErrTimeout is returned when the embedding provider does not answer
	// within the caller's deadline.
	ErrTimeout = errors.New("embedding timed out")

	// ErrMalformed is returned when the provider answers successfully but
	// the response carries no usable vector.
	ErrMalformed = errors.New("embedding response malformed")
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
