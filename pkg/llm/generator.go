// Package llm defines the generation provider boundary. The pipeline only
// needs single-shot, non-streaming completion; everything else about the
// provider stays behind this interface.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrGenerate is returned when the generation provider fails.
	ErrGenerate = errors.New("generation failed")

	// ErrTimeout is returned when the generation provider does not answer
	// within the caller's deadline.
	ErrTimeout = errors.New("generation timed out")
)

// Generator produces a completion for a fully composed prompt.
type Generator interface {
	// Generate returns the model's answer text for the given prompt.
	// Streaming is disabled; the full answer comes back in one response.
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier in use, for response envelopes.
	Model() string

	// Close releases any resources held by the generator.
	Close() error
}

// ErrorResponse is the generic JSON error body returned by the API layer.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
