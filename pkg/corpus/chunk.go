// Package corpus defines the evidence records that flow through the
// grounding pipeline: chunks stored at ingestion time, scored candidates
// produced by retrieval, and the citation headers carried into answers.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when a chunk has no text content.
	ErrEmptyText = errors.New("chunk text is empty")

	// ErrEmptyVersion is returned when a chunk carries no corpus version tag.
	ErrEmptyVersion = errors.New("chunk version is empty")

	// ErrPageOrder is returned when a chunk's page range is inverted.
	ErrPageOrder = errors.New("chunk page_start exceeds page_end")
)

// Chunk is one retrievable span of a source document. Chunks are created
// once at ingestion time and never mutated afterwards; the pipeline only
// reads them back through a vector.Driver.
type Chunk struct {
	// ID is a unique identifier for the chunk.
	ID string

	// DocumentID identifies the owning document.
	DocumentID string

	// Source is the human-readable document name (e.g. "manual.pdf").
	Source string

	// Section labels where in the document the chunk came from.
	Section string

	// PageStart and PageEnd bound the chunk's page range (inclusive,
	// PageStart <= PageEnd).
	PageStart int
	PageEnd   int

	// Text is the chunk content.
	Text string

	// TextHash is the sha256 hex digest of Text, used for ingestion dedup.
	TextHash string

	// Embedding is the precomputed vector representation of Text.
	Embedding []float32

	// Version is the corpus version tag the chunk belongs to. Retrieval
	// filters on an exact match of this field.
	Version string
}

// Validate checks the invariants a chunk must satisfy before it is stored.
func (c Chunk) Validate() error {
	if c.Text == "" {
		return ErrEmptyText
	}
	if c.Version == "" {
		return ErrEmptyVersion
	}
	if c.PageStart > c.PageEnd {
		return fmt.Errorf("%w: %d > %d", ErrPageOrder, c.PageStart, c.PageEnd)
	}
	return nil
}

// Candidate is a chunk paired with a similarity score from a vector query.
// Scores are cosine-similarity derived: higher means more relevant,
// nominally 0..1 but unbounded below. Candidates live only for the
// duration of one request.
type Candidate struct {
	Chunk

	// Score is the similarity between the query vector and the chunk's
	// stored embedding.
	Score float32
}

// HashText returns the sha256 hex digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FormatCitation renders the provenance header used both inside assembled
// context blocks and in the citations list returned to callers, e.g.
// "[manual.pdf | Page 3 | p3]". The format is machine-parseable and is
// referenced literally by the generation prompt.
func FormatCitation(c Chunk) string {
	return fmt.Sprintf("[%s | %s | p%d]", c.Source, c.Section, c.PageStart)
}
