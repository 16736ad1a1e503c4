// Package inmemory provides an in-process vector driver backed by an exact
// cosine-similarity scan. It exists for tests and for running the pipeline
// without external services; it is not meant for large corpora.
package inmemory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/vector"
)

// Driver implements vector.Driver with a mutex-guarded map and a full scan
// per query.
type Driver struct {
	mu     sync.RWMutex
	chunks map[string]corpus.Chunk
}

// NewDriver creates an empty in-memory vector driver.
func NewDriver() *Driver {
	return &Driver{
		chunks: make(map[string]corpus.Chunk),
	}
}

// Add stores chunks, replacing any existing chunk with the same ID.
func (d *Driver) Add(_ context.Context, chunks []corpus.Chunk) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ch := range chunks {
		d.chunks[ch.ID] = ch
	}
	return nil
}

// Query scans every stored chunk, filters by exact version match, and
// returns the limit most similar candidates ordered by descending score.
func (d *Driver) Query(_ context.Context, embedding []float32, version string, limit int) ([]corpus.Candidate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	candidates := make([]corpus.Candidate, 0, len(d.chunks))
	for _, ch := range d.chunks {
		if ch.Version != version {
			continue
		}
		if len(ch.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, corpus.Candidate{
			Chunk: ch,
			Score: cosineSimilarity(embedding, ch.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ vector.Driver = (*Driver)(nil)
