// Package retriever implements authority-scoped, confidence-gated vector
// retrieval. The corpus version is a hard authority boundary: a chunk is
// eligible only when its version tag exactly equals the required version,
// which keeps answers from being drawn out of a superseded document
// edition. On top of that sit two independent guards: a minimum similarity
// score (the line between "answerable" and "should refuse") and a hard
// result cap (context-window protection).
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/vector"
)

const (
	// DefaultTopK is the default hard cap on returned candidates.
	DefaultTopK = 5

	// DefaultMinScore is the default confidence guardrail.
	DefaultMinScore = 0.35

	// minPool floors the candidate pool so threshold filtering does not
	// starve the final result count.
	minPool = 25
)

// ErrVersionRequired is returned when retrieval is attempted without a
// corpus version. The version requirement is never silently defaulted.
var ErrVersionRequired = errors.New("corpus version is required")

// Config holds the retrieval tunables.
type Config struct {
	// TopK is the hard cap on results after thresholding.
	// Defaults to DefaultTopK if zero.
	TopK int

	// MinScore is the minimum similarity a candidate must reach. Zero
	// selects DefaultMinScore; a negative value disables the guardrail
	// (every candidate passes), which must be an explicit choice.
	MinScore float32

	// CandidatePool is how many candidates to request from the store
	// before thresholding. Zero derives max(minPool, 10*TopK).
	CandidatePool int
}

// Retriever queries a vector store under an authority constraint.
type Retriever struct {
	driver   vector.Driver
	topK     int
	minScore float32
	pool     int
	logger   *zap.Logger
}

// New creates a Retriever over the given driver.
func New(driver vector.Driver, cfg Config, logger *zap.Logger) *Retriever {
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	minScore := cfg.MinScore
	if minScore == 0 {
		minScore = DefaultMinScore
	}

	pool := cfg.CandidatePool
	if floor := maxInt(minPool, 10*topK); pool < floor {
		pool = floor
	}

	return &Retriever{
		driver:   driver,
		topK:     topK,
		minScore: minScore,
		pool:     pool,
		logger:   logger,
	}
}

// Retrieve returns up to TopK candidates for the query vector, all tagged
// with exactly the required version and all scoring at or above the
// configured minimum, ordered by descending score. An empty result is a
// valid outcome (weak or absent evidence), not an error; callers refuse on
// it downstream. Ties keep the store's scan order, which is unspecified
// but stable for a given store implementation.
func (r *Retriever) Retrieve(ctx context.Context, queryVector []float32, requiredVersion string) ([]corpus.Candidate, error) {
	if requiredVersion == "" {
		return nil, ErrVersionRequired
	}

	// Pull a larger candidate set so threshold filtering doesn't starve
	// the final cap when many nearest-by-distance hits are weak.
	candidates, err := r.driver.Query(ctx, queryVector, requiredVersion, r.pool)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	strong := make([]corpus.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Score >= r.minScore {
			strong = append(strong, cand)
		}
	}

	// Stores return results ordered by similarity already; re-sorting
	// stably makes the descending-order contract hold regardless of
	// backend quirks without disturbing tie order.
	sort.SliceStable(strong, func(i, j int) bool {
		return strong[i].Score > strong[j].Score
	})

	if len(strong) > r.topK {
		strong = strong[:r.topK]
	}

	r.logger.Debug("retrieval complete",
		zap.String("version", requiredVersion),
		zap.Int("pool", r.pool),
		zap.Int("considered", len(candidates)),
		zap.Int("returned", len(strong)),
	)

	return strong, nil
}

// PoolSize reports the effective candidate pool, for observability fields.
func (r *Retriever) PoolSize() int {
	return r.pool
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
