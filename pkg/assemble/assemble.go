// Package assemble packs ranked, sanitized candidates into one bounded
// context block with a parallel citation list.
package assemble

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/sanitize"
)

// DefaultMaxChars is the default context character budget.
const DefaultMaxChars = 6000

var (
	// ErrEmptyRetrieval signals that retrieval produced nothing at all.
	// It is a refusal trigger, not a system fault.
	ErrEmptyRetrieval = errors.New("EMPTY_RETRIEVAL")

	// ErrContextBlocked signals that matches existed but every one was
	// discarded by the injection guard or none fit the budget. Also a
	// refusal trigger; callers distinguish it from ErrEmptyRetrieval for
	// observability even though both surface the same refusal.
	ErrContextBlocked = errors.New("CONTEXT_BLOCKED")
)

// Context is the assembled evidence for one request.
type Context struct {
	// Block is the serialized context text handed to the generation step.
	Block string

	// Citations are the provenance headers of the included chunks, in the
	// same order as their blocks.
	Citations []string

	// Chars is the serialized size of Block.
	Chars int
}

// Assembler builds bounded context blocks from ranked candidates.
type Assembler struct {
	maxChars  int
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
}

// New creates an Assembler with the given character budget and sanitizer.
// A non-positive budget falls back to DefaultMaxChars.
func New(maxChars int, sanitizer *sanitize.Sanitizer, logger *zap.Logger) *Assembler {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Assembler{
		maxChars:  maxChars,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Assemble walks candidates in relevance order, sanitizing each and
// packing formatted blocks until the character budget is reached. A chunk
// emptied by sanitization is skipped without ending the walk; hitting the
// budget ends it -- it never skips ahead to a smaller later candidate, so
// higher-relevance evidence always wins over volume.
func (a *Assembler) Assemble(candidates []corpus.Candidate) (*Context, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyRetrieval
	}

	var parts []string
	var citations []string
	total := 0
	blocked := 0

	for _, cand := range candidates {
		clean := a.sanitizer.Sanitize(cand.Text)
		if clean == "" {
			blocked++
			a.logger.Warn("chunk discarded by injection guard",
				zap.String("chunk_id", cand.ID),
				zap.String("source", cand.Source),
			)
			continue
		}

		header := corpus.FormatCitation(cand.Chunk)
		block := header + "\n" + clean + "\n"

		// Account for the joining newline so the serialized block never
		// exceeds the budget.
		sep := 0
		if len(parts) > 0 {
			sep = 1
		}
		if total+sep+len(block) > a.maxChars {
			break
		}

		parts = append(parts, block)
		total += sep + len(block)
		citations = append(citations, header)
	}

	// Everything was filtered by the injection guard or nothing fit the
	// budget; either way there is no safe evidence to answer from.
	if len(parts) == 0 {
		a.logger.Debug("context assembly produced nothing",
			zap.Int("candidates", len(candidates)),
			zap.Int("blocked", blocked),
		)
		return nil, ErrContextBlocked
	}

	return &Context{
		Block:     strings.Join(parts, "\n"),
		Citations: citations,
		Chars:     total,
	}, nil
}
