// Package answer drives the grounded-answer pipeline for one request:
// validate, embed, retrieve, assemble, prompt, generate, respond. The
// machine is strictly linear with early-exit failure branches; no state is
// revisited and no retries happen here (retry policy belongs to whatever
// transport calls the upstream providers).
package answer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/assemble"
	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/embeddings"
	"github.com/papercomputeco/docent/pkg/llm"
	"github.com/papercomputeco/docent/pkg/retriever"
)

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrQuestionTooLong is returned when the question exceeds the
	// configured maximum length.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrUnauthorized is returned when an API key is configured and the
	// caller's credential does not match.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstreamTimeout is returned when the embedding or generation
	// provider misses its deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstream is returned for any other embedding, retrieval, or
	// generation provider failure.
	ErrUpstream = errors.New("upstream failure")
)

// Refusal reason codes surfaced to callers on well-formed requests with
// insufficient or unsafe evidence.
const (
	ReasonEmptyRetrieval = "EMPTY_RETRIEVAL"
	ReasonContextBlocked = "CONTEXT_BLOCKED"
)

// Question is one inbound request.
type Question struct {
	// Text is the raw question.
	Text string

	// APIKey is the caller's shared-secret credential, if any.
	APIKey string
}

// Result is the response envelope for a completed request. A refusal is a
// Result with Refused set -- correct, expected behavior, not a fault.
type Result struct {
	RequestID      string   `json:"request_id"`
	LatencyMS      int64    `json:"latency_ms"`
	Model          string   `json:"model"`
	DocVersion     string   `json:"doc_version"`
	Answer         string   `json:"answer,omitempty"`
	Citations      []string `json:"citations,omitempty"`
	RetrievalCount int      `json:"retrieval_count"`

	// Refused reports that evidence was insufficient or unsafe.
	// RefusalReason carries the machine-readable reason code.
	Refused       bool   `json:"refused,omitempty"`
	RefusalReason string `json:"refusal_reason,omitempty"`
}

// Config holds the orchestrator's request-policy tunables.
type Config struct {
	// CorpusVersion is the required corpus version for every retrieval.
	CorpusVersion string

	// APIKey enables the shared-secret check when non-empty.
	APIKey string

	// MaxQuestionChars bounds inbound question length.
	MaxQuestionChars int

	// UpstreamTimeout bounds each outbound provider call.
	UpstreamTimeout time.Duration
}

// DefaultUpstreamTimeout bounds provider calls when none is configured.
const DefaultUpstreamTimeout = 20 * time.Second

// DefaultMaxQuestionChars bounds question length when none is configured.
const DefaultMaxQuestionChars = 2000

// Orchestrator sequences the pipeline components for each request. It
// holds no mutable state across requests; any number of Ask calls may run
// concurrently.
type Orchestrator struct {
	embedder  embeddings.Embedder
	retriever *retriever.Retriever
	assembler *assemble.Assembler
	generator llm.Generator
	config    Config
	logger    *zap.Logger
}

// New creates an Orchestrator over the given components.
func New(
	embedder embeddings.Embedder,
	retr *retriever.Retriever,
	assembler *assemble.Assembler,
	generator llm.Generator,
	config Config,
	logger *zap.Logger,
) *Orchestrator {
	if config.MaxQuestionChars <= 0 {
		config.MaxQuestionChars = DefaultMaxQuestionChars
	}
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = DefaultUpstreamTimeout
	}

	return &Orchestrator{
		embedder:  embedder,
		retriever: retr,
		assembler: assembler,
		generator: generator,
		config:    config,
		logger:    logger,
	}
}

// RequestID derives the per-request trace identifier from submission time
// and question text. Deterministic given its inputs; used only to
// correlate log lines for one request.
func RequestID(t0 time.Time, question string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", t0.UnixNano(), question)))
	return hex.EncodeToString(sum[:])[:12]
}

// Ask runs the full pipeline for one question. Validation failures and
// upstream faults come back as errors; refusals come back as a Result
// with Refused set. No upstream call is made once validation fails.
func (o *Orchestrator) Ask(ctx context.Context, q Question) (*Result, error) {
	t0 := time.Now()
	text := strings.TrimSpace(q.Text)
	requestID := RequestID(t0, text)

	log := o.logger.With(zap.String("request_id", requestID))

	// Validate
	if o.config.APIKey != "" && q.APIKey != o.config.APIKey {
		return nil, ErrUnauthorized
	}
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	if len(text) > o.config.MaxQuestionChars {
		return nil, fmt.Errorf("%w: %d > %d chars", ErrQuestionTooLong, len(text), o.config.MaxQuestionChars)
	}

	// Embed
	queryVector, err := o.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// Retrieve under the version authority constraint
	candidates, err := o.retrieve(ctx, queryVector)
	if err != nil {
		return nil, err
	}

	topScores := make([]float32, 0, len(candidates))
	for i, cand := range candidates {
		if i == 5 {
			break
		}
		topScores = append(topScores, cand.Score)
	}
	log.Info("retrieval summary",
		zap.Int("retrieval_count", len(candidates)),
		zap.Float32s("top_scores", topScores),
	)

	// Assemble
	evidence, err := o.assembler.Assemble(candidates)
	if err != nil {
		reason, refusal := refusalReason(err)
		if !refusal {
			return nil, fmt.Errorf("assembling context: %w", err)
		}

		log.Warn("refused",
			zap.String("reason", reason),
		)

		return &Result{
			RequestID:      requestID,
			LatencyMS:      time.Since(t0).Milliseconds(),
			Model:          o.generator.Model(),
			DocVersion:     o.config.CorpusVersion,
			RetrievalCount: len(candidates),
			Refused:        true,
			RefusalReason:  reason,
		}, nil
	}

	log.Info("context assembled",
		zap.Int("context_chars", evidence.Chars),
		zap.Int("citations", len(evidence.Citations)),
	)

	// Build prompt and generate
	prompt := BuildPrompt(evidence.Block, text)

	answerText, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &Result{
		RequestID:      requestID,
		LatencyMS:      time.Since(t0).Milliseconds(),
		Model:          o.generator.Model(),
		DocVersion:     o.config.CorpusVersion,
		Answer:         answerText,
		Citations:      evidence.Citations,
		RetrievalCount: len(candidates),
	}, nil
}

func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.config.UpstreamTimeout)
	defer cancel()

	vec, err := o.embedder.Embed(callCtx, text)
	if err != nil {
		if errors.Is(err, embeddings.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: embedding: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: embedding: %v", ErrUpstream, err)
	}
	return vec, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, queryVector []float32) ([]corpus.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.config.UpstreamTimeout)
	defer cancel()

	candidates, err := o.retriever.Retrieve(callCtx, queryVector, o.config.CorpusVersion)
	if err != nil {
		if errors.Is(err, retriever.ErrVersionRequired) {
			return nil, err
		}
		// Some store clients flatten the context error into their own
		// error types, so consult the call context as well.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: retrieval: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: retrieval: %v", ErrUpstream, err)
	}
	return candidates, nil
}

func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.config.UpstreamTimeout)
	defer cancel()

	text, err := o.generator.Generate(callCtx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: generation: %v", ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("%w: generation: %v", ErrUpstream, err)
	}
	return text, nil
}

// refusalReason maps assembler refusal sentinels to their reason codes.
func refusalReason(err error) (string, bool) {
	switch {
	case errors.Is(err, assemble.ErrEmptyRetrieval):
		return ReasonEmptyRetrieval, true
	case errors.Is(err, assemble.ErrContextBlocked):
		return ReasonContextBlocked, true
	default:
		return "", false
	}
}
