// Package ingest loads pre-chunked corpus records into the vector store.
// Document parsing, page cleanup, and text splitting happen upstream; this
// loader consumes already-chunked text (one JSON record per line),
// normalizes it, dedups by content hash, embeds it, and writes it under a
// single corpus version. Chunks are immutable once written.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/embeddings"
	"github.com/papercomputeco/docent/pkg/vector"
)

const (
	// DefaultMaxChunkChars guards against oversized records polluting the
	// context downstream.
	DefaultMaxChunkChars = 20000

	// DefaultBatchSize is how many chunks are written to the store at once.
	DefaultBatchSize = 32

	// maxLineBytes bounds a single JSONL record.
	maxLineBytes = 1 << 20
)

// ErrNoRecords is returned when the input contains no usable chunks.
var ErrNoRecords = errors.New("no ingestable records found")

// Record is one pre-chunked span of a source document.
type Record struct {
	Source    string `json:"source"`
	Section   string `json:"section"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Text      string `json:"text"`
}

// Stats summarizes one ingestion run.
type Stats struct {
	Documents int
	Chunks    int
	Skipped   int
}

// Config holds ingestion tunables.
type Config struct {
	// Version is the corpus version tag written to every chunk.
	Version string

	// MaxChunkChars truncates oversized records. Defaults to
	// DefaultMaxChunkChars if zero.
	MaxChunkChars int

	// BatchSize is the store write batch size. Defaults to
	// DefaultBatchSize if zero.
	BatchSize int
}

// Loader embeds and stores chunk records.
type Loader struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	config   Config
	logger   *zap.Logger
}

// NewLoader creates a Loader writing under the configured corpus version.
func NewLoader(embedder embeddings.Embedder, driver vector.Driver, config Config, logger *zap.Logger) (*Loader, error) {
	if config.Version == "" {
		return nil, corpus.ErrEmptyVersion
	}
	if config.MaxChunkChars <= 0 {
		config.MaxChunkChars = DefaultMaxChunkChars
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	return &Loader{
		embedder: embedder,
		driver:   driver,
		config:   config,
		logger:   logger,
	}, nil
}

// LoadFile ingests a JSONL chunk file from disk.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk file: %w", err)
	}
	defer f.Close()

	return l.Load(ctx, f)
}

// Load ingests JSONL chunk records from r: one Record per line, blank
// lines skipped. Records are deduped by content hash within the run, each
// distinct source gets one document ID, and chunks are embedded and
// written in batches.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Stats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	stats := &Stats{}
	seen := make(map[string]bool)
	docIDs := make(map[string]string)
	var batch []corpus.Chunk

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("parsing record on line %d: %w", line, err)
		}

		text := normalizeText(rec.Text)
		if text == "" {
			stats.Skipped++
			continue
		}

		if len(text) > l.config.MaxChunkChars {
			l.logger.Warn("record too large, truncating",
				zap.Int("line", line),
				zap.Int("chars", len(text)),
			)
			text = text[:l.config.MaxChunkChars]
		}

		// Dedup guard: skip content already seen this run (reingests of
		// the same page produce identical hashes).
		hash := corpus.HashText(text)
		if seen[hash] {
			stats.Skipped++
			continue
		}
		seen[hash] = true

		docID, ok := docIDs[rec.Source]
		if !ok {
			docID = uuid.NewString()
			docIDs[rec.Source] = docID
		}

		chunk := corpus.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Source:     rec.Source,
			Section:    rec.Section,
			PageStart:  rec.PageStart,
			PageEnd:    rec.PageEnd,
			Text:       text,
			TextHash:   hash,
			Version:    l.config.Version,
		}
		if err := chunk.Validate(); err != nil {
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}

		embedding, err := l.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding record on line %d: %w", line, err)
		}
		chunk.Embedding = embedding

		batch = append(batch, chunk)
		if len(batch) >= l.config.BatchSize {
			if err := l.flush(ctx, batch); err != nil {
				return nil, err
			}
			stats.Chunks += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk file: %w", err)
	}

	if len(batch) > 0 {
		if err := l.flush(ctx, batch); err != nil {
			return nil, err
		}
		stats.Chunks += len(batch)
	}

	stats.Documents = len(docIDs)
	if stats.Chunks == 0 {
		return nil, ErrNoRecords
	}

	l.logger.Info("ingestion complete",
		zap.String("version", l.config.Version),
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", stats.Skipped),
	)

	return stats, nil
}

func (l *Loader) flush(ctx context.Context, batch []corpus.Chunk) error {
	chunks := make([]corpus.Chunk, len(batch))
	copy(chunks, batch)
	if err := l.driver.Add(ctx, chunks); err != nil {
		return fmt.Errorf("storing chunk batch: %w", err)
	}
	return nil
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// normalizeText collapses whitespace runs and strips NUL bytes.
func normalizeText(t string) string {
	t = strings.ReplaceAll(t, "\x00", " ")
	t = spaceRuns.ReplaceAllString(t, " ")
	t = newlineRuns.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}
