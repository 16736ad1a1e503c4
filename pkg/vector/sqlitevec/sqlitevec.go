// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// Chunk metadata lives in a regular table; vec0 virtual tables use
	// integer rowids, so the mapping table's rowid joins the two.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			document_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			section TEXT NOT NULL DEFAULT '',
			page_start INTEGER NOT NULL DEFAULT 0,
			page_end INTEGER NOT NULL DEFAULT 0,
			text TEXT NOT NULL,
			text_hash TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	// vec0 virtual table for vector storage and KNN queries, cosine
	// distance so scores convert to similarity as 1 - distance.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add stores chunks with their embeddings.
// If a chunk with the same ID already exists, it is updated.
func (d *Driver) Add(ctx context.Context, chunks []corpus.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrConnection, err)
	}
	defer tx.Rollback()

	for _, ch := range chunks {
		embBlob := serializeFloat32(ch.Embedding)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, ch.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_chunks SET
					document_id = ?, source = ?, section = ?,
					page_start = ?, page_end = ?, text = ?, text_hash = ?, version = ?
				 WHERE rowid = ?`,
				ch.DocumentID, ch.Source, ch.Section,
				ch.PageStart, ch.PageEnd, ch.Text, ch.TextHash, ch.Version,
				existingRowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", ch.ID, err)
			}

			// vec0 does not support UPDATE, replace via DELETE + INSERT
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", ch.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for chunk %s: %w", ch.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks
					(chunk_id, document_id, source, section, page_start, page_end, text, text_hash, version)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ch.ID, ch.DocumentID, ch.Source, ch.Section,
				ch.PageStart, ch.PageEnd, ch.Text, ch.TextHash, ch.Version,
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", ch.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", ch.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for chunk %s: %w", ch.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added chunks to sqlite-vec",
		zap.Int("count", len(chunks)),
	)

	return nil
}

// Query finds the limit most similar chunks for one corpus version.
// The KNN pass runs first (vec0 MATCH with k = limit), then the version
// filter applies on the join; callers compensate by requesting an
// oversampled candidate pool.
func (d *Driver) Query(ctx context.Context, embedding []float32, version string, limit int) ([]corpus.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	queryBlob := serializeFloat32(embedding)

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			c.document_id,
			c.source,
			c.section,
			c.page_start,
			c.page_end,
			c.text,
			c.text_hash,
			c.version,
			e.distance
		FROM vec_embeddings e
		JOIN vec_chunks c ON c.rowid = e.rowid
		WHERE e.embedding MATCH ? AND k = ?
		  AND c.version = ?
		ORDER BY e.distance`,
		queryBlob, limit, version,
	)
	if err != nil {
		// Double-wrap so callers can still classify the cause, e.g. a
		// context deadline firing mid-query.
		return nil, fmt.Errorf("%w: querying embeddings: %w", vector.ErrConnection, err)
	}
	defer rows.Close()

	var candidates []corpus.Candidate
	for rows.Next() {
		var cand corpus.Candidate
		var distance float64
		if err := rows.Scan(
			&cand.ID,
			&cand.DocumentID,
			&cand.Source,
			&cand.Section,
			&cand.PageStart,
			&cand.PageEnd,
			&cand.Text,
			&cand.TextHash,
			&cand.Version,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		cand.Score = float32(1 - distance)
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading result rows: %w", err)
	}

	return candidates, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
