// Package qdrantvec provides a Qdrant-backed vector driver. Chunk
// provenance travels in the point payload; the corpus version filter is a
// server-side payload match so version scoping happens before scoring.
package qdrantvec

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for corpus chunks.
	DefaultCollectionName = "docent"

	// DefaultPort is Qdrant's default gRPC port.
	DefaultPort = 6334
)

// Driver implements vector.Driver using Qdrant's gRPC client.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address as "host:port"; a bare host uses
	// DefaultPort.
	Target string

	// CollectionName is the collection to use. Defaults to
	// DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding dimension used when the collection has
	// to be created.
	Dimensions uint
}

// NewDriver connects to Qdrant and creates the collection if it does not
// exist.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("%w: qdrant target is required", vector.ErrConnection)
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing target %q: %v", vector.ErrConnection, c.Target, err)
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, collection, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: creating collection %q: %v", vector.ErrConnection, collection, err)
		}
	}

	logger.Info("connected to qdrant",
		zap.String("target", c.Target),
		zap.String("collection", collection),
	)

	return &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port in the target, use the default.
		return target, DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

// Add upserts chunks as Qdrant points keyed by chunk ID.
func (d *Driver) Add(ctx context.Context, chunks []corpus.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, ch := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(ch.ID),
			Vectors: qdrant.NewVectors(ch.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": ch.DocumentID,
				"source":      ch.Source,
				"section":     ch.Section,
				"page_start":  int64(ch.PageStart),
				"page_end":    int64(ch.PageEnd),
				"text":        ch.Text,
				"text_hash":   ch.TextHash,
				"version":     ch.Version,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting points: %v", vector.ErrConnection, err)
	}

	d.logger.Debug("added chunks to qdrant",
		zap.Int("count", len(chunks)),
	)

	return nil
}

// Query runs a similarity search with a server-side version match filter.
// Qdrant reports cosine similarity directly, so scores pass through.
func (d *Driver) Query(ctx context.Context, embedding []float32, version string, limit int) ([]corpus.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("version", version),
			},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		// Double-wrap so callers can still classify the cause, e.g. a
		// context deadline firing mid-query.
		return nil, fmt.Errorf("%w: querying collection: %w", vector.ErrConnection, err)
	}

	candidates := make([]corpus.Candidate, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		candidates = append(candidates, corpus.Candidate{
			Chunk: corpus.Chunk{
				ID:         p.GetId().GetUuid(),
				DocumentID: payload["document_id"].GetStringValue(),
				Source:     payload["source"].GetStringValue(),
				Section:    payload["section"].GetStringValue(),
				PageStart:  int(payload["page_start"].GetIntegerValue()),
				PageEnd:    int(payload["page_end"].GetIntegerValue()),
				Text:       payload["text"].GetStringValue(),
				TextHash:   payload["text_hash"].GetStringValue(),
				Version:    payload["version"].GetStringValue(),
			},
			Score: p.GetScore(),
		})
	}

	return candidates, nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
