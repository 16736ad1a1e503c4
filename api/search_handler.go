package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/corpus"
	"github.com/papercomputeco/docent/pkg/llm"
)

// SearchHit is one retrieval result on the debug search endpoint.
type SearchHit struct {
	ChunkID  string  `json:"chunk_id"`
	Score    float32 `json:"score"`
	Citation string  `json:"citation"`
	Text     string  `json:"text"`

	// Blocked reports that the injection guard would discard this chunk
	// during context assembly.
	Blocked bool `json:"blocked,omitempty"`
}

// SearchResponse is the debug search endpoint's response body.
type SearchResponse struct {
	Query   string      `json:"query"`
	Version string      `json:"version"`
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// handleSearch handles GET /v1/search requests. It exposes the embed +
// retrieve stages without generation, for inspecting what evidence a
// question would be answered from.
// Query parameters:
//   - query (required): the search query text
//   - version (optional): corpus version override for inspection
func (s *Server) handleSearch(c *fiber.Ctx) error {
	if s.config.APIKey != "" && c.Get("X-API-Key") != s.config.APIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{
			Error: "unauthorized",
		})
	}

	if s.config.Embedder == nil || s.config.Retriever == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{
			Error: "search is not configured: embedder and retriever are required",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error: "query parameter is required",
		})
	}

	version := c.Query("version")
	if version == "" {
		version = s.config.CorpusVersion
	}

	embedding, err := s.config.Embedder.Embed(c.Context(), query)
	if err != nil {
		s.logger.Error("search embed failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{
			Error: "failed to embed query",
		})
	}

	candidates, err := s.config.Retriever.Retrieve(c.Context(), embedding, version)
	if err != nil {
		s.logger.Error("search retrieval failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{
			Error: "failed to query vector store",
		})
	}

	results := make([]SearchHit, 0, len(candidates))
	for _, cand := range candidates {
		blocked := false
		if s.config.Sanitizer != nil && s.config.Sanitizer.Sanitize(cand.Text) == "" {
			blocked = true
		}
		results = append(results, SearchHit{
			ChunkID:  cand.ID,
			Score:    cand.Score,
			Citation: corpus.FormatCitation(cand.Chunk),
			Text:     cand.Text,
			Blocked:  blocked,
		})
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Version: version,
		Results: results,
		Count:   len(results),
	})
}
