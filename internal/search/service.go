package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/embedding"
	"github.com/kitabmazhab/kitab-agent/internal/index"
	"github.com/kitabmazhab/kitab-agent/internal/knowledge"
)

// NoInformationFound is returned by ContextFor when nothing relevant is
// indexed. Callers rely on the exact string as an is-empty sentinel.
const NoInformationFound = "Tidak ditemukan informasi yang relevan dalam database."

// contextDelimiter separates formatted context entries.
const contextDelimiter = "\n\n---\n\n"

// Service is the retrieval facade: it embeds query text, queries the
// index with metadata filters and converts distances to bounded
// relevance scores.
type Service struct {
	index    *index.Index
	embedder embedding.Embedder
}

func NewService(ix *index.Index, embedder embedding.Embedder) *Service {
	return &Service{
		index:    ix,
		embedder: embedder,
	}
}

// Search returns up to topK results ranked by relevance, highest score
// first. school and category are optional equality filters; an invalid
// school name is ignored rather than producing an always-empty filter.
func (s *Service) Search(ctx context.Context, query string, topK int, school, category string) ([]SearchResult, error) {
	vector, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Unable to generate embeddings. Error: %w", err)
	}

	filters := index.Filters{}
	if school = strings.ToLower(strings.TrimSpace(school)); school != "" && knowledge.IsValidSchool(school) {
		filters["school"] = school
	}
	if category != "" {
		filters["category"] = category
	}

	chunks, err := s.index.Query(ctx, vector, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("Unable to run semantic search on the index. Error: %w", err)
	}

	var searchResults []SearchResult
	for i, chunk := range chunks {
		searchResults = append(searchResults, SearchResult{
			ChunkID:  chunk.ID,
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
			Score:    s.DistanceToScore(chunk.Distance),
			Rank:     i + 1, // Position of the chunk in the result
			Source:   source(chunk.Metadata),
		})
	}

	return searchResults, nil
}

// ContextFor renders the top results as model-ready context: a numbered
// list, each entry prefixed with its relevance score, in descending
// score order. Retrieval errors and empty results both collapse to the
// NoInformationFound sentinel so a conversation never crashes on them.
func (s *Service) ContextFor(ctx context.Context, query string, topK int, school string) string {
	results, err := s.Search(ctx, query, topK, school, "")
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Context retrieval failed")
		return NoInformationFound
	}

	if len(results) == 0 {
		return NoInformationFound
	}

	parts := make([]string, 0, len(results))
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("[Sumber %d] (Relevansi: %.2f)\n%s", i+1, result.Score, result.Content))
	}

	return strings.Join(parts, contextDelimiter)
}

// DistanceToScore converts a vector distance to a similarity score in
// (0, 1]: identical vectors score 1.0 and the score decreases
// monotonically with distance.
func (s *Service) DistanceToScore(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

func source(metadata map[string]string) string {
	if category, ok := metadata["category"]; ok && category != "" {
		return category
	}
	return "unknown"
}
