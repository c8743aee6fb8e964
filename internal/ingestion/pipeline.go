package ingestion

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/index"
	"github.com/kitabmazhab/kitab-agent/internal/knowledge"
)

// Pipeline loads a knowledge base file, chunks it and rebuilds the
// embedding index. A structural error or an embedding failure aborts
// the whole run, leaving any previously indexed generation in place.
type Pipeline struct {
	builder *knowledge.Builder
	index   *index.Index
}

func NewPipeline(builder *knowledge.Builder, ix *index.Index) *Pipeline {
	return &Pipeline{
		builder: builder,
		index:   ix,
	}
}

// IngestFile reads the JSON knowledge document at path and replaces the
// index generation with its chunks. Returns the indexed chunk count.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	log.Info().Str("file", path).Msg("Starting ingestion")

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}

	chunks, err := p.builder.BuildJSON(data)
	if err != nil {
		return 0, fmt.Errorf("failed to build chunks: %w", err)
	}
	log.Info().Int("chunk_count", len(chunks)).Msg("Knowledge base chunked")

	count, err := p.index.Rebuild(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild index: %w", err)
	}

	log.Info().Int("chunks", count).Msg("Ingestion complete")
	return count, nil
}
