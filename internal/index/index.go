package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/embedding"
	"github.com/kitabmazhab/kitab-agent/internal/knowledge"
)

// ErrIndexUnavailable reports that no generation has been built yet.
// Queries do not raise it; they return empty results. It exists for
// callers that must distinguish the state, like health reporting.
var ErrIndexUnavailable = errors.New("index unavailable: no generation built")

// Filters restricts a query to chunks whose metadata matches every
// key/value pair. Conjunctive only; an empty Filters matches everything.
type Filters map[string]string

// Entry is one chunk plus its embedding as handed to a Store.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]string
	Vector   []float32
}

// StoredChunk is a query hit with its raw vector distance.
type StoredChunk struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// Store holds one generation of embedded chunks. Replace swaps the
// entire generation atomically; queries against a store mid-Replace see
// either the old or the new generation, never a mix.
type Store interface {
	Replace(ctx context.Context, generation string, entries []Entry) error
	Query(ctx context.Context, vector []float32, k int, filters Filters) ([]StoredChunk, error)
	Count(ctx context.Context) (int, error)
}

const defaultBatchSize = 25

// Index owns the embedded chunk generation: it embeds chunk texts in
// batches and swaps the stored generation as a whole. Rebuilds are
// serialized; queries are safe concurrently with each other and with a
// rebuild.
type Index struct {
	embedder  embedding.Embedder
	store     Store
	batchSize int

	mu         sync.RWMutex
	generation string
}

func New(embedder embedding.Embedder, store Store) *Index {
	return &Index{
		embedder:  embedder,
		store:     store,
		batchSize: defaultBatchSize,
	}
}

// Rebuild embeds every chunk and replaces the stored generation.
// Any embedding failure aborts the whole rebuild before the store is
// touched, so the previous generation stays queryable. Returns the
// number of indexed chunks.
func (ix *Index) Rebuild(ctx context.Context, chunks []knowledge.Chunk) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	generation := uuid.New().String()
	entries := make([]Entry, 0, len(chunks))

	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, 0, len(batch))
		for _, chunk := range batch {
			texts = append(texts, chunk.Text)
		}

		vectors, err := ix.embedder.GenerateBatchEmbeddings(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch %d: %w", start/ix.batchSize+1, err)
		}

		for i, chunk := range batch {
			entries = append(entries, Entry{
				ID:       chunk.ID,
				Content:  chunk.Text,
				Metadata: chunk.Metadata.Map(),
				Vector:   vectors[i],
			})
		}
	}

	if err := ix.store.Replace(ctx, generation, entries); err != nil {
		return 0, fmt.Errorf("replace generation: %w", err)
	}

	ix.generation = generation

	log.Info().
		Str("generation", generation).
		Int("chunks", len(entries)).
		Msg("Index generation replaced")

	return len(entries), nil
}

type generationReporter interface {
	Generation(ctx context.Context) (string, error)
}

// Adopt marks the index built from a generation the store already holds,
// as after a restart against a durable store. Returns the adopted chunk
// count, zero when the store is empty.
func (ix *Index) Adopt(ctx context.Context) (int, error) {
	count, err := ix.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count stored chunks: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	generation := uuid.New().String()
	if reporter, ok := ix.store.(generationReporter); ok {
		if stored, err := reporter.Generation(ctx); err == nil && stored != "" {
			generation = stored
		}
	}

	ix.mu.Lock()
	ix.generation = generation
	ix.mu.Unlock()

	log.Info().
		Str("generation", generation).
		Int("chunks", count).
		Msg("Adopted stored index generation")

	return count, nil
}

// Query returns up to k nearest chunks matching every filter, closest
// first, ties broken by insertion order. An index that was never built
// returns an empty result, not an error.
func (ix *Index) Query(ctx context.Context, vector []float32, k int, filters Filters) ([]StoredChunk, error) {
	ix.mu.RLock()
	built := ix.generation != ""
	ix.mu.RUnlock()
	if !built {
		return nil, nil
	}
	return ix.store.Query(ctx, vector, k, filters)
}

// Ready reports whether a generation has been built.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.generation != ""
}

// Count returns the size of the current generation.
func (ix *Index) Count(ctx context.Context) (int, error) {
	if !ix.Ready() {
		return 0, ErrIndexUnavailable
	}
	return ix.store.Count(ctx)
}
