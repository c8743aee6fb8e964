package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store using brute-force cosine distance.
// It backs unit tests and single-process deployments that reload the
// knowledge base at startup.
type MemoryStore struct {
	mu         sync.RWMutex
	generation string
	dimension  int
	entries    []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Replace(ctx context.Context, generation string, entries []Entry) error {
	dimension := 0
	for i, entry := range entries {
		if i == 0 {
			dimension = len(entry.Vector)
		}
		if len(entry.Vector) != dimension {
			return fmt.Errorf("entry %s: vector dimension %d, want %d", entry.ID, len(entry.Vector), dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = generation
	s.dimension = dimension
	s.entries = entries
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int, filters Filters) ([]StoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension %d, want %d", len(vector), s.dimension)
	}

	type scored struct {
		ord      int
		distance float64
	}

	var hits []scored
	for i, entry := range s.entries {
		if !matches(entry.Metadata, filters) {
			continue
		}
		hits = append(hits, scored{ord: i, distance: cosineDistance(vector, entry.Vector)})
	}

	// SliceStable keeps insertion order for equal distances.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].distance < hits[j].distance
	})

	if k > len(hits) {
		k = len(hits)
	}

	results := make([]StoredChunk, 0, k)
	for _, hit := range hits[:k] {
		entry := s.entries[hit.ord]
		results = append(results, StoredChunk{
			ID:       entry.ID,
			Content:  entry.Content,
			Metadata: entry.Metadata,
			Distance: hit.distance,
		})
	}
	return results, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func matches(metadata map[string]string, filters Filters) bool {
	for key, want := range filters {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

// cosineDistance is 1 - cosine similarity, in [0, 2]. Zero-norm vectors
// are treated as maximally distant from everything.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	// Cancellation can push identical vectors slightly below zero.
	if d < 0 {
		d = 0
	}
	return d
}
