package search

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/index"
	"github.com/kitabmazhab/kitab-agent/internal/knowledge"
)

func TestMain(m *testing.M) {
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

const stubDimension = 32

// stubEmbedder produces deterministic bag-of-words vectors, so identical
// texts embed identically.
type stubEmbedder struct {
	fail bool
}

func (e *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedding backend down")
	}

	vector := make([]float32, stubDimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()%stubDimension]++
	}
	return vector, nil
}

func (e *stubEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := e.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func newTestService(t *testing.T, chunks []knowledge.Chunk) (*Service, *stubEmbedder) {
	t.Helper()
	embedder := &stubEmbedder{}
	ix := index.New(embedder, index.NewMemoryStore())
	if len(chunks) > 0 {
		if _, err := ix.Rebuild(context.Background(), chunks); err != nil {
			t.Fatalf("Rebuild() failed: %v", err)
		}
	}
	return NewService(ix, embedder), embedder
}

func TestSearch_ExactMatchScoresOne(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, []knowledge.Chunk{
		{ID: "chunk_0", Text: "hukum wudhu mazhab syafii", Metadata: knowledge.Metadata{School: "syafii", Category: "fiqih_wudhu"}},
		{ID: "chunk_1", Text: "biografi imam abu hanifah", Metadata: knowledge.Metadata{School: "hanafi", Category: "imam_biography"}},
	})

	results, err := service.Search(ctx, "hukum wudhu mazhab syafii", 5, "", "")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	top := results[0]
	if top.ChunkID != "chunk_0" {
		t.Errorf("Expected chunk_0 first, got %q", top.ChunkID)
	}
	if top.Score < 0.999 || top.Score > 1.0 {
		t.Errorf("Expected score 1.0 for identical text, got %f", top.Score)
	}
	if top.Rank != 1 {
		t.Errorf("Expected rank 1, got %d", top.Rank)
	}
	if top.Source != "fiqih_wudhu" {
		t.Errorf("Expected source from category, got %q", top.Source)
	}
	if results[1].Score > top.Score {
		t.Error("Expected descending score order")
	}
}

func TestSearch_SchoolFilter(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, []knowledge.Chunk{
		{ID: "chunk_0", Text: "hukum shalat", Metadata: knowledge.Metadata{School: "hanafi"}},
		{ID: "chunk_1", Text: "hukum shalat", Metadata: knowledge.Metadata{School: "maliki"}},
	})

	results, err := service.Search(ctx, "hukum shalat", 5, "Maliki", "")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "chunk_1" {
		t.Fatalf("Expected only the maliki chunk, got %v", results)
	}
}

func TestSearch_InvalidSchoolIgnored(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, []knowledge.Chunk{
		{ID: "chunk_0", Text: "hukum shalat", Metadata: knowledge.Metadata{School: "hanafi"}},
	})

	results, err := service.Search(ctx, "hukum shalat", 5, "zhahiri", "")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected unknown school to be ignored, got %d results", len(results))
	}
}

func TestContextFor_Format(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, []knowledge.Chunk{
		{ID: "chunk_0", Text: "hukum zakat mazhab hanbali", Metadata: knowledge.Metadata{School: "hanbali", Category: "fiqih_zakat"}},
	})

	got := service.ContextFor(ctx, "hukum zakat mazhab hanbali", 3, "")

	want := "[Sumber 1] (Relevansi: 1.00)\nhukum zakat mazhab hanbali"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestContextFor_MultipleSourcesDelimited(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, []knowledge.Chunk{
		{ID: "chunk_0", Text: "hukum puasa ramadhan"},
		{ID: "chunk_1", Text: "hukum puasa sunnah"},
	})

	got := service.ContextFor(ctx, "hukum puasa", 2, "")

	if !strings.Contains(got, "[Sumber 1]") || !strings.Contains(got, "[Sumber 2]") {
		t.Errorf("Expected numbered sources, got %q", got)
	}
	if !strings.Contains(got, "\n\n---\n\n") {
		t.Errorf("Expected delimiter between sources, got %q", got)
	}
}

func TestContextFor_EmptyIndexReturnsSentinel(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, nil)

	got := service.ContextFor(ctx, "hukum wudhu", 5, "")
	if got != NoInformationFound {
		t.Errorf("Expected sentinel %q, got %q", NoInformationFound, got)
	}
}

func TestContextFor_EmbedderFailureReturnsSentinel(t *testing.T) {
	ctx := context.Background()
	service, embedder := newTestService(t, []knowledge.Chunk{
		{ID: "chunk_0", Text: "hukum wudhu"},
	})
	embedder.fail = true

	got := service.ContextFor(ctx, "hukum wudhu", 5, "")
	if got != NoInformationFound {
		t.Errorf("Expected sentinel on embedder failure, got %q", got)
	}
}

func TestDistanceToScore(t *testing.T) {
	service := &Service{}

	cases := []struct {
		distance float64
		want     float64
	}{
		{0.0, 1.0},
		{1.0, 0.5},
		{3.0, 0.25},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("distance_%v", tc.distance), func(t *testing.T) {
			got := service.DistanceToScore(tc.distance)
			if got != tc.want {
				t.Errorf("DistanceToScore(%v) = %v, want %v", tc.distance, got, tc.want)
			}
		})
	}
}
