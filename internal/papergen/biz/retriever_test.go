package biz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/papergen/biz"
	"github.com/kart-io/papergen/internal/papergen/store"
)

func chunkResults(ids ...string) []store.SearchResult {
	out := make([]store.SearchResult, 0, len(ids))
	for i, id := range ids {
		out = append(out, store.SearchResult{
			Chunk:       store.Chunk{ID: id, Text: "text " + id},
			LexicalRank: i + 1,
		})
	}
	return out
}

func TestNormalizeWeights(t *testing.T) {
	tests := []struct {
		name       string
		bm25       float64
		vector     float64
		wantBM25   float64
		wantVector float64
	}{
		{"already normalized", 0.5, 0.5, 0.5, 0.5},
		{"unnormalized", 2, 6, 0.25, 0.75},
		{"both zero", 0, 0, 0.5, 0.5},
		{"lexical only", 1, 0, 1, 0},
		{"vector only", 0, 3, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm25, vector := biz.NormalizeWeights(tt.bm25, tt.vector)
			assert.InDelta(t, tt.wantBM25, bm25, 1e-9)
			assert.InDelta(t, tt.wantVector, vector, 1e-9)
			assert.InDelta(t, 1.0, bm25+vector, 1e-9)
		})
	}
}

func TestFuseRankingsMatchesManualComputation(t *testing.T) {
	// a appears in both rankings, b only lexical, c only vector.
	lexical := chunkResults("a", "b")
	vector := []store.SearchResult{
		{Chunk: store.Chunk{ID: "c", Text: "text c"}, VectorRank: 1},
		{Chunk: store.Chunk{ID: "a", Text: "text a"}, VectorRank: 2},
	}

	const k = 60
	fused := biz.FuseRankings(lexical, vector, 0.5, 0.5, k)
	require.Len(t, fused, 3)

	scores := make(map[string]float64, len(fused))
	for _, r := range fused {
		scores[r.Chunk.ID] = r.Score
	}

	// Absent ranks are len(ranking)+1 = 3.
	assert.InDelta(t, 0.5/(k+1)+0.5/(k+2), scores["a"], 1e-12)
	assert.InDelta(t, 0.5/(k+2)+0.5/(k+3), scores["b"], 1e-12)
	assert.InDelta(t, 0.5/(k+3)+0.5/(k+1), scores["c"], 1e-12)

	// Descending by fused score.
	assert.Equal(t, "a", fused[0].Chunk.ID)
	for i := 1; i < len(fused); i++ {
		assert.GreaterOrEqual(t, fused[i-1].Score, fused[i].Score)
	}
}

func TestFuseRankingsStableTieBreak(t *testing.T) {
	// Two disjoint single-entry rankings with equal weights tie exactly;
	// the lexical entry was seen first and must stay first.
	lexical := chunkResults("first")
	vector := []store.SearchResult{
		{Chunk: store.Chunk{ID: "second", Text: "text second"}, VectorRank: 1},
	}

	fused := biz.FuseRankings(lexical, vector, 1, 1, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, "first", fused[0].Chunk.ID)
	assert.Equal(t, "second", fused[1].Chunk.ID)
}

func TestSearchDegradesToLexicalOnEmbeddingFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.AddChunks(
		store.Chunk{ID: "1", Text: "the grumble family poem about grumbling", Unit: 2, LessonType: "poetry"},
		store.Chunk{ID: "2", Text: "a family that grumbles at everything", Unit: 2, LessonType: "poetry"},
		store.Chunk{ID: "3", Text: "completely unrelated prose lesson", Unit: 5, LessonType: "prose"},
	)

	cfg := biz.RetrieverConfig{TopK: 10, RRFK: 60, VectorWeight: 0.5, BM25Weight: 0.5}
	degraded := biz.NewRetriever(mem, failingEmbedder, cfg)
	lexicalOnly := biz.NewRetriever(mem, nil, biz.RetrieverConfig{TopK: 10, RRFK: 60, BM25Weight: 1})

	filters := store.SearchFilters{Unit: 2}
	got := degraded.Search(context.Background(), "grumble family", filters)
	want := lexicalOnly.Search(context.Background(), "grumble family", filters)

	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Chunk.ID, got[i].Chunk.ID)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-12)
	}
}

type unavailableStore struct{}

func (unavailableStore) LexicalSearch(context.Context, string, store.SearchFilters, int) ([]store.SearchResult, error) {
	return nil, errors.New("store unreachable")
}

func (unavailableStore) VectorSearch(context.Context, []float32, store.SearchFilters, int) ([]store.SearchResult, error) {
	return nil, errors.New("store unreachable")
}

func TestSearchReturnsEmptyWhenStoreUnavailable(t *testing.T) {
	r := biz.NewRetriever(unavailableStore{}, fixedEmbedder([]float32{1, 0}), biz.RetrieverConfig{})
	results := r.Search(context.Background(), "anything", store.SearchFilters{})
	assert.Empty(t, results)
}
