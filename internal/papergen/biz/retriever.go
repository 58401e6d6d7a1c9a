package biz

import (
	"context"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/papergen/internal/papergen/store"
	"github.com/kart-io/papergen/pkg/llm"
)

// RetrieverConfig tunes hybrid search and rank fusion.
type RetrieverConfig struct {
	TopK         int
	RRFK         int
	VectorWeight float64
	BM25Weight   float64
}

// Retriever runs hybrid lexical+semantic search over the content store
// and fuses the two rankings with Reciprocal Rank Fusion.
//
// Retrieval never fails a caller: an unreachable store yields an empty
// ranking and an embedding failure degrades to lexical-only search.
type Retriever struct {
	content  store.ContentStore
	embedder llm.EmbeddingProvider
	cfg      RetrieverConfig
}

// NewRetriever creates a Retriever. embedder may be nil, in which case
// every search is lexical-only.
func NewRetriever(content store.ContentStore, embedder llm.EmbeddingProvider, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = 60
	}
	return &Retriever{content: content, embedder: embedder, cfg: cfg}
}

// Search returns the fused ranking for the query, best-first.
func (r *Retriever) Search(ctx context.Context, query string, filters store.SearchFilters) []store.SearchResult {
	vectorWeight := r.cfg.VectorWeight
	bm25Weight := r.cfg.BM25Weight

	var embedding []float32
	if r.embedder != nil && vectorWeight != 0 {
		var err error
		embedding, err = r.embedder.EmbedSingle(ctx, query)
		if err != nil {
			logger.Warnw("embedding failed, degrading to lexical-only search", "error", err)
			embedding = nil
		}
	}
	if len(embedding) == 0 {
		vectorWeight = 0
	}

	lexical, err := r.content.LexicalSearch(ctx, query, filters, r.cfg.TopK)
	if err != nil {
		logger.Warnw("lexical search failed", "error", err)
		lexical = nil
	}

	var vector []store.SearchResult
	if len(embedding) > 0 {
		vector, err = r.content.VectorSearch(ctx, embedding, filters, r.cfg.TopK)
		if err != nil {
			logger.Warnw("vector search failed", "error", err)
			vector = nil
		}
	}

	return FuseRankings(lexical, vector, bm25Weight, vectorWeight, r.cfg.RRFK)
}

// NormalizeWeights scales the pair to sum to 1. A (0, 0) pair becomes
// (0.5, 0.5) so fusion always has a defined weighting.
func NormalizeWeights(bm25Weight, vectorWeight float64) (float64, float64) {
	sum := bm25Weight + vectorWeight
	if sum == 0 {
		return 0.5, 0.5
	}
	return bm25Weight / sum, vectorWeight / sum
}

// FuseRankings merges a lexical and a vector ranking with Reciprocal Rank
// Fusion: score = bm25_w/(k+rank_lex) + vector_w/(k+rank_vec). A chunk
// absent from one ranking is assigned rank len(ranking)+1, penalizing it
// without excluding it. The fused list is sorted by descending score;
// ties keep first-seen order (lexical results before vector-only ones).
func FuseRankings(lexical, vector []store.SearchResult, bm25Weight, vectorWeight float64, k int) []store.SearchResult {
	if k <= 0 {
		k = 60
	}
	bm25Weight, vectorWeight = NormalizeWeights(bm25Weight, vectorWeight)

	absentLexical := len(lexical) + 1
	absentVector := len(vector) + 1

	type entry struct {
		result      store.SearchResult
		lexicalRank int
		vectorRank  int
	}
	order := make([]string, 0, len(lexical)+len(vector))
	entries := make(map[string]*entry, len(lexical)+len(vector))

	add := func(res store.SearchResult, lexRank, vecRank int) {
		key := chunkKey(res.Chunk)
		e, ok := entries[key]
		if !ok {
			e = &entry{result: res, lexicalRank: absentLexical, vectorRank: absentVector}
			entries[key] = e
			order = append(order, key)
		}
		if lexRank > 0 {
			e.lexicalRank = lexRank
		}
		if vecRank > 0 {
			e.vectorRank = vecRank
		}
	}

	for i, res := range lexical {
		add(res, i+1, 0)
	}
	for i, res := range vector {
		add(res, 0, i+1)
	}

	fused := make([]store.SearchResult, 0, len(order))
	for _, key := range order {
		e := entries[key]
		score := bm25Weight/float64(k+e.lexicalRank) + vectorWeight/float64(k+e.vectorRank)
		res := e.result
		res.Score = score
		res.LexicalRank = 0
		res.VectorRank = 0
		if e.lexicalRank < absentLexical {
			res.LexicalRank = e.lexicalRank
		}
		if e.vectorRank < absentVector {
			res.VectorRank = e.vectorRank
		}
		fused = append(fused, res)
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}

func chunkKey(c store.Chunk) string {
	if c.ID != "" {
		return c.ID
	}
	return c.Text
}
