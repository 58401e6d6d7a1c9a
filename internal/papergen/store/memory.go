package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/papergen/internal/model"
	jsonutil "github.com/kart-io/papergen/pkg/utils/json"
)

// MemoryStore is an in-memory implementation of ContentStore, PaperStore,
// and RevisionStore. It backs local runs and tests; the lexical ranking is
// a term-overlap score, not full BM25, which is sufficient for fusion.
type MemoryStore struct {
	mu        sync.RWMutex
	chunks    []Chunk
	papers    map[string]*model.Paper
	revisions map[string][]model.RevisionRecord
}

var (
	_ ContentStore  = (*MemoryStore)(nil)
	_ PaperStore    = (*MemoryStore)(nil)
	_ RevisionStore = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		papers:    make(map[string]*model.Paper),
		revisions: make(map[string][]model.RevisionRecord),
	}
}

// AddChunks loads content chunks into the store.
func (s *MemoryStore) AddChunks(chunks ...Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
}

// LexicalSearch ranks chunks by shared-term count with the query.
func (s *MemoryStore) LexicalSearch(_ context.Context, query string, filters SearchFilters, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		chunk Chunk
		score float64
	}
	var matches []scored
	for _, c := range s.chunks {
		if !matchFilters(c, filters) {
			continue
		}
		text := strings.ToLower(c.Text)
		score := 0.0
		for _, t := range terms {
			score += float64(strings.Count(text, t))
		}
		if score > 0 {
			matches = append(matches, scored{chunk: c, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]SearchResult, 0, len(matches))
	for i, m := range matches {
		out = append(out, SearchResult{Chunk: m.chunk, Score: m.score, LexicalRank: i + 1})
	}
	return out, nil
}

// VectorSearch ranks chunks by cosine similarity to the embedding.
func (s *MemoryStore) VectorSearch(_ context.Context, embedding []float32, filters SearchFilters, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(embedding) == 0 {
		return nil, nil
	}

	type scored struct {
		chunk Chunk
		score float64
	}
	var matches []scored
	for _, c := range s.chunks {
		if !matchFilters(c, filters) || len(c.Embedding) != len(embedding) {
			continue
		}
		sim := cosine(embedding, c.Embedding)
		matches = append(matches, scored{chunk: c, score: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]SearchResult, 0, len(matches))
	for i, m := range matches {
		out = append(out, SearchResult{Chunk: m.chunk, Score: m.score, VectorRank: i + 1})
	}
	return out, nil
}

// SavePaper stores a snapshot of the paper keyed by its id. Later
// mutations of the caller's paper do not reach the stored copy.
func (s *MemoryStore) SavePaper(_ context.Context, paper *model.Paper) error {
	cp, err := clonePaper(paper)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.papers[paper.ID] = cp
	return nil
}

// GetPaper fetches a snapshot of a paper by id.
func (s *MemoryStore) GetPaper(_ context.Context, id string) (*model.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.papers[id]
	if !ok {
		return nil, ErrPaperNotFound
	}
	return clonePaper(p)
}

// AppendRevision appends one revision record to the paper's history.
func (s *MemoryStore) AppendRevision(_ context.Context, rec *model.RevisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions[rec.PaperID] = append(s.revisions[rec.PaperID], *rec)
	return nil
}

// ListRevisions returns the paper's revision history in append order.
func (s *MemoryStore) ListRevisions(_ context.Context, paperID string) ([]model.RevisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.revisions[paperID]
	out := make([]model.RevisionRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// clonePaper deep-copies a paper through a JSON round-trip, the same
// isolation a document store gives.
func clonePaper(p *model.Paper) (*model.Paper, error) {
	raw, err := jsonutil.Marshal(p)
	if err != nil {
		return nil, err
	}
	var cp model.Paper
	if err := jsonutil.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func matchFilters(c Chunk, f SearchFilters) bool {
	if f.Unit != 0 && c.Unit != f.Unit {
		return false
	}
	if f.Topic != "" && !strings.EqualFold(c.Topic, f.Topic) {
		return false
	}
	if f.LessonType != "" && !strings.EqualFold(c.LessonType, f.LessonType) {
		return false
	}
	return true
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
