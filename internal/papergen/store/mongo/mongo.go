// Package mongo implements the content, paper, and revision stores on
// MongoDB. Lexical ranking uses Atlas Search ($search) and semantic
// ranking uses Atlas Vector Search ($vectorSearch), with a knnBeta
// fallback for clusters that predate the dedicated stage.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"
	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/store"
	"github.com/kart-io/papergen/pkg/component/mongodb"
)

// Collection names.
const (
	chunksCollection    = "textbook_chunks"
	papersCollection    = "papers"
	revisionsCollection = "revisions"
)

// Store implements store.ContentStore, store.PaperStore, and
// store.RevisionStore on a MongoDB database.
type Store struct {
	chunks    *mongodrv.Collection
	papers    *mongodrv.Collection
	revisions *mongodrv.Collection

	searchIndex string
	vectorIndex string
}

var (
	_ store.ContentStore  = (*Store)(nil)
	_ store.PaperStore    = (*Store)(nil)
	_ store.RevisionStore = (*Store)(nil)
)

// Config holds store-specific settings beyond the client connection.
type Config struct {
	// SearchIndex is the Atlas Search index name for lexical queries.
	SearchIndex string
	// VectorIndex is the Atlas Vector Search index name.
	VectorIndex string
}

// New creates a Store on the client's default database.
func New(client *mongodb.Client, cfg Config) *Store {
	if cfg.SearchIndex == "" {
		cfg.SearchIndex = "default"
	}
	if cfg.VectorIndex == "" {
		cfg.VectorIndex = "vector_index"
	}
	db := client.Database()
	return &Store{
		chunks:      db.Collection(chunksCollection),
		papers:      db.Collection(papersCollection),
		revisions:   db.Collection(revisionsCollection),
		searchIndex: cfg.SearchIndex,
		vectorIndex: cfg.VectorIndex,
	}
}

// LexicalSearch runs an Atlas Search text query over chunk text.
func (s *Store) LexicalSearch(ctx context.Context, query string, filters store.SearchFilters, limit int) ([]store.SearchResult, error) {
	if query == "" {
		return nil, nil
	}

	pipeline := []bson.M{
		{"$search": bson.M{
			"index": s.searchIndex,
			"text": bson.M{
				"query": query,
				"path":  "text",
			},
		}},
	}
	if match := filterDoc(filters); len(match) > 0 {
		pipeline = append(pipeline, bson.M{"$match": match})
	}
	pipeline = append(pipeline,
		bson.M{"$limit": limit},
		bson.M{"$addFields": bson.M{"search_score": bson.M{"$meta": "searchScore"}}},
	)

	return s.runSearch(ctx, pipeline, true)
}

// VectorSearch runs an Atlas Vector Search query over chunk embeddings.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, filters store.SearchFilters, limit int) ([]store.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	queryVector := make([]float64, len(embedding))
	for i, v := range embedding {
		queryVector[i] = float64(v)
	}

	stage := bson.M{
		"index":         s.vectorIndex,
		"path":          "embedding",
		"queryVector":   queryVector,
		"numCandidates": limit * 10,
		"limit":         limit,
	}
	if match := filterDoc(filters); len(match) > 0 {
		stage["filter"] = match
	}

	pipeline := []bson.M{
		{"$vectorSearch": stage},
		{"$addFields": bson.M{"search_score": bson.M{"$meta": "vectorSearchScore"}}},
	}

	results, err := s.runSearch(ctx, pipeline, false)
	if err != nil {
		logger.Warnw("vectorSearch stage failed, falling back to knnBeta", "error", err)
		return s.knnBetaSearch(ctx, queryVector, filters, limit)
	}
	return results, nil
}

// knnBetaSearch is the legacy Atlas vector query for pre-$vectorSearch
// clusters.
func (s *Store) knnBetaSearch(ctx context.Context, queryVector []float64, filters store.SearchFilters, limit int) ([]store.SearchResult, error) {
	pipeline := []bson.M{
		{"$search": bson.M{
			"index": s.vectorIndex,
			"knnBeta": bson.M{
				"vector": queryVector,
				"path":   "embedding",
				"k":      limit,
			},
		}},
	}
	if match := filterDoc(filters); len(match) > 0 {
		pipeline = append(pipeline, bson.M{"$match": match})
	}
	pipeline = append(pipeline,
		bson.M{"$limit": limit},
		bson.M{"$addFields": bson.M{"search_score": bson.M{"$meta": "searchScore"}}},
	)
	return s.runSearch(ctx, pipeline, false)
}

type chunkDoc struct {
	store.Chunk `bson:",inline"`
	SearchScore float64 `bson:"search_score"`
}

func (s *Store) runSearch(ctx context.Context, pipeline []bson.M, lexical bool) ([]store.SearchResult, error) {
	cursor, err := s.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("chunk search: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []chunkDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("chunk search decode: %w", err)
	}

	out := make([]store.SearchResult, 0, len(docs))
	for i, d := range docs {
		r := store.SearchResult{Chunk: d.Chunk, Score: d.SearchScore}
		if lexical {
			r.LexicalRank = i + 1
		} else {
			r.VectorRank = i + 1
		}
		out = append(out, r)
	}
	return out, nil
}

// SavePaper upserts the paper document keyed by id.
func (s *Store) SavePaper(ctx context.Context, paper *model.Paper) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.papers.ReplaceOne(ctx, bson.M{"_id": paper.ID}, paper, opts); err != nil {
		return fmt.Errorf("save paper %s: %w", paper.ID, err)
	}
	return nil
}

// GetPaper fetches a paper by id.
func (s *Store) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	var paper model.Paper
	err := s.papers.FindOne(ctx, bson.M{"_id": id}).Decode(&paper)
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return nil, store.ErrPaperNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get paper %s: %w", id, err)
	}
	return &paper, nil
}

// AppendRevision inserts one revision record.
func (s *Store) AppendRevision(ctx context.Context, rec *model.RevisionRecord) error {
	if _, err := s.revisions.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("append revision for paper %s: %w", rec.PaperID, err)
	}
	return nil
}

// ListRevisions returns the paper's revisions oldest-first.
func (s *Store) ListRevisions(ctx context.Context, paperID string) ([]model.RevisionRecord, error) {
	cursor, err := s.revisions.Find(ctx, bson.M{"paper_id": paperID}, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("list revisions for paper %s: %w", paperID, err)
	}
	defer cursor.Close(ctx)

	var recs []model.RevisionRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode revisions for paper %s: %w", paperID, err)
	}
	return recs, nil
}

func filterDoc(f store.SearchFilters) bson.M {
	match := bson.M{}
	if f.Unit != 0 {
		match["unit"] = f.Unit
	}
	if f.Topic != "" {
		match["topic"] = f.Topic
	}
	if f.LessonType != "" {
		match["lesson_type"] = f.LessonType
	}
	return match
}
