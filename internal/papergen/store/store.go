// Package store defines the persistence interfaces for textbook content,
// assembled papers, and revision history, plus the in-memory reference
// implementation used in tests and local runs.
package store

import (
	"context"
	"errors"

	"github.com/kart-io/papergen/internal/model"
)

// Chunk is one retrievable slice of textbook content.
type Chunk struct {
	ID        string    `json:"id" bson:"_id"`
	Text      string    `json:"text" bson:"text"`
	Embedding []float32 `json:"embedding,omitempty" bson:"embedding,omitempty"`

	Unit       int    `json:"unit" bson:"unit"`
	UnitName   string `json:"unit_name,omitempty" bson:"unit_name,omitempty"`
	Topic      string `json:"topic,omitempty" bson:"topic,omitempty"`
	SubTopic   string `json:"sub_topic,omitempty" bson:"sub_topic,omitempty"`
	LessonType string `json:"lesson_type,omitempty" bson:"lesson_type,omitempty"`
	Position   int    `json:"position" bson:"position"`
	Page       int    `json:"page,omitempty" bson:"page,omitempty"`
}

// SearchFilters narrows retrieval to a slice of the syllabus. Zero values
// mean "no constraint".
type SearchFilters struct {
	Unit       int
	Topic      string
	LessonType string
}

// SearchResult is one ranked chunk. Ranks are 1-based positions in the
// source rankings; 0 means the chunk did not appear in that ranking.
type SearchResult struct {
	Chunk       Chunk   `json:"chunk"`
	Score       float64 `json:"score"`
	LexicalRank int     `json:"lexical_rank,omitempty"`
	VectorRank  int     `json:"vector_rank,omitempty"`
}

// ContentStore serves lexical and vector rankings over textbook chunks.
//
// Both searches return results best-first. An empty result set is the
// normal answer for queries that match nothing; implementations must not
// return an error for "not found".
type ContentStore interface {
	// LexicalSearch ranks chunks by keyword relevance.
	LexicalSearch(ctx context.Context, query string, filters SearchFilters, limit int) ([]SearchResult, error)

	// VectorSearch ranks chunks by embedding similarity.
	VectorSearch(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]SearchResult, error)
}

// PaperStore persists assembled papers.
type PaperStore interface {
	SavePaper(ctx context.Context, paper *model.Paper) error
	GetPaper(ctx context.Context, id string) (*model.Paper, error)
}

// RevisionStore persists the append-only revision history per paper.
type RevisionStore interface {
	AppendRevision(ctx context.Context, rec *model.RevisionRecord) error
	ListRevisions(ctx context.Context, paperID string) ([]model.RevisionRecord, error)
}

// ErrPaperNotFound is returned by PaperStore.GetPaper for unknown ids.
var ErrPaperNotFound = errors.New("paper not found")
