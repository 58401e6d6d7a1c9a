// Package milvus implements a vector-only ContentStore on Milvus.
//
// Milvus carries no lexical index here, so LexicalSearch returns an empty
// ranking and rank fusion proceeds on the vector ranking alone.
package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/kart-io/papergen/internal/papergen/store"
	milvusopts "github.com/kart-io/papergen/pkg/options/milvus"
)

// Store implements store.ContentStore backed by a Milvus collection.
type Store struct {
	client     *milvusclient.Client
	collection string
}

var _ store.ContentStore = (*Store)(nil)

// New connects to Milvus and loads the content collection.
func New(ctx context.Context, opts *milvusopts.Options) (*Store, error) {
	cli, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", opts.Address, err)
	}

	loadTask, err := cli.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(opts.Collection))
	if err != nil {
		cli.Close(ctx)
		return nil, fmt.Errorf("failed to load collection %s: %w", opts.Collection, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		cli.Close(ctx)
		return nil, fmt.Errorf("failed to await collection load %s: %w", opts.Collection, err)
	}

	return &Store{client: cli, collection: opts.Collection}, nil
}

// LexicalSearch always returns an empty ranking.
func (s *Store) LexicalSearch(_ context.Context, _ string, _ store.SearchFilters, _ int) ([]store.SearchResult, error) {
	return nil, nil
}

// VectorSearch runs an ANN search over the embedding field.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, filters store.SearchFilters, limit int) ([]store.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	outputFields := []string{"chunk_id", "text", "unit", "unit_name", "topic", "sub_topic", "lesson_type", "position", "page"}

	opt := milvusclient.NewSearchOption(s.collection, limit, []entity.Vector{entity.FloatVector(embedding)}).
		WithANNSField("embedding").
		WithSearchParam("ef", "64").
		WithOutputFields(outputFields...)
	if expr := filterExpr(filters); expr != "" {
		opt = opt.WithFilter(expr)
	}

	results, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	rs := results[0]
	out := make([]store.SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		chunk := store.Chunk{}
		for _, field := range rs.Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				val := col.Data()[i]
				switch col.Name() {
				case "chunk_id":
					chunk.ID = val
				case "text":
					chunk.Text = val
				case "unit_name":
					chunk.UnitName = val
				case "topic":
					chunk.Topic = val
				case "sub_topic":
					chunk.SubTopic = val
				case "lesson_type":
					chunk.LessonType = val
				}
			case *column.ColumnInt64:
				val := col.Data()[i]
				switch col.Name() {
				case "unit":
					chunk.Unit = int(val)
				case "position":
					chunk.Position = int(val)
				case "page":
					chunk.Page = int(val)
				}
			}
		}
		out = append(out, store.SearchResult{
			Chunk:      chunk,
			Score:      float64(rs.Scores[i]),
			VectorRank: i + 1,
		})
	}
	return out, nil
}

// Close releases the Milvus connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func filterExpr(f store.SearchFilters) string {
	var parts []string
	if f.Unit != 0 {
		parts = append(parts, fmt.Sprintf("unit == %d", f.Unit))
	}
	if f.Topic != "" {
		parts = append(parts, fmt.Sprintf("topic == %q", f.Topic))
	}
	if f.LessonType != "" {
		parts = append(parts, fmt.Sprintf("lesson_type == %q", f.LessonType))
	}
	return strings.Join(parts, " && ")
}
