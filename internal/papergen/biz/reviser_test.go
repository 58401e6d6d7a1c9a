package biz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/biz"
	"github.com/kart-io/papergen/internal/papergen/store"
	"github.com/kart-io/papergen/pkg/llm"
)

func newTestReviser(chat chatFunc, embedder llm.EmbeddingProvider, history store.RevisionStore) *biz.QuestionReviser {
	mem := store.NewMemoryStore()
	mem.AddChunks(
		store.Chunk{ID: "1", Text: "The young seagull stood on the ledge, afraid of the vast sea.", Unit: 1, LessonType: "prose"},
		store.Chunk{ID: "2", Text: "His parents flew around, coaxing him to take his first flight.", Unit: 1, LessonType: "prose"},
	)
	retriever := biz.NewRetriever(mem, embedder, biz.RetrieverConfig{TopK: 5, RRFK: 60, VectorWeight: 0.5, BM25Weight: 0.5})
	return biz.NewQuestionReviser(retriever, chat, history)
}

func proseQuestionPaper() (*model.Paper, model.Question) {
	q := model.Question{
		QuestionNumber: 15,
		Part:           model.PartII,
		Section:        biz.SectionProse,
		QuestionText:   "What did the seagull see below the ledge?",
		Marks:          2,
		Unit:           1,
		LessonType:     model.LessonProse,
		LessonTitle:    "His First Flight",
	}
	paper := &model.Paper{
		ID:    "paper-1",
		Parts: map[string]*model.Part{model.PartII: {Sections: map[string]*model.Section{biz.SectionProse: {Questions: []model.Question{q}}}}},
	}
	return paper, q
}

func TestReviseWithEmbeddingFailureStillSucceeds(t *testing.T) {
	history := store.NewMemoryStore()
	chat := chatFunc(func([]llm.Message) (string, error) {
		return `{"question_text": "Why did the seagull hesitate before flying?", "brief_answer_guide": "He feared the sea below."}`, nil
	})
	reviser := newTestReviser(chat, failingEmbedder, history)

	paper, original := proseQuestionPaper()
	revised := reviser.Revise(context.Background(), paper, original, "make the question less literal")

	assert.True(t, revised.IsRevised)
	assert.Empty(t, revised.RevisionError)
	assert.Equal(t, "Why did the seagull hesitate before flying?", revised.QuestionText)
	assert.Equal(t, original.QuestionNumber, revised.QuestionNumber)
	assert.Equal(t, original.Marks, revised.Marks)

	recs, err := history.ListRevisions(context.Background(), paper.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].IsRevised)
	assert.Equal(t, original.QuestionText, recs[0].Original.QuestionText)
	assert.Equal(t, revised.QuestionText, recs[0].Revised.QuestionText)
}

func TestReviseFailureReturnsAnnotatedOriginal(t *testing.T) {
	history := store.NewMemoryStore()
	chat := chatFunc(func([]llm.Message) (string, error) {
		return "", errors.New("model unavailable")
	})
	reviser := newTestReviser(chat, nil, history)

	paper, original := proseQuestionPaper()
	revised := reviser.Revise(context.Background(), paper, original, "reword this")

	assert.False(t, revised.IsRevised)
	assert.NotEmpty(t, revised.RevisionError)
	assert.Equal(t, original.QuestionText, revised.QuestionText)

	recs, err := history.ListRevisions(context.Background(), paper.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].IsRevised)
	assert.NotEmpty(t, recs[0].Error)
}

func TestReviseHistoryIsAppendOnly(t *testing.T) {
	history := store.NewMemoryStore()
	chat := chatFunc(func([]llm.Message) (string, error) {
		return `{"question_text": "Revised once more", "brief_answer_guide": "guide"}`, nil
	})
	reviser := newTestReviser(chat, nil, history)

	paper, original := proseQuestionPaper()
	for i := 0; i < 3; i++ {
		reviser.Revise(context.Background(), paper, original, "again")
	}

	recs, err := history.ListRevisions(context.Background(), paper.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestRevisePictureCompositionSwapsImageOnly(t *testing.T) {
	history := store.NewMemoryStore()
	chat := chatFunc(func([]llm.Message) (string, error) {
		t.Fatal("picture revision must not call the model")
		return "", nil
	})
	reviser := newTestReviser(chat, nil, history)

	paper, _ := proseQuestionPaper()
	original := model.Question{
		QuestionNumber: 42,
		Part:           model.PartIII,
		Section:        biz.SectionWriting,
		QuestionText:   "Describe the scene in the picture in about five sentences.",
		Marks:          3,
		LessonType:     model.LessonWriting,
		ImageRef:       "images/park_scene.png",
	}

	revised := reviser.Revise(context.Background(), paper, original, "students would relate better to a market scene")

	assert.True(t, revised.IsRevised)
	assert.Equal(t, "images/market_scene.png", revised.ImageRef)
	assert.Equal(t, original.QuestionText, revised.QuestionText)
	assert.Equal(t, original.QuestionNumber, revised.QuestionNumber)
	assert.Equal(t, original.Marks, revised.Marks)

	recs, err := history.ListRevisions(context.Background(), paper.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
