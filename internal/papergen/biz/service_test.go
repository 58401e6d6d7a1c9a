package biz_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/papergen/biz"
	"github.com/kart-io/papergen/internal/papergen/store"
	"github.com/kart-io/papergen/pkg/llm"
)

func newTestService(t *testing.T) biz.PaperService {
	t.Helper()

	mem := store.NewMemoryStore()
	chat := chatFunc(func(messages []llm.Message) (string, error) {
		prompt := messages[len(messages)-1].Content
		switch {
		case strings.Contains(prompt, "multiple-choice vocabulary"):
			return happyChat(nil)(messages)
		case strings.Contains(prompt, "Review this drafted exam question"):
			return `{"fixed": false}`, nil
		case strings.Contains(prompt, "Revise this exam question"):
			return `{"question_text": "Revised per feedback", "brief_answer_guide": "guide"}`, nil
		default:
			return happyChat(nil)(messages)
		}
	})

	retriever := biz.NewRetriever(mem, nil, biz.RetrieverConfig{TopK: 10, RRFK: 60, BM25Weight: 1})
	assembler := biz.NewContextAssembler(retriever, biz.AssemblerConfig{})
	generator := biz.NewQuestionGenerator(chat)
	orchestrator := biz.NewPaperOrchestrator(assembler, generator, biz.NewCoverageValidator(), biz.OrchestratorConfig{Concurrency: 2})
	reviewer := biz.NewQualityReviewer(chat)
	reviser := biz.NewQuestionReviser(retriever, chat, mem)

	return biz.NewPaperService(orchestrator, reviewer, reviser, mem, mem)
}

func TestServiceGenerateAndFetch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	paper, err := svc.GeneratePaper(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 47, paper.QuestionCount)

	got, err := svc.GetPaper(ctx, paper.ID)
	require.NoError(t, err)
	assert.Equal(t, paper.ID, got.ID)
	assert.Equal(t, 47, got.QuestionCount)

	coverage, err := svc.GetCoverage(ctx, paper.ID)
	require.NoError(t, err)
	require.NotNil(t, coverage)
}

func TestServiceGetUnknownPaper(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetPaper(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrPaperNotFound)
}

func TestServiceReviewPersists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	paper, err := svc.GeneratePaper(ctx, 5)
	require.NoError(t, err)

	reviewed, report, err := svc.ReviewPaper(ctx, paper.ID)
	require.NoError(t, err)
	assert.True(t, report.ValidationPassed)
	assert.Equal(t, 47, reviewed.QuestionCount)
}

func TestServiceReviseSplicesAndRecords(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	paper, err := svc.GeneratePaper(ctx, 5)
	require.NoError(t, err)

	revised, err := svc.ReviseQuestion(ctx, paper.ID, 15, "ask about the ending instead")
	require.NoError(t, err)
	assert.True(t, revised.IsRevised)
	assert.Equal(t, "Revised per feedback", revised.QuestionText)

	got, err := svc.GetPaper(ctx, paper.ID)
	require.NoError(t, err)
	q := got.FindQuestion(15)
	require.NotNil(t, q)
	assert.Equal(t, "Revised per feedback", q.QuestionText)

	recs, err := svc.ListRevisions(ctx, paper.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 15, recs[0].QuestionNumber)

	_, err = svc.ReviseQuestion(ctx, paper.ID, 999, "feedback")
	assert.Error(t, err)
}
