package biz_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/biz"
	"github.com/kart-io/papergen/internal/papergen/store"
	"github.com/kart-io/papergen/pkg/llm"
)

// happyChat answers every drafting prompt with well-formed JSON: the
// Part I batch gets fourteen MCQs, everything else a single question
// with three alternatives (enough for any internal-choice slot).
func happyChat(failWhen func(prompt string) bool) chatFunc {
	return func(messages []llm.Message) (string, error) {
		prompt := messages[len(messages)-1].Content
		if failWhen != nil && failWhen(prompt) {
			return "", errors.New("simulated model failure")
		}

		if strings.Contains(prompt, "multiple-choice vocabulary") {
			items := make([]string, 0, 14)
			for n := 1; n <= 14; n++ {
				items = append(items, fmt.Sprintf(
					`{"question_number": %d, "question_text": "Pick the right word %d", "options": ["w", "x", "y", "z"], "correct_option": "y"}`, n, n))
			}
			return "[" + strings.Join(items, ",") + "]", nil
		}

		return `{"question_text": "Drafted question", "brief_answer_guide": "Guide", "alternatives": [{"question_text": "Alternative a", "answer_guide": "g"}, {"question_text": "Alternative b", "answer_guide": "g"}, {"question_text": "Alternative c", "answer_guide": "g"}]}`, nil
	}
}

func newTestOrchestrator(chat chatFunc) *biz.PaperOrchestrator {
	mem := store.NewMemoryStore()
	retriever := biz.NewRetriever(mem, nil, biz.RetrieverConfig{TopK: 10, RRFK: 60, BM25Weight: 1})
	assembler := biz.NewContextAssembler(retriever, biz.AssemblerConfig{})
	generator := biz.NewQuestionGenerator(chat)
	return biz.NewPaperOrchestrator(assembler, generator, biz.NewCoverageValidator(), biz.OrchestratorConfig{Concurrency: 4})
}

func TestGeneratePaperComplete(t *testing.T) {
	o := newTestOrchestrator(happyChat(nil))

	paper, err := o.GeneratePaper(context.Background(), 11)
	require.NoError(t, err)
	require.NotNil(t, paper)

	assert.Equal(t, model.StateAssembled, paper.State)
	assert.Equal(t, 47, paper.QuestionCount)
	assert.Equal(t, 100, paper.TotalMarks)
	assert.NotEmpty(t, paper.ID)

	perPart := make(map[string]int)
	for _, q := range paper.AllQuestions() {
		perPart[q.Part]++
	}
	assert.Equal(t, 14, perPart[model.PartI])
	assert.Equal(t, 14, perPart[model.PartII])
	assert.Equal(t, 17, perPart[model.PartIII])
	assert.Equal(t, 2, perPart[model.PartIV])

	require.NotNil(t, paper.RunReport)
	assert.Empty(t, paper.RunReport.SlotFailures)
	assert.Equal(t, int64(11), paper.RunReport.Seed)
	require.NotNil(t, paper.CoverageValidation)
}

func TestGeneratePaperQuestionNumberingStable(t *testing.T) {
	o := newTestOrchestrator(happyChat(nil))

	paper, err := o.GeneratePaper(context.Background(), 11)
	require.NoError(t, err)

	questions := paper.AllQuestions()
	require.Len(t, questions, 47)
	for i, q := range questions {
		assert.Equal(t, i+1, q.QuestionNumber)
	}
}

func TestGeneratePaperToleratesPartialFailure(t *testing.T) {
	// Fail three distinct slots: the punctuation grammar question, the
	// road map task, and the supplementary question on The Tempest.
	failWhen := func(prompt string) bool {
		return strings.Contains(prompt, "punctuation") ||
			strings.Contains(prompt, "road map") ||
			strings.Contains(prompt, "The Tempest")
	}
	o := newTestOrchestrator(happyChat(failWhen))

	paper, err := o.GeneratePaper(context.Background(), 11)
	require.NoError(t, err, "partial failure must not abort the run")

	assert.Equal(t, model.StateAssembled, paper.State)
	assert.Equal(t, 44, paper.QuestionCount)

	require.NotNil(t, paper.RunReport)
	require.Len(t, paper.RunReport.SlotFailures, 3)
	failed := make(map[int]bool)
	for _, f := range paper.RunReport.SlotFailures {
		failed[f.QuestionNumber] = true
		assert.NotEmpty(t, f.Error)
	}
	assert.Len(t, failed, 3, "failures must name three distinct slots")

	for _, q := range paper.AllQuestions() {
		assert.False(t, failed[q.QuestionNumber], "failed slot %d must be omitted", q.QuestionNumber)
	}
}

func TestGeneratePaperUsesConfiguredDefaultSeed(t *testing.T) {
	mem := store.NewMemoryStore()
	retriever := biz.NewRetriever(mem, nil, biz.RetrieverConfig{TopK: 10, RRFK: 60, BM25Weight: 1})
	assembler := biz.NewContextAssembler(retriever, biz.AssemblerConfig{})
	generator := biz.NewQuestionGenerator(happyChat(nil))
	o := biz.NewPaperOrchestrator(assembler, generator, biz.NewCoverageValidator(), biz.OrchestratorConfig{
		Concurrency: 4,
		DefaultSeed: 77,
	})

	paper, err := o.GeneratePaper(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(77), paper.RunReport.Seed)

	explicit, err := o.GeneratePaper(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, int64(11), explicit.RunReport.Seed, "request seed overrides the configured default")
}

func TestGeneratePaperVocabularyBatchFailure(t *testing.T) {
	failWhen := func(prompt string) bool {
		return strings.Contains(prompt, "multiple-choice vocabulary")
	}
	o := newTestOrchestrator(happyChat(failWhen))

	paper, err := o.GeneratePaper(context.Background(), 11)
	require.NoError(t, err)

	assert.Equal(t, 33, paper.QuestionCount)
	assert.Len(t, paper.RunReport.SlotFailures, 14)
	assert.Nil(t, paper.Parts[model.PartI])
}
