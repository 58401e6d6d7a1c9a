package biz_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/biz"
	"github.com/kart-io/papergen/pkg/llm"
)

func partISlots(t *testing.T) []biz.Slot {
	t.Helper()
	var out []biz.Slot
	for _, slot := range biz.Blueprint(rand.New(rand.NewSource(3))) {
		if slot.Part == model.PartI {
			out = append(out, slot)
		}
	}
	require.Len(t, out, 14)
	return out
}

func mcqBatchJSON(slots []biz.Slot) string {
	items := make([]string, 0, len(slots))
	for _, slot := range slots {
		items = append(items, fmt.Sprintf(
			`{"question_number": %d, "question_text": "Choose the correct %s:", "options": ["opt-a", "opt-b", "opt-c", "opt-d"], "correct_option": "opt-b"}`,
			slot.QuestionNumber, slot.VocabularyType))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestGenerateVocabularyBatch(t *testing.T) {
	slots := partISlots(t)

	var sawPrompt string
	chat := chatFunc(func(messages []llm.Message) (string, error) {
		sawPrompt = messages[len(messages)-1].Content
		return mcqBatchJSON(slots), nil
	})

	gen := biz.NewQuestionGenerator(chat)
	questions, err := gen.GenerateVocabularyBatch(context.Background(), slots, "some grounding")
	require.NoError(t, err)
	require.Len(t, questions, 14)

	for i, q := range questions {
		slot := slots[i]
		assert.Equal(t, slot.QuestionNumber, q.QuestionNumber)
		assert.Equal(t, model.PartI, q.Part)
		assert.Equal(t, 1, q.Marks)
		assert.Equal(t, slot.Unit, q.Unit)
		assert.Equal(t, slot.VocabularyType, q.VocabularyType)
		assert.Len(t, q.Options, 4)
	}

	// The prompt must carry the explicit unit-per-question mapping.
	for _, slot := range slots {
		assert.Contains(t, sawPrompt, fmt.Sprintf("question_number %d", slot.QuestionNumber))
		assert.Contains(t, sawPrompt, fmt.Sprintf("unit %d", slot.Unit))
	}
}

func TestGenerateVocabularyBatchDropsMalformedItems(t *testing.T) {
	slots := partISlots(t)

	chat := chatFunc(func([]llm.Message) (string, error) {
		raw := mcqBatchJSON(slots)
		// Break the first item: correct option not among the options.
		return strings.Replace(raw, `"correct_option": "opt-b"`, `"correct_option": "missing"`, 1), nil
	})

	questions, err := biz.NewQuestionGenerator(chat).GenerateVocabularyBatch(context.Background(), slots, "")
	require.NoError(t, err)
	assert.Len(t, questions, 13)
}

func TestGenerateVocabularyBatchUnparseable(t *testing.T) {
	chat := chatFunc(func([]llm.Message) (string, error) {
		return "I am not able to help with that.", nil
	})

	_, err := biz.NewQuestionGenerator(chat).GenerateVocabularyBatch(context.Background(), partISlots(t), "")
	require.Error(t, err)
}

func TestGenerateInternalChoiceQuestion(t *testing.T) {
	slot := biz.Slot{
		QuestionNumber: 15,
		Part:           model.PartII,
		Section:        biz.SectionProse,
		Marks:          2,
		Unit:           1,
		LessonType:     model.LessonProse,
		LessonTitle:    "His First Flight",
		InternalChoice: true,
	}

	chat := chatFunc(func([]llm.Message) (string, error) {
		return `{"question_text": "Why was the young seagull afraid to fly?", "brief_answer_guide": "Fear of the vast sea below.", "alternatives": [{"question_text": "Why was the young seagull afraid to fly?", "answer_guide": "Fear of the sea."}, {"question_text": "How did the parents coax the seagull?", "answer_guide": "They tempted him with food."}]}`, nil
	})

	q, err := biz.NewQuestionGenerator(chat).Generate(context.Background(), slot, "grounding text")
	require.NoError(t, err)

	assert.Equal(t, 15, q.QuestionNumber)
	assert.Equal(t, model.PartII, q.Part)
	assert.Equal(t, biz.SectionProse, q.Section)
	assert.Equal(t, 2, q.Marks)
	assert.True(t, q.InternalChoice)
	require.Len(t, q.Alternatives, 2)
	assert.Equal(t, "a", q.Alternatives[0].Label)
	assert.Equal(t, "b", q.Alternatives[1].Label)
}

func TestGenerateTooFewAlternatives(t *testing.T) {
	slot := biz.Slot{
		QuestionNumber:   46,
		Part:             model.PartIV,
		Section:          biz.SectionEssay,
		Marks:            8,
		LessonType:       model.LessonWriting,
		InternalChoice:   true,
		AlternativeCount: 3,
	}

	chat := chatFunc(func([]llm.Message) (string, error) {
		return `{"question_text": "Essay", "alternatives": [{"question_text": "Option one"}, {"question_text": "Option two"}]}`, nil
	})

	_, err := biz.NewQuestionGenerator(chat).Generate(context.Background(), slot, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alternatives")
}

func TestGenerateChatError(t *testing.T) {
	chat := chatFunc(func([]llm.Message) (string, error) {
		return "", errors.New("model overloaded")
	})

	slot := biz.Slot{QuestionNumber: 29, Part: model.PartIII, Marks: 2, LessonType: model.LessonProse}
	_, err := biz.NewQuestionGenerator(chat).Generate(context.Background(), slot, "")
	require.Error(t, err)
}
