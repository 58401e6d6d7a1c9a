package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/pkg/llm"
)

const generatorSystemPrompt = `You are an experienced English question-paper setter for the Tamil Nadu SSLC Class X board examination. You write clear, unambiguous questions at the prescribed difficulty level. You always respond with strict JSON only: no commentary, no markdown, no text outside the JSON payload.`

// QuestionGenerator drafts questions from a slot specification and a
// grounding context through one chat call per slot (one batch call for
// the Part I vocabulary set).
type QuestionGenerator struct {
	chat llm.ChatProvider
}

// NewQuestionGenerator creates a QuestionGenerator.
func NewQuestionGenerator(chat llm.ChatProvider) *QuestionGenerator {
	return &QuestionGenerator{chat: chat}
}

type mcqDraft struct {
	QuestionNumber int      `json:"question_number"`
	QuestionText   string   `json:"question_text"`
	Options        []string `json:"options"`
	CorrectOption  string   `json:"correct_option"`
}

type alternativeDraft struct {
	QuestionText string `json:"question_text"`
	AnswerGuide  string `json:"answer_guide"`
}

type questionDraft struct {
	QuestionText     string             `json:"question_text"`
	BriefAnswerGuide string             `json:"brief_answer_guide"`
	Alternatives     []alternativeDraft `json:"alternatives"`
}

// GenerateVocabularyBatch drafts the full Part I MCQ set in a single
// call. The unit-per-question mapping is fixed by the slots before the
// call; the model is instructed with that mapping explicitly. Items that
// come back malformed are dropped, not retried.
func (g *QuestionGenerator) GenerateVocabularyBatch(ctx context.Context, slots []Slot, grounding string) ([]model.Question, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	var plan strings.Builder
	for _, slot := range slots {
		fmt.Fprintf(&plan, "- question_number %d: %s question drawn from unit %d\n",
			slot.QuestionNumber, slot.VocabularyType, slot.Unit)
	}

	prompt := fmt.Sprintf(`Draft %d multiple-choice vocabulary questions, one per line of this plan:
%s
Rules for every question:
- Exactly 4 options, exactly one correct.
- Two distractors must be plausible, one clearly implausible.
- The tested word must come from the named unit's lessons.

Textbook extracts for grounding:
%s

Respond with a JSON array of %d objects, each:
{"question_number": <int>, "question_text": "...", "options": ["...","...","...","..."], "correct_option": "..."}`,
		len(slots), plan.String(), grounding, len(slots))

	raw, err := g.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: generatorSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("vocabulary batch generation: %w", err)
	}

	var drafts []mcqDraft
	if err := DecodeModelJSON(raw, &drafts); err != nil {
		return nil, fmt.Errorf("vocabulary batch parse: %w", err)
	}

	byNumber := make(map[int]mcqDraft, len(drafts))
	for _, d := range drafts {
		byNumber[d.QuestionNumber] = d
	}

	var out []model.Question
	for i, slot := range slots {
		d, ok := byNumber[slot.QuestionNumber]
		if !ok && i < len(drafts) {
			// Some models renumber from 1; fall back to positional match.
			d, ok = drafts[i], true
		}
		if !ok || !validMCQ(d) {
			continue
		}
		out = append(out, model.Question{
			QuestionNumber: slot.QuestionNumber,
			Part:           slot.Part,
			QuestionText:   d.QuestionText,
			Marks:          slot.Marks,
			Options:        d.Options,
			CorrectOption:  d.CorrectOption,
			VocabularyType: slot.VocabularyType,
			Unit:           slot.Unit,
			LessonType:     slot.LessonType,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("vocabulary batch: no usable questions in model output")
	}
	return out, nil
}

// Generate drafts one question for the slot. An unparseable response is
// an error; the orchestrator drops the slot and continues.
func (g *QuestionGenerator) Generate(ctx context.Context, slot Slot, grounding string) (model.Question, error) {
	prompt := buildSlotPrompt(slot, grounding)

	raw, err := g.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: generatorSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("question %d generation: %w", slot.QuestionNumber, err)
	}

	var draft questionDraft
	if err := DecodeModelJSON(raw, &draft); err != nil {
		return model.Question{}, fmt.Errorf("question %d parse: %w", slot.QuestionNumber, err)
	}
	if draft.QuestionText == "" && len(draft.Alternatives) == 0 {
		return model.Question{}, fmt.Errorf("question %d: empty draft", slot.QuestionNumber)
	}

	q := model.Question{
		QuestionNumber:   slot.QuestionNumber,
		Part:             slot.Part,
		Section:          slot.Section,
		QuestionText:     draft.QuestionText,
		Marks:            slot.Marks,
		InternalChoice:   slot.InternalChoice,
		Unit:             slot.Unit,
		LessonType:       slot.LessonType,
		LessonTitle:      slot.LessonTitle,
		GrammarArea:      slot.GrammarArea,
		ImageRef:         slot.ImageRef,
		BriefAnswerGuide: draft.BriefAnswerGuide,
	}

	if slot.InternalChoice {
		labels := []string{"a", "b", "c", "d"}
		for i, alt := range draft.Alternatives {
			if i >= len(labels) {
				break
			}
			q.Alternatives = append(q.Alternatives, model.Alternative{
				Label:        labels[i],
				QuestionText: alt.QuestionText,
				AnswerGuide:  alt.AnswerGuide,
			})
		}
		if q.QuestionText == "" && len(q.Alternatives) > 0 {
			q.QuestionText = q.Alternatives[0].QuestionText
		}
		want := slot.AlternativeCount
		if want == 0 {
			want = 2
		}
		if len(q.Alternatives) < want {
			return model.Question{}, fmt.Errorf("question %d: expected %d alternatives, got %d",
				slot.QuestionNumber, want, len(q.Alternatives))
		}
	}

	return q, nil
}

func validMCQ(d mcqDraft) bool {
	if d.QuestionText == "" || len(d.Options) != 4 {
		return false
	}
	for _, opt := range d.Options {
		if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(d.CorrectOption)) {
			return true
		}
	}
	return false
}

func buildSlotPrompt(slot Slot, grounding string) string {
	var b strings.Builder

	switch slot.LessonType {
	case model.LessonProse:
		fmt.Fprintf(&b, `Draft one short-answer question worth %d marks on the prose lesson %q (unit %d).
The question must be answerable from the lesson in 2-3 sentences.
Paraphrase the source material; never copy a textbook sentence verbatim into the question.`,
			slot.Marks, slot.LessonTitle, slot.Unit)
	case model.LessonPoetry:
		fmt.Fprintf(&b, `Draft one short-answer appreciation question worth %d marks on the poem %q (unit %d).
Ask about meaning, imagery, or the poet's intent. Paraphrase; never quote more than a single phrase.`,
			slot.Marks, slot.LessonTitle, slot.Unit)
	case model.LessonSupplementary:
		fmt.Fprintf(&b, `Draft one short-answer question worth %d marks on the supplementary story %q (unit %d).
Focus on plot, character, or moral. Paraphrase the source material.`,
			slot.Marks, slot.LessonTitle, slot.Unit)
	case model.LessonGrammar:
		fmt.Fprintf(&b, `Draft one grammar question worth %d marks on %s.
Give the candidate a sentence to transform. The task must have exactly one valid answer; avoid sentences that permit multiple correct transformations.`,
			slot.Marks, slot.GrammarArea)
	case model.LessonMemory:
		fmt.Fprintf(&b, `Draft the memorised-poem question worth %d marks: instruct the candidate to quote from memory the prescribed lines of the poem %q.
State the poem title exactly as %q in the question text.`,
			slot.Marks, slot.LessonTitle, slot.LessonTitle)
	default: // writing tasks, road map, essays
		fmt.Fprintf(&b, `Draft one %s task worth %d marks for Class X students.
Use situations a 15-year-old student in Tamil Nadu can relate to.`,
			slot.WritingTask, slot.Marks)
		if slot.ImageRef != "" {
			fmt.Fprintf(&b, "\nThe question refers to a printed picture (%s); ask the candidate to describe the scene in their own words.", slot.ImageRef)
		}
	}

	if slot.InternalChoice {
		n := slot.AlternativeCount
		if n == 0 {
			n = 2
		}
		fmt.Fprintf(&b, "\n\nThis is an internal-choice question: provide %d alternatives of equal difficulty; the candidate answers any one.", n)
	}

	if grounding != "" {
		fmt.Fprintf(&b, "\n\nTextbook extracts for grounding:\n%s", grounding)
	}

	b.WriteString("\n\nRespond with one JSON object:\n")
	if slot.InternalChoice {
		b.WriteString(`{"question_text": "...", "brief_answer_guide": "...", "alternatives": [{"question_text": "...", "answer_guide": "..."}, ...]}`)
	} else {
		b.WriteString(`{"question_text": "...", "brief_answer_guide": "..."}`)
	}
	return b.String()
}
