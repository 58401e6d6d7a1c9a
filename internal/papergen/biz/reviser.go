package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/store"
	"github.com/kart-io/papergen/pkg/llm"
	jsonutil "github.com/kart-io/papergen/pkg/utils/json"
)

const maxStyleReferences = 5

// QuestionReviser redrafts one question from reviewer feedback, outside
// the main generation run. It owns the append-only revision history; the
// caller splices the revised question back into the paper.
type QuestionReviser struct {
	retriever *Retriever
	chat      llm.ChatProvider
	history   store.RevisionStore
}

// NewQuestionReviser creates a QuestionReviser.
func NewQuestionReviser(retriever *Retriever, chat llm.ChatProvider, history store.RevisionStore) *QuestionReviser {
	return &QuestionReviser{retriever: retriever, chat: chat, history: history}
}

// Revise produces a revised question honoring the feedback. It never
// returns an error for a failed revision: the original question comes
// back annotated with the failure and is_revised=false. Every attempt,
// successful or not, is appended to the paper's revision history.
func (r *QuestionReviser) Revise(ctx context.Context, paper *model.Paper, original model.Question, feedback string) model.Question {
	var revised model.Question
	var reviseErr error

	if original.ImageRef != "" {
		revised = r.swapPictureImage(original, feedback)
	} else {
		revised, reviseErr = r.redraft(ctx, paper, original, feedback)
		if reviseErr != nil {
			logger.Warnw("revision failed, returning original question",
				"paper_id", paper.ID, "question_number", original.QuestionNumber, "error", reviseErr)
			revised = original
			revised.IsRevised = false
			revised.RevisionError = reviseErr.Error()
		}
	}

	rec := &model.RevisionRecord{
		ID:             uuid.New().String(),
		PaperID:        paper.ID,
		QuestionNumber: original.QuestionNumber,
		Feedback:       feedback,
		Original:       original,
		Revised:        revised,
		IsRevised:      revised.IsRevised,
		CreatedAt:      time.Now().UTC(),
	}
	if reviseErr != nil {
		rec.Error = reviseErr.Error()
	}
	if err := r.history.AppendRevision(ctx, rec); err != nil {
		logger.Errorw("failed to append revision history",
			"paper_id", paper.ID, "question_number", original.QuestionNumber, "error", err)
	}

	return revised
}

// swapPictureImage handles picture-composition questions: only the
// illustrative image changes, chosen by matching feedback keywords
// against the image catalogue. Question text, number, part, and marks
// stay as they were.
func (r *QuestionReviser) swapPictureImage(original model.Question, feedback string) model.Question {
	revised := original
	lowered := strings.ToLower(feedback)
	for keyword, image := range pictureImages {
		if strings.Contains(lowered, keyword) && image != original.ImageRef {
			revised.ImageRef = image
			break
		}
	}
	if revised.ImageRef == original.ImageRef {
		// No keyword matched; rotate to any other catalogue image.
		for _, image := range pictureImages {
			if image != original.ImageRef {
				revised.ImageRef = image
				break
			}
		}
	}
	revised.IsRevised = true
	revised.RevisionError = ""
	return revised
}

func (r *QuestionReviser) redraft(ctx context.Context, paper *model.Paper, original model.Question, feedback string) (model.Question, error) {
	// Feedback-aware retrieval. The retriever degrades to lexical-only
	// search on embedding failure, so grounding is best-effort, never
	// a hard failure.
	query := strings.TrimSpace(strings.Join([]string{
		feedback, original.Section, original.LessonTitle, original.LessonType,
	}, " "))
	results := r.retriever.Search(ctx, query, store.SearchFilters{
		Unit:       original.Unit,
		LessonType: original.LessonType,
	})

	var grounding strings.Builder
	for i, res := range results {
		if i >= 10 {
			break
		}
		grounding.WriteString(strings.TrimSpace(res.Chunk.Text))
		grounding.WriteString("\n\n")
	}

	styleRefs := similarQuestions(paper, original, maxStyleReferences)

	prompt := buildRevisionPrompt(original, feedback, grounding.String(), styleRefs)
	raw, err := r.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: generatorSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("revision call: %w", err)
	}

	var draft questionDraft
	if err := DecodeModelJSON(raw, &draft); err != nil {
		return model.Question{}, fmt.Errorf("revision parse: %w", err)
	}
	if draft.QuestionText == "" {
		return model.Question{}, fmt.Errorf("revision produced empty question text")
	}

	revised := original
	revised.QuestionText = draft.QuestionText
	if draft.BriefAnswerGuide != "" {
		revised.BriefAnswerGuide = draft.BriefAnswerGuide
	}
	if original.InternalChoice && len(draft.Alternatives) == len(original.Alternatives) && len(original.Alternatives) > 0 {
		for i, alt := range draft.Alternatives {
			revised.Alternatives[i].QuestionText = alt.QuestionText
			revised.Alternatives[i].AnswerGuide = alt.AnswerGuide
		}
	}
	revised.IsRevised = true
	revised.RevisionError = ""
	return revised, nil
}

// similarQuestions collects up to limit questions from the same paper
// sharing the original's lesson type, for style reference only.
func similarQuestions(paper *model.Paper, original model.Question, limit int) []model.Question {
	var out []model.Question
	for _, q := range paper.AllQuestions() {
		if q.QuestionNumber == original.QuestionNumber {
			continue
		}
		if q.LessonType != original.LessonType {
			continue
		}
		out = append(out, q)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func buildRevisionPrompt(original model.Question, feedback, grounding string, styleRefs []model.Question) string {
	encoded, _ := jsonutil.Marshal(original)

	var b strings.Builder
	fmt.Fprintf(&b, `Revise this exam question according to the reviewer's feedback.

Original question JSON:
%s

Reviewer feedback:
%s

The revised question must keep the same part, marks, and answer format as the original.`, string(encoded), feedback)

	if grounding != "" {
		fmt.Fprintf(&b, "\n\nFresh textbook extracts for grounding:\n%s", grounding)
	}

	if len(styleRefs) > 0 {
		b.WriteString("\n\nFor style reference only (do not copy content from these):")
		for _, ref := range styleRefs {
			fmt.Fprintf(&b, "\n- %s", ref.QuestionText)
		}
	}

	b.WriteString("\n\nRespond with one JSON object:\n")
	if original.InternalChoice {
		b.WriteString(`{"question_text": "...", "brief_answer_guide": "...", "alternatives": [{"question_text": "...", "answer_guide": "..."}, ...]}`)
	} else {
		b.WriteString(`{"question_text": "...", "brief_answer_guide": "..."}`)
	}
	return b.String()
}
