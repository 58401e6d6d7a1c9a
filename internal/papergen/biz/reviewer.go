package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/pkg/llm"
	jsonutil "github.com/kart-io/papergen/pkg/utils/json"
)

// ReviewCategory classifies a question for type-specific review.
type ReviewCategory string

const (
	CategoryMCQ     ReviewCategory = "mcq"
	CategoryGrammar ReviewCategory = "grammar"
	CategoryContent ReviewCategory = "content"
	CategoryWriting ReviewCategory = "writing"
	CategoryNone    ReviewCategory = "none"
)

// Classify picks the review category for a question. Precedence: MCQ,
// then grammar, then prose/poetry/supplementary content, then writing;
// anything else is not reviewed.
func Classify(q model.Question) ReviewCategory {
	if q.Part == model.PartI || len(q.Options) >= 4 {
		return CategoryMCQ
	}
	if q.GrammarArea != "" || strings.Contains(strings.ToLower(q.LessonType), "grammar") {
		return CategoryGrammar
	}
	switch q.LessonType {
	case model.LessonProse, model.LessonPoetry, model.LessonSupplementary:
		return CategoryContent
	}
	if q.LessonType == model.LessonWriting || strings.Contains(strings.ToLower(q.Section), "writing") {
		return CategoryWriting
	}
	return CategoryNone
}

// ReviewReport summarizes one quality-review pass.
type ReviewReport struct {
	Reviewed int `json:"reviewed"`
	Fixed    int `json:"fixed"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`

	// ValidationPassed is false when the pass changed a paper-level
	// structural property. Applied fixes are not rolled back; the flag
	// surfaces the drift for manual inspection.
	ValidationPassed bool     `json:"validation_passed"`
	Mismatches       []string `json:"mismatches,omitempty"`
}

// QualityReviewer runs the second LLM pass over an assembled paper:
// classify each question, apply a type-specific fix-up, and verify that
// the paper's structural shape survived.
type QualityReviewer struct {
	chat llm.ChatProvider
}

// NewQualityReviewer creates a QualityReviewer.
func NewQualityReviewer(chat llm.ChatProvider) *QualityReviewer {
	return &QualityReviewer{chat: chat}
}

type reviewDraft struct {
	Fixed            bool               `json:"fixed"`
	QuestionText     string             `json:"question_text"`
	Options          []string           `json:"options"`
	CorrectOption    string             `json:"correct_option"`
	BriefAnswerGuide string             `json:"brief_answer_guide"`
	Alternatives     []alternativeDraft `json:"alternatives"`
}

// reviewDraftKeys are the reviewer output fields mapped onto the base
// question schema; anything else lands in the question's extension map.
var reviewDraftKeys = map[string]bool{
	"fixed":              true,
	"question_text":      true,
	"options":            true,
	"correct_option":     true,
	"brief_answer_guide": true,
	"alternatives":       true,
}

// Review mutates the paper's questions in place and returns the report.
// A review-call failure leaves that question untouched.
func (r *QualityReviewer) Review(ctx context.Context, paper *model.Paper) *ReviewReport {
	before := structuralProfile(paper)
	report := &ReviewReport{ValidationPassed: true}

	for _, q := range paper.AllQuestions() {
		category := Classify(q)
		if category == CategoryNone {
			report.Skipped++
			continue
		}
		report.Reviewed++

		revised, fixed, err := r.reviewOne(ctx, q, category)
		if err != nil {
			logger.Warnw("quality review failed, keeping original question",
				"paper_id", paper.ID, "question_number", q.QuestionNumber, "error", err)
			report.Errors++
			continue
		}
		if !fixed {
			continue
		}
		report.Fixed++
		paper.ReplaceQuestion(revised)
	}

	after := structuralProfile(paper)
	report.Mismatches = before.diff(after)
	if len(report.Mismatches) > 0 {
		report.ValidationPassed = false
		paper.ValidationPassed = false
		logger.Errorw("quality review changed paper structure",
			"paper_id", paper.ID, "mismatches", report.Mismatches)
	}
	return report
}

func (r *QualityReviewer) reviewOne(ctx context.Context, q model.Question, category ReviewCategory) (model.Question, bool, error) {
	prompt := buildReviewPrompt(q, category)

	raw, err := r.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: generatorSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return q, false, fmt.Errorf("review call: %w", err)
	}

	var draft reviewDraft
	if err := DecodeModelJSON(raw, &draft); err != nil {
		return q, false, fmt.Errorf("review parse: %w", err)
	}
	if !draft.Fixed {
		return q, false, nil
	}

	// Replace only content fields; number, part, section, marks, and the
	// internal-choice flag stay fixed.
	revised := q
	if draft.QuestionText != "" {
		revised.QuestionText = draft.QuestionText
	}
	if len(draft.Options) == 4 {
		revised.Options = draft.Options
	}
	if draft.CorrectOption != "" {
		revised.CorrectOption = draft.CorrectOption
	}
	if draft.BriefAnswerGuide != "" {
		revised.BriefAnswerGuide = draft.BriefAnswerGuide
	}
	if q.InternalChoice && len(draft.Alternatives) == len(q.Alternatives) && len(q.Alternatives) > 0 {
		for i, alt := range draft.Alternatives {
			revised.Alternatives[i].QuestionText = alt.QuestionText
			revised.Alternatives[i].AnswerGuide = alt.AnswerGuide
		}
	}

	// Preserve fields outside the base schema.
	var extra map[string]any
	if err := DecodeModelJSON(raw, &extra); err == nil {
		for key, val := range extra {
			if reviewDraftKeys[key] {
				continue
			}
			if revised.Extension == nil {
				revised.Extension = make(map[string]any)
			}
			revised.Extension[key] = val
		}
	}

	return revised, true, nil
}

func buildReviewPrompt(q model.Question, category ReviewCategory) string {
	encoded, _ := jsonutil.Marshal(q)

	var rubric string
	switch category {
	case CategoryMCQ:
		rubric = `Check that exactly one option is correct and that the distractors are parallel in form and plausibility. Reject options that are trivially wrong for the wrong reason (wrong part of speech, wrong register).`
	case CategoryGrammar:
		rubric = `Check that the transformation task has exactly one valid answer. Eliminate any ambiguity that would let two different answers both be marked correct.`
	case CategoryContent:
		rubric = `Check that the question can be answered by a student who understood the lesson, without quoting the textbook verbatim. Reduce dependence on remembering exact sentences.`
	case CategoryWriting:
		rubric = `Check that the task situation is something a 15-year-old student can relate to. Simplify formal or adult-world contexts into student-relatable ones.`
	}

	return fmt.Sprintf(`Review this drafted exam question.

%s

Question JSON:
%s

If the question needs no change, respond with exactly {"fixed": false}.
If it needs fixing, respond with {"fixed": true, ...} carrying only the replacement fields (question_text, options, correct_option, brief_answer_guide, alternatives). Never change marks or question numbering.`,
		rubric, string(encoded))
}

// structural profile of a paper, compared before and after review.
type profile struct {
	questions      int
	marks          int
	internalChoice int
	perPart        map[string]int
}

func structuralProfile(paper *model.Paper) profile {
	p := profile{perPart: make(map[string]int)}
	for _, q := range paper.AllQuestions() {
		p.questions++
		p.marks += q.Marks
		if q.InternalChoice {
			p.internalChoice++
		}
		p.perPart[q.Part]++
	}
	return p
}

func (p profile) diff(other profile) []string {
	var out []string
	if p.questions != other.questions {
		out = append(out, fmt.Sprintf("question count changed from %d to %d", p.questions, other.questions))
	}
	if p.marks != other.marks {
		out = append(out, fmt.Sprintf("total marks changed from %d to %d", p.marks, other.marks))
	}
	if p.internalChoice != other.internalChoice {
		out = append(out, fmt.Sprintf("internal-choice count changed from %d to %d", p.internalChoice, other.internalChoice))
	}
	for _, part := range []string{model.PartI, model.PartII, model.PartIII, model.PartIV} {
		if p.perPart[part] != other.perPart[part] {
			out = append(out, fmt.Sprintf("part %s count changed from %d to %d", part, p.perPart[part], other.perPart[part]))
		}
	}
	return out
}
