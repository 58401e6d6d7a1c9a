// Package model defines the exam-paper domain types shared across the
// generation pipeline, stores, and HTTP handlers.
package model

import (
	"sort"
	"time"
)

// Part identifiers as printed on the paper.
const (
	PartI   = "I"
	PartII  = "II"
	PartIII = "III"
	PartIV  = "IV"
)

// Lesson types a question can be grounded on.
const (
	LessonProse         = "prose"
	LessonPoetry        = "poetry"
	LessonSupplementary = "supplementary"
	LessonGrammar       = "grammar"
	LessonVocabulary    = "vocabulary"
	LessonWriting       = "writing"
	LessonMemory        = "memory"
)

// PaperState tracks a generation run through its phases. A run never
// terminates in a failure state; slot failures are recorded and the paper
// is assembled from what succeeded.
type PaperState string

const (
	StatePlanning   PaperState = "PLANNING"
	StateRetrieving PaperState = "RETRIEVING"
	StateDrafting   PaperState = "DRAFTING"
	StateValidating PaperState = "VALIDATING"
	StateAssembled  PaperState = "ASSEMBLED"
)

// Alternative is one branch of an internal-choice question. Candidates
// answer either the primary question text or one of its alternatives.
type Alternative struct {
	Label        string `json:"label" bson:"label"`
	QuestionText string `json:"question_text" bson:"question_text"`
	AnswerGuide  string `json:"answer_guide,omitempty" bson:"answer_guide,omitempty"`
}

// Question is a single numbered slot on the paper. The base fields cover
// every question type; type-specific payloads (MCQ options, image
// references, grammar transformations) live in the dedicated fields and
// anything a reviewer model emits beyond them lands in Extension.
type Question struct {
	QuestionNumber int    `json:"question_number" bson:"question_number"`
	Part           string `json:"part" bson:"part"`
	Section        string `json:"section,omitempty" bson:"section,omitempty"`
	QuestionText   string `json:"question_text" bson:"question_text"`
	Marks          int    `json:"marks" bson:"marks"`

	// MCQ payload.
	Options        []string `json:"options,omitempty" bson:"options,omitempty"`
	CorrectOption  string   `json:"correct_option,omitempty" bson:"correct_option,omitempty"`
	VocabularyType string   `json:"vocabulary_type,omitempty" bson:"vocabulary_type,omitempty"`

	// Internal choice.
	InternalChoice bool          `json:"internal_choice" bson:"internal_choice"`
	Alternatives   []Alternative `json:"alternatives,omitempty" bson:"alternatives,omitempty"`

	// Grounding metadata.
	UnitName    string `json:"unit_name,omitempty" bson:"unit_name,omitempty"`
	Unit        int    `json:"unit,omitempty" bson:"unit,omitempty"`
	LessonType  string `json:"lesson_type,omitempty" bson:"lesson_type,omitempty"`
	LessonTitle string `json:"lesson_title,omitempty" bson:"lesson_title,omitempty"`
	GrammarArea string `json:"grammar_area,omitempty" bson:"grammar_area,omitempty"`

	// Writing-task payload.
	ImageRef string `json:"image_ref,omitempty" bson:"image_ref,omitempty"`

	BriefAnswerGuide string `json:"brief_answer_guide,omitempty" bson:"brief_answer_guide,omitempty"`

	// Revision bookkeeping.
	IsRevised     bool   `json:"is_revised,omitempty" bson:"is_revised,omitempty"`
	RevisionError string `json:"revision_error,omitempty" bson:"revision_error,omitempty"`

	// Extension carries fields outside the base schema so reviewer and
	// reviser output survives round-trips without schema churn.
	Extension map[string]any `json:"extension,omitempty" bson:"extension,omitempty"`
}

// Section groups questions under a printed heading inside a part.
type Section struct {
	Questions []Question `json:"questions" bson:"questions"`
}

// Part holds either flat questions (Part I) or named sections.
type Part struct {
	Questions []Question          `json:"questions,omitempty" bson:"questions,omitempty"`
	Sections  map[string]*Section `json:"sections,omitempty" bson:"sections,omitempty"`
}

// Violation is one coverage rule breach. Violations never abort a run.
type Violation struct {
	Rule    string `json:"rule" bson:"rule"`
	Message string `json:"message" bson:"message"`
}

// CoverageReport is the outcome of validating an assembled paper against
// the syllabus coverage rules.
type CoverageReport struct {
	IsValid    bool        `json:"is_valid" bson:"is_valid"`
	Violations []Violation `json:"violations,omitempty" bson:"violations,omitempty"`
	CheckedAt  time.Time   `json:"checked_at" bson:"checked_at"`
}

// SlotFailure records one question slot the drafting phase could not fill.
type SlotFailure struct {
	QuestionNumber int    `json:"question_number" bson:"question_number"`
	Part           string `json:"part" bson:"part"`
	Section        string `json:"section,omitempty" bson:"section,omitempty"`
	Error          string `json:"error" bson:"error"`
}

// RunReport captures diagnostics for one generation run.
type RunReport struct {
	Seed         int64            `json:"seed" bson:"seed"`
	StartedAt    time.Time        `json:"started_at" bson:"started_at"`
	FinishedAt   time.Time        `json:"finished_at" bson:"finished_at"`
	SlotFailures []SlotFailure    `json:"slot_failures,omitempty" bson:"slot_failures,omitempty"`
	PhaseTimings map[string]int64 `json:"phase_timings_ms,omitempty" bson:"phase_timings_ms,omitempty"`
}

// Paper is a fully assembled exam paper.
type Paper struct {
	ID        string     `json:"id" bson:"_id"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	State     PaperState `json:"state" bson:"state"`

	Parts map[string]*Part `json:"parts" bson:"parts"`

	TotalMarks    int `json:"total_marks" bson:"total_marks"`
	QuestionCount int `json:"question_count" bson:"question_count"`

	CoverageValidation *CoverageReport `json:"coverage_validation,omitempty" bson:"coverage_validation,omitempty"`
	ValidationPassed   bool            `json:"validation_passed" bson:"validation_passed"`

	RunReport *RunReport `json:"run_report,omitempty" bson:"run_report,omitempty"`
}

// AllQuestions walks the paper in question-number order and returns every
// question. Missing slots (dropped by drafting failures) simply do not
// appear.
func (p *Paper) AllQuestions() []Question {
	var out []Question
	for _, partName := range []string{PartI, PartII, PartIII, PartIV} {
		part, ok := p.Parts[partName]
		if !ok || part == nil {
			continue
		}
		out = append(out, part.Questions...)
		for _, sec := range part.Sections {
			out = append(out, sec.Questions...)
		}
	}
	sortQuestions(out)
	return out
}

// FindQuestion returns the question with the given number, or nil.
func (p *Paper) FindQuestion(number int) *Question {
	for _, part := range p.Parts {
		if part == nil {
			continue
		}
		for i := range part.Questions {
			if part.Questions[i].QuestionNumber == number {
				return &part.Questions[i]
			}
		}
		for _, sec := range part.Sections {
			for i := range sec.Questions {
				if sec.Questions[i].QuestionNumber == number {
					return &sec.Questions[i]
				}
			}
		}
	}
	return nil
}

// ReplaceQuestion swaps the question with the same number in place.
// It reports whether a slot with that number existed.
func (p *Paper) ReplaceQuestion(q Question) bool {
	target := p.FindQuestion(q.QuestionNumber)
	if target == nil {
		return false
	}
	*target = q
	return true
}

// Recount recomputes question count and raw total marks from the tree.
func (p *Paper) Recount() {
	count, marks := 0, 0
	for _, q := range p.AllQuestions() {
		count++
		marks += q.Marks
	}
	p.QuestionCount = count
	p.TotalMarks = marks
}

func sortQuestions(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].QuestionNumber < qs[j].QuestionNumber })
}

// RevisionRecord is one append-only revision history entry for a paper.
type RevisionRecord struct {
	ID             string    `json:"id" bson:"_id"`
	PaperID        string    `json:"paper_id" bson:"paper_id"`
	QuestionNumber int       `json:"question_number" bson:"question_number"`
	Feedback       string    `json:"feedback" bson:"feedback"`
	Original       Question  `json:"original" bson:"original"`
	Revised        Question  `json:"revised" bson:"revised"`
	IsRevised      bool      `json:"is_revised" bson:"is_revised"`
	Error          string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
