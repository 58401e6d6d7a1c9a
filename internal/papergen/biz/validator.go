package biz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/papergen/internal/model"
)

// Coverage rule names as reported in violations.
const (
	RuleProseCoverage      = "prose_coverage"
	RulePoetryDiversity    = "poetry_diversity"
	RuleGrammarSpread      = "grammar_distribution"
	RuleVocabularySpread   = "vocabulary_distribution"
	RuleSupplementaryUniq  = "supplementary_uniqueness"
	RuleInternalChoice     = "internal_choice_marking"
	RuleMemoryPoemValidity = "memory_poem_validity"
)

// CoverageValidator checks a drafted question set against the curriculum
// coverage rules. It is a pure function of its input: validating the
// same question list twice yields identical reports (modulo timestamps),
// and violations never abort a run.
type CoverageValidator struct{}

// NewCoverageValidator creates a CoverageValidator.
func NewCoverageValidator() *CoverageValidator {
	return &CoverageValidator{}
}

// Validate evaluates all seven rules and returns the combined report.
func (v *CoverageValidator) Validate(questions []model.Question) *model.CoverageReport {
	var violations []model.Violation

	violations = append(violations, v.checkProseCoverage(questions)...)
	violations = append(violations, v.checkPoetryDiversity(questions)...)
	violations = append(violations, v.checkGrammarSpread(questions)...)
	violations = append(violations, v.checkVocabularySpread(questions)...)
	violations = append(violations, v.checkSupplementaryUniqueness(questions)...)
	violations = append(violations, v.checkInternalChoice(questions)...)
	violations = append(violations, v.checkMemoryPoem(questions)...)

	return &model.CoverageReport{
		IsValid:    len(violations) == 0,
		Violations: violations,
		CheckedAt:  time.Now().UTC(),
	}
}

// checkProseCoverage requires every prescribed prose unit to appear at
// least once among prose-tagged questions.
func (v *CoverageValidator) checkProseCoverage(questions []model.Question) []model.Violation {
	seen := make(map[int]bool)
	for _, q := range questions {
		if q.LessonType == model.LessonProse {
			seen[q.Unit] = true
		}
	}

	var out []model.Violation
	for _, unit := range ProseUnits() {
		if !seen[unit] {
			out = append(out, model.Violation{
				Rule:    RuleProseCoverage,
				Message: fmt.Sprintf("no prose question covers unit %d", unit),
			})
		}
	}
	return out
}

// checkPoetryDiversity requires poetry questions to span at least three
// distinct poems. A paper with no poetry questions at all is the worst
// case of the same failure and violates too.
func (v *CoverageValidator) checkPoetryDiversity(questions []model.Question) []model.Violation {
	poems := make(map[string]bool)
	for _, q := range questions {
		if q.LessonType == model.LessonPoetry && q.LessonTitle != "" {
			poems[strings.ToLower(q.LessonTitle)] = true
		}
	}
	if len(poems) >= 3 {
		return nil
	}
	return []model.Violation{{
		Rule:    RulePoetryDiversity,
		Message: fmt.Sprintf("poetry questions reference only %d distinct poems, need at least 3", len(poems)),
	}}
}

// checkGrammarSpread allows each grammar area at most twice.
func (v *CoverageValidator) checkGrammarSpread(questions []model.Question) []model.Violation {
	counts := make(map[string]int)
	for _, q := range questions {
		if q.GrammarArea != "" {
			counts[strings.ToLower(q.GrammarArea)]++
		}
	}

	areas := make([]string, 0, len(counts))
	for area := range counts {
		areas = append(areas, area)
	}
	sort.Strings(areas)

	var out []model.Violation
	for _, area := range areas {
		if counts[area] > 2 {
			out = append(out, model.Violation{
				Rule:    RuleGrammarSpread,
				Message: fmt.Sprintf("grammar area %q used %d times, maximum is 2", area, counts[area]),
			})
		}
	}
	return out
}

// checkVocabularySpread caps any one unit at 60% of the Part I MCQs.
func (v *CoverageValidator) checkVocabularySpread(questions []model.Question) []model.Violation {
	counts := make(map[int]int)
	total := 0
	for _, q := range questions {
		if q.Part == model.PartI {
			total++
			counts[q.Unit]++
		}
	}
	if total == 0 {
		return nil
	}

	units := make([]int, 0, len(counts))
	for unit := range counts {
		units = append(units, unit)
	}
	sort.Ints(units)

	var out []model.Violation
	for _, unit := range units {
		if float64(counts[unit])/float64(total) > 0.6 {
			out = append(out, model.Violation{
				Rule:    RuleVocabularySpread,
				Message: fmt.Sprintf("unit %d supplies %d of %d Part I questions, over the 60%% cap", unit, counts[unit], total),
			})
		}
	}
	return out
}

// checkSupplementaryUniqueness forbids repeating a supplementary story.
func (v *CoverageValidator) checkSupplementaryUniqueness(questions []model.Question) []model.Violation {
	counts := make(map[string]int)
	for _, q := range questions {
		if q.LessonType == model.LessonSupplementary && q.LessonTitle != "" {
			counts[strings.ToLower(q.LessonTitle)]++
		}
	}

	titles := make([]string, 0, len(counts))
	for t := range counts {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	var out []model.Violation
	for _, t := range titles {
		if counts[t] > 1 {
			out = append(out, model.Violation{
				Rule:    RuleSupplementaryUniq,
				Message: fmt.Sprintf("supplementary story %q appears %d times", t, counts[t]),
			})
		}
	}
	return out
}

// checkInternalChoice requires at least one internal-choice item in the
// Part II prose section and exactly two in Part IV.
func (v *CoverageValidator) checkInternalChoice(questions []model.Question) []model.Violation {
	partIIProse := 0
	partIV := 0
	for _, q := range questions {
		if !q.InternalChoice {
			continue
		}
		if q.Part == model.PartII && q.Section == SectionProse {
			partIIProse++
		}
		if q.Part == model.PartIV {
			partIV++
		}
	}

	var out []model.Violation
	if partIIProse < 1 {
		out = append(out, model.Violation{
			Rule:    RuleInternalChoice,
			Message: "Part II prose section has no internal-choice question",
		})
	}
	if partIV != 2 {
		out = append(out, model.Violation{
			Rule:    RuleInternalChoice,
			Message: fmt.Sprintf("Part IV has %d internal-choice questions, expected exactly 2", partIV),
		})
	}
	return out
}

// checkMemoryPoem requires exactly one memory-poem question whose title
// matches the prescribed list by case-insensitive substring.
func (v *CoverageValidator) checkMemoryPoem(questions []model.Question) []model.Violation {
	var memory []model.Question
	for _, q := range questions {
		if q.LessonType == model.LessonMemory {
			memory = append(memory, q)
		}
	}

	if len(memory) != 1 {
		return []model.Violation{{
			Rule:    RuleMemoryPoemValidity,
			Message: fmt.Sprintf("paper has %d memory-poem questions, expected exactly 1", len(memory)),
		}}
	}

	title := strings.ToLower(memory[0].LessonTitle)
	haystack := title
	if haystack == "" {
		haystack = strings.ToLower(memory[0].QuestionText)
	}
	for _, poem := range MemoryPoems() {
		if strings.Contains(haystack, strings.ToLower(poem)) {
			return nil
		}
	}
	return []model.Violation{{
		Rule:    RuleMemoryPoemValidity,
		Message: fmt.Sprintf("memory poem %q is not in the prescribed list", memory[0].LessonTitle),
	}}
}
