package biz_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/biz"
)

// compliantQuestions builds a question set satisfying all coverage rules.
func compliantQuestions() []model.Question {
	var qs []model.Question

	// Part I: 14 MCQs, units 1-7 twice each.
	for i := 0; i < 14; i++ {
		qs = append(qs, model.Question{
			QuestionNumber: i + 1,
			Part:           model.PartI,
			Unit:           i%7 + 1,
			LessonType:     model.LessonVocabulary,
			Options:        []string{"a", "b", "c", "d"},
		})
	}

	// Prose across all seven units.
	proseTitles := []string{"His First Flight", "The Night the Ghost Got In", "Empowered Women Navigating the World", "The Attic", "Tech Bloomers", "The Last Lesson", "The Dying Detective"}
	for unit := 1; unit <= 7; unit++ {
		q := model.Question{
			QuestionNumber: 14 + unit,
			Part:           model.PartII,
			Section:        "prose",
			Unit:           unit,
			LessonType:     model.LessonProse,
			LessonTitle:    proseTitles[unit-1],
		}
		if unit == 1 {
			q.InternalChoice = true
		}
		qs = append(qs, q)
	}

	// Poetry over four distinct poems.
	for i, poem := range []string{"Life", "The Grumble Family", "I Am Every Woman", "The Ant and the Cricket"} {
		qs = append(qs, model.Question{
			QuestionNumber: 22 + i,
			Part:           model.PartII,
			Section:        "poetry",
			Unit:           i + 1,
			LessonType:     model.LessonPoetry,
			LessonTitle:    poem,
		})
	}

	// Five distinct grammar areas.
	for i, area := range []string{"active and passive voice", "direct and indirect speech", "punctuation", "sentence types", "sentence rearrangement"} {
		qs = append(qs, model.Question{
			QuestionNumber: 26 + i,
			Part:           model.PartII,
			Section:        "grammar",
			LessonType:     model.LessonGrammar,
			GrammarArea:    area,
		})
	}

	// Distinct supplementary stories.
	qs = append(qs,
		model.Question{QuestionNumber: 31, Part: model.PartIII, Section: "supplementary", LessonType: model.LessonSupplementary, LessonTitle: "The Tempest"},
		model.Question{QuestionNumber: 32, Part: model.PartIII, Section: "supplementary", LessonType: model.LessonSupplementary, LessonTitle: "The Story of Mulan"},
	)

	// One memory poem from the prescribed list.
	qs = append(qs, model.Question{
		QuestionNumber: 33,
		Part:           model.PartIII,
		Section:        "memory_poem",
		LessonType:     model.LessonMemory,
		LessonTitle:    "The Road Not Taken",
	})

	// Part IV: exactly two internal-choice questions.
	qs = append(qs,
		model.Question{QuestionNumber: 34, Part: model.PartIV, Section: "essay", LessonType: model.LessonWriting, InternalChoice: true},
		model.Question{QuestionNumber: 35, Part: model.PartIV, Section: "essay", LessonType: model.LessonWriting, InternalChoice: true},
	)

	return qs
}

func TestValidateCompliantSet(t *testing.T) {
	report := biz.NewCoverageValidator().Validate(compliantQuestions())
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Violations)
}

func TestProseCoverageMissingUnit(t *testing.T) {
	qs := compliantQuestions()
	filtered := qs[:0]
	for _, q := range qs {
		if q.LessonType == model.LessonProse && q.Unit == 3 {
			continue
		}
		filtered = append(filtered, q)
	}

	report := biz.NewCoverageValidator().Validate(filtered)
	require.False(t, report.IsValid)

	var proseViolations []model.Violation
	for _, v := range report.Violations {
		if v.Rule == biz.RuleProseCoverage {
			proseViolations = append(proseViolations, v)
		}
	}
	require.Len(t, proseViolations, 1)
	assert.Contains(t, proseViolations[0].Message, "unit 3")
}

func TestPoetryDiversity(t *testing.T) {
	qs := compliantQuestions()
	for i := range qs {
		if qs[i].LessonType == model.LessonPoetry {
			qs[i].LessonTitle = "Life"
		}
	}

	report := biz.NewCoverageValidator().Validate(qs)
	assert.False(t, report.IsValid)
	assert.True(t, hasRule(report, biz.RulePoetryDiversity))
}

func TestPoetryDiversityZeroPoetryQuestions(t *testing.T) {
	qs := compliantQuestions()
	filtered := qs[:0]
	for _, q := range qs {
		if q.LessonType == model.LessonPoetry {
			continue
		}
		filtered = append(filtered, q)
	}

	report := biz.NewCoverageValidator().Validate(filtered)
	assert.False(t, report.IsValid)
	require.True(t, hasRule(report, biz.RulePoetryDiversity))
	for _, v := range report.Violations {
		if v.Rule == biz.RulePoetryDiversity {
			assert.Contains(t, v.Message, "0 distinct poems")
		}
	}
}

func TestGrammarAreaOveruse(t *testing.T) {
	qs := compliantQuestions()
	for i := range qs {
		if qs[i].GrammarArea != "" {
			qs[i].GrammarArea = "Punctuation"
		}
	}

	report := biz.NewCoverageValidator().Validate(qs)
	require.True(t, hasRule(report, biz.RuleGrammarSpread))
	for _, v := range report.Violations {
		if v.Rule == biz.RuleGrammarSpread {
			assert.Contains(t, v.Message, "punctuation")
		}
	}
}

func TestVocabularyUnitCap(t *testing.T) {
	qs := compliantQuestions()
	for i := range qs {
		if qs[i].Part == model.PartI {
			qs[i].Unit = 4
		}
	}

	report := biz.NewCoverageValidator().Validate(qs)
	require.True(t, hasRule(report, biz.RuleVocabularySpread))
}

func TestSupplementaryRepetition(t *testing.T) {
	qs := compliantQuestions()
	for i := range qs {
		if qs[i].LessonType == model.LessonSupplementary {
			qs[i].LessonTitle = "The Tempest"
		}
	}

	report := biz.NewCoverageValidator().Validate(qs)
	assert.True(t, hasRule(report, biz.RuleSupplementaryUniq))
}

func TestInternalChoiceRules(t *testing.T) {
	t.Run("missing part II prose choice", func(t *testing.T) {
		qs := compliantQuestions()
		for i := range qs {
			if qs[i].Part == model.PartII {
				qs[i].InternalChoice = false
			}
		}
		report := biz.NewCoverageValidator().Validate(qs)
		assert.True(t, hasRule(report, biz.RuleInternalChoice))
	})

	t.Run("wrong part IV count", func(t *testing.T) {
		qs := compliantQuestions()
		for i := range qs {
			if qs[i].Part == model.PartIV {
				qs[i].InternalChoice = false
				break
			}
		}
		report := biz.NewCoverageValidator().Validate(qs)
		assert.True(t, hasRule(report, biz.RuleInternalChoice))
	})
}

func TestMemoryPoemRules(t *testing.T) {
	t.Run("unlisted poem", func(t *testing.T) {
		qs := compliantQuestions()
		for i := range qs {
			if qs[i].LessonType == model.LessonMemory {
				qs[i].LessonTitle = "Ozymandias"
			}
		}
		report := biz.NewCoverageValidator().Validate(qs)
		assert.True(t, hasRule(report, biz.RuleMemoryPoemValidity))
	})

	t.Run("case-insensitive substring match", func(t *testing.T) {
		qs := compliantQuestions()
		for i := range qs {
			if qs[i].LessonType == model.LessonMemory {
				qs[i].LessonTitle = strings.ToUpper("the road not taken (memory)")
			}
		}
		report := biz.NewCoverageValidator().Validate(qs)
		assert.False(t, hasRule(report, biz.RuleMemoryPoemValidity))
	})

	t.Run("duplicate memory questions", func(t *testing.T) {
		qs := compliantQuestions()
		qs = append(qs, model.Question{
			QuestionNumber: 99,
			Part:           model.PartIII,
			LessonType:     model.LessonMemory,
			LessonTitle:    "Life",
		})
		report := biz.NewCoverageValidator().Validate(qs)
		assert.True(t, hasRule(report, biz.RuleMemoryPoemValidity))
	})
}

func TestValidateIdempotent(t *testing.T) {
	qs := compliantQuestions()
	// Break a couple of rules so the report is non-trivial.
	for i := range qs {
		if qs[i].LessonType == model.LessonPoetry {
			qs[i].LessonTitle = "Life"
		}
	}

	v := biz.NewCoverageValidator()
	first := v.Validate(qs)
	second := v.Validate(qs)

	assert.Equal(t, first.IsValid, second.IsValid)
	assert.Equal(t, first.Violations, second.Violations)
}

func hasRule(report *model.CoverageReport, rule string) bool {
	for _, v := range report.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
