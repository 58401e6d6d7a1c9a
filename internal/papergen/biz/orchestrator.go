package biz

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/papergen/internal/model"
)

// OrchestratorConfig tunes a generation run.
type OrchestratorConfig struct {
	// Concurrency bounds the drafting worker pool.
	Concurrency int

	// DefaultSeed seeds runs that do not carry their own seed. Zero
	// keeps the time-based fallback.
	DefaultSeed int64
}

// PaperOrchestrator drives one generation run through
// PLANNING, RETRIEVING, DRAFTING, VALIDATING, and ASSEMBLED. There is no
// failed terminal state: slots that cannot be drafted are logged,
// recorded in the run report, and omitted from the paper.
type PaperOrchestrator struct {
	assembler *ContextAssembler
	generator *QuestionGenerator
	validator *CoverageValidator
	cfg       OrchestratorConfig
}

// NewPaperOrchestrator creates a PaperOrchestrator.
func NewPaperOrchestrator(assembler *ContextAssembler, generator *QuestionGenerator, validator *CoverageValidator, cfg OrchestratorConfig) *PaperOrchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &PaperOrchestrator{
		assembler: assembler,
		generator: generator,
		validator: validator,
		cfg:       cfg,
	}
}

// GeneratePaper runs the full pipeline and returns the assembled paper.
// seed drives blueprint shuffling; pass 0 to fall back to the configured
// default seed, or to the clock when no default is set.
// The only errors returned are construction-level (worker pool); drafting
// failures degrade to a partial paper.
func (o *PaperOrchestrator) GeneratePaper(ctx context.Context, seed int64) (*model.Paper, error) {
	if seed == 0 {
		seed = o.cfg.DefaultSeed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	report := &model.RunReport{
		Seed:         seed,
		StartedAt:    time.Now().UTC(),
		PhaseTimings: make(map[string]int64),
	}
	paper := &model.Paper{
		ID:        uuid.New().String(),
		CreatedAt: report.StartedAt,
		State:     model.StatePlanning,
		Parts:     make(map[string]*model.Part),
		RunReport: report,
	}

	// PLANNING: enumerate the blueprint; question numbers are fixed here
	// so concurrent drafting cannot reorder the paper.
	phaseStart := time.Now()
	rng := rand.New(rand.NewSource(seed))
	slots := Blueprint(rng)
	report.PhaseTimings["planning_ms"] = time.Since(phaseStart).Milliseconds()

	var vocabularySlots, regularSlots []Slot
	for _, slot := range slots {
		if slot.Part == model.PartI {
			vocabularySlots = append(vocabularySlots, slot)
		} else {
			regularSlots = append(regularSlots, slot)
		}
	}

	// Retrieval is issued per slot inside the drafting workers, so the
	// RETRIEVING phase overlaps DRAFTING rather than preceding it.
	paper.State = model.StateRetrieving
	phaseStart = time.Now()

	pool, err := ants.NewPool(o.cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create drafting pool: %w", err)
	}
	defer pool.Release()

	paper.State = model.StateDrafting

	var (
		mu        sync.Mutex
		questions []model.Question
		wg        sync.WaitGroup
	)
	recordFailure := func(slot Slot, err error) {
		logger.Warnw("slot drafting failed, omitting question",
			"paper_id", paper.ID, "question_number", slot.QuestionNumber, "error", err)
		mu.Lock()
		report.SlotFailures = append(report.SlotFailures, model.SlotFailure{
			QuestionNumber: slot.QuestionNumber,
			Part:           slot.Part,
			Section:        slot.Section,
			Error:          err.Error(),
		})
		mu.Unlock()
	}

	// Part I is one batch call covering all fourteen slots.
	wg.Add(1)
	submitErr := pool.Submit(func() {
		defer wg.Done()
		grounding := o.assembler.Assemble(ctx, Slot{LessonType: model.LessonVocabulary})
		batch, err := o.generator.GenerateVocabularyBatch(ctx, vocabularySlots, grounding)
		if err != nil {
			for _, slot := range vocabularySlots {
				recordFailure(slot, err)
			}
			return
		}
		drafted := make(map[int]bool, len(batch))
		for _, q := range batch {
			drafted[q.QuestionNumber] = true
		}
		for _, slot := range vocabularySlots {
			if !drafted[slot.QuestionNumber] {
				recordFailure(slot, fmt.Errorf("missing from vocabulary batch output"))
			}
		}
		mu.Lock()
		questions = append(questions, batch...)
		mu.Unlock()
	})
	if submitErr != nil {
		wg.Done()
		for _, slot := range vocabularySlots {
			recordFailure(slot, submitErr)
		}
	}

	for _, slot := range regularSlots {
		slot := slot
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			grounding := o.assembler.Assemble(ctx, slot)
			q, err := o.generator.Generate(ctx, slot, grounding)
			if err != nil {
				recordFailure(slot, err)
				return
			}
			mu.Lock()
			questions = append(questions, q)
			mu.Unlock()
		}); err != nil {
			wg.Done()
			recordFailure(slot, err)
		}
	}

	wg.Wait()
	report.PhaseTimings["drafting_ms"] = time.Since(phaseStart).Milliseconds()

	// VALIDATING: coverage violations are recorded, never fatal.
	paper.State = model.StateValidating
	phaseStart = time.Now()
	coverage := o.validator.Validate(questions)
	report.PhaseTimings["validating_ms"] = time.Since(phaseStart).Milliseconds()

	assemblePaper(paper, questions)
	paper.CoverageValidation = coverage
	paper.ValidationPassed = coverage.IsValid
	paper.State = model.StateAssembled
	report.FinishedAt = time.Now().UTC()

	logger.Infow("paper assembled",
		"paper_id", paper.ID,
		"questions", paper.QuestionCount,
		"total_marks", paper.TotalMarks,
		"slot_failures", len(report.SlotFailures),
		"coverage_valid", coverage.IsValid)
	return paper, nil
}

// assemblePaper groups drafted questions into the part -> section tree.
// Part I questions sit directly under the part; the rest group by their
// section name.
func assemblePaper(paper *model.Paper, questions []model.Question) {
	for _, q := range questions {
		part, ok := paper.Parts[q.Part]
		if !ok {
			part = &model.Part{}
			paper.Parts[q.Part] = part
		}
		if q.Part == model.PartI || q.Section == "" {
			part.Questions = append(part.Questions, q)
			continue
		}
		if part.Sections == nil {
			part.Sections = make(map[string]*model.Section)
		}
		sec, ok := part.Sections[q.Section]
		if !ok {
			sec = &model.Section{}
			part.Sections[q.Section] = sec
		}
		sec.Questions = append(sec.Questions, q)
	}

	for _, part := range paper.Parts {
		sortQuestionsInPart(part)
	}
	paper.Recount()
}

func sortQuestionsInPart(part *model.Part) {
	sortByNumber(part.Questions)
	for _, sec := range part.Sections {
		sortByNumber(sec.Questions)
	}
}

func sortByNumber(qs []model.Question) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].QuestionNumber < qs[j].QuestionNumber })
}
