package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/store"
)

// PaperService is the application-facing surface of the pipeline.
type PaperService interface {
	// GeneratePaper runs a full generation and persists the result.
	GeneratePaper(ctx context.Context, seed int64) (*model.Paper, error)

	// GetPaper fetches a persisted paper.
	GetPaper(ctx context.Context, id string) (*model.Paper, error)

	// GetCoverage fetches a paper's coverage report.
	GetCoverage(ctx context.Context, id string) (*model.CoverageReport, error)

	// ReviewPaper runs the quality-review pass over a persisted paper and
	// saves the reviewed version.
	ReviewPaper(ctx context.Context, id string) (*model.Paper, *ReviewReport, error)

	// ReviseQuestion redrafts one question from feedback, splices it into
	// the paper, and persists both the paper and the revision record.
	ReviseQuestion(ctx context.Context, paperID string, questionNumber int, feedback string) (model.Question, error)

	// ListRevisions returns the paper's append-only revision history.
	ListRevisions(ctx context.Context, paperID string) ([]model.RevisionRecord, error)
}

type paperService struct {
	orchestrator *PaperOrchestrator
	reviewer     *QualityReviewer
	reviser      *QuestionReviser
	papers       store.PaperStore
	revisions    store.RevisionStore
}

var _ PaperService = (*paperService)(nil)

// NewPaperService wires the pipeline components into a PaperService.
func NewPaperService(orchestrator *PaperOrchestrator, reviewer *QualityReviewer, reviser *QuestionReviser, papers store.PaperStore, revisions store.RevisionStore) PaperService {
	return &paperService{
		orchestrator: orchestrator,
		reviewer:     reviewer,
		reviser:      reviser,
		papers:       papers,
		revisions:    revisions,
	}
}

func (s *paperService) GeneratePaper(ctx context.Context, seed int64) (*model.Paper, error) {
	paper, err := s.orchestrator.GeneratePaper(ctx, seed)
	if err != nil {
		return nil, err
	}
	if err := s.papers.SavePaper(ctx, paper); err != nil {
		return nil, fmt.Errorf("persist paper: %w", err)
	}
	return paper, nil
}

func (s *paperService) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	return s.papers.GetPaper(ctx, id)
}

func (s *paperService) GetCoverage(ctx context.Context, id string) (*model.CoverageReport, error) {
	paper, err := s.papers.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	if paper.CoverageValidation == nil {
		return &model.CoverageReport{IsValid: true}, nil
	}
	return paper.CoverageValidation, nil
}

func (s *paperService) ReviewPaper(ctx context.Context, id string) (*model.Paper, *ReviewReport, error) {
	paper, err := s.papers.GetPaper(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	report := s.reviewer.Review(ctx, paper)

	if err := s.papers.SavePaper(ctx, paper); err != nil {
		return nil, nil, fmt.Errorf("persist reviewed paper: %w", err)
	}
	return paper, report, nil
}

func (s *paperService) ReviseQuestion(ctx context.Context, paperID string, questionNumber int, feedback string) (model.Question, error) {
	paper, err := s.papers.GetPaper(ctx, paperID)
	if err != nil {
		return model.Question{}, err
	}

	original := paper.FindQuestion(questionNumber)
	if original == nil {
		return model.Question{}, fmt.Errorf("paper %s has no question %d", paperID, questionNumber)
	}

	revised := s.reviser.Revise(ctx, paper, *original, feedback)

	paper.ReplaceQuestion(revised)
	if err := s.papers.SavePaper(ctx, paper); err != nil {
		return model.Question{}, fmt.Errorf("persist revised paper: %w", err)
	}
	return revised, nil
}

func (s *paperService) ListRevisions(ctx context.Context, paperID string) ([]model.RevisionRecord, error) {
	return s.revisions.ListRevisions(ctx, paperID)
}
