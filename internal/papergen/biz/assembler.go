package biz

import (
	"context"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/store"
)

// AssemblerConfig bounds the grounding context.
type AssemblerConfig struct {
	MaxChunks int
	MaxChars  int
}

// ContextAssembler turns one blueprint slot into a bounded grounding
// context string by retrieving and ordering content chunks.
type ContextAssembler struct {
	retriever *Retriever
	cfg       AssemblerConfig
}

// NewContextAssembler creates a ContextAssembler.
func NewContextAssembler(retriever *Retriever, cfg AssemblerConfig) *ContextAssembler {
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 50
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 12000
	}
	return &ContextAssembler{retriever: retriever, cfg: cfg}
}

// Assemble retrieves grounding for the slot. An empty string is a valid
// outcome; drafting proceeds ungrounded rather than aborting.
func (a *ContextAssembler) Assemble(ctx context.Context, slot Slot) string {
	query := slotQuery(slot)
	filters := store.SearchFilters{
		Unit:       slot.Unit,
		Topic:      slot.LessonTitle,
		LessonType: slot.LessonType,
	}

	results := a.retriever.Search(ctx, query, filters)
	if len(results) == 0 && filters.Topic != "" {
		// Broaden: drop the topic constraint, keep the unit.
		filters.Topic = ""
		results = a.retriever.Search(ctx, query, filters)
	}
	if len(results) == 0 {
		logger.Debugw("no grounding retrieved for slot",
			"question_number", slot.QuestionNumber, "unit", slot.Unit, "lesson_type", slot.LessonType)
		return ""
	}

	if len(results) > a.cfg.MaxChunks {
		results = results[:a.cfg.MaxChunks]
	}

	// Poems and vocabulary exercises are ingested as many small chunks;
	// regroup them by sub-topic and position so the context reads as a
	// coherent unit instead of relevance-ordered fragments.
	if slot.LessonType == model.LessonPoetry || slot.LessonType == model.LessonVocabulary || slot.LessonType == model.LessonMemory {
		results = groupFragments(results)
	}

	var b strings.Builder
	for _, res := range results {
		text := strings.TrimSpace(res.Chunk.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			if b.Len()+len(text)+2 > a.cfg.MaxChars {
				break
			}
			b.WriteString("\n\n")
		} else if len(text) > a.cfg.MaxChars {
			b.WriteString(text[:a.cfg.MaxChars])
			break
		}
		b.WriteString(text)
	}
	return b.String()
}

// groupFragments orders results by sub-topic, then by position within
// each sub-topic, preserving the best fused score per group for group
// ordering.
func groupFragments(results []store.SearchResult) []store.SearchResult {
	groups := make(map[string][]store.SearchResult)
	groupBest := make(map[string]float64)
	var groupOrder []string

	for _, res := range results {
		key := res.Chunk.SubTopic
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
			groupBest[key] = res.Score
		}
		groups[key] = append(groups[key], res)
	}

	sort.SliceStable(groupOrder, func(i, j int) bool {
		return groupBest[groupOrder[i]] > groupBest[groupOrder[j]]
	})

	out := make([]store.SearchResult, 0, len(results))
	for _, key := range groupOrder {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Chunk.Position < group[j].Chunk.Position
		})
		out = append(out, group...)
	}
	return out
}

func slotQuery(slot Slot) string {
	parts := make([]string, 0, 4)
	if slot.LessonTitle != "" {
		parts = append(parts, slot.LessonTitle)
	}
	if slot.VocabularyType != "" {
		parts = append(parts, slot.VocabularyType)
	}
	if slot.GrammarArea != "" {
		parts = append(parts, slot.GrammarArea)
	}
	if slot.WritingTask != "" {
		parts = append(parts, slot.WritingTask)
	}
	if slot.LessonType != "" {
		parts = append(parts, slot.LessonType)
	}
	return strings.Join(parts, " ")
}
