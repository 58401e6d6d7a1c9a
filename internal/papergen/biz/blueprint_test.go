package biz_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/papergen/internal/model"
	"github.com/kart-io/papergen/internal/papergen/biz"
)

func TestBlueprintShape(t *testing.T) {
	slots := biz.Blueprint(rand.New(rand.NewSource(1)))
	require.Len(t, slots, 47)

	perPart := make(map[string]int)
	marks := 0
	for i, slot := range slots {
		assert.Equal(t, i+1, slot.QuestionNumber, "slot order must match numbering")
		perPart[slot.Part]++
		marks += slot.Marks
	}

	assert.Equal(t, 14, perPart[model.PartI])
	assert.Equal(t, 14, perPart[model.PartII])
	assert.Equal(t, 17, perPart[model.PartIII])
	assert.Equal(t, 2, perPart[model.PartIV])
	assert.Equal(t, 100, marks)
}

func TestBlueprintPartIUnitDistribution(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		slots := biz.Blueprint(rand.New(rand.NewSource(seed)))

		unitCounts := make(map[int]int)
		for _, slot := range slots {
			if slot.Part == model.PartI {
				unitCounts[slot.Unit]++
			}
		}

		require.Len(t, unitCounts, 7, "seed %d", seed)
		for unit := 1; unit <= 7; unit++ {
			assert.Equal(t, 2, unitCounts[unit], "seed %d unit %d", seed, unit)
		}
	}
}

func TestBlueprintDeterministicPerSeed(t *testing.T) {
	first := biz.Blueprint(rand.New(rand.NewSource(42)))
	second := biz.Blueprint(rand.New(rand.NewSource(42)))
	assert.Equal(t, first, second)
}

func TestBlueprintInternalChoiceSlots(t *testing.T) {
	slots := biz.Blueprint(rand.New(rand.NewSource(7)))

	partIIProse := 0
	partIV := 0
	for _, slot := range slots {
		if !slot.InternalChoice {
			continue
		}
		switch {
		case slot.Part == model.PartII && slot.Section == biz.SectionProse:
			partIIProse++
		case slot.Part == model.PartIV:
			partIV++
			assert.GreaterOrEqual(t, slot.AlternativeCount, 2)
		}
	}

	assert.Equal(t, 4, partIIProse)
	assert.Equal(t, 2, partIV)
}

func TestBlueprintMemoryPoemFromPrescribedList(t *testing.T) {
	prescribed := biz.MemoryPoems()
	for seed := int64(1); seed <= 10; seed++ {
		slots := biz.Blueprint(rand.New(rand.NewSource(seed)))
		var memory []biz.Slot
		for _, slot := range slots {
			if slot.LessonType == model.LessonMemory {
				memory = append(memory, slot)
			}
		}
		require.Len(t, memory, 1, "seed %d", seed)
		assert.Contains(t, prescribed, memory[0].LessonTitle, "seed %d", seed)
	}
}
