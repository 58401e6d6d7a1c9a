package biz

import (
	"math/rand"

	"github.com/kart-io/papergen/internal/model"
)

// Section names used as keys in the assembled paper tree.
const (
	SectionProse         = "prose"
	SectionPoetry        = "poetry"
	SectionGrammar       = "grammar"
	SectionRoadMap       = "road_map"
	SectionSupplementary = "supplementary"
	SectionWriting       = "writing"
	SectionMemoryPoem    = "memory_poem"
	SectionEssay         = "essay"
)

// Slot is one planned position on the paper, fixed before drafting starts.
// Question numbers are assigned here so concurrent drafting cannot reorder
// the assembled paper.
type Slot struct {
	QuestionNumber int
	Part           string
	Section        string
	Marks          int

	Unit        int
	LessonType  string
	LessonTitle string

	VocabularyType string
	GrammarArea    string
	WritingTask    string
	ImageRef       string

	InternalChoice   bool
	AlternativeCount int
}

// Part I vocabulary question types. Fourteen slots, units 1-7 used
// exactly twice each.
var vocabularyTypes = []string{
	"SYNONYM",
	"SYNONYM",
	"SYNONYM",
	"ANTONYM",
	"ANTONYM",
	"ANTONYM",
	"PLURAL FORMS",
	"PREFIX/SUFFIX/AFFIXES",
	"ABBREVIATIONS & ACRONYMS",
	"PHRASAL VERBS",
	"COMPOUND WORDS",
	"PREPOSITIONS",
	"TENSES",
	"LINKERS/CONNECTORS",
}

// Prescribed prose lessons by unit.
var proseLessons = map[int]string{
	1: "His First Flight",
	2: "The Night the Ghost Got In",
	3: "Empowered Women Navigating the World",
	4: "The Attic",
	5: "Tech Bloomers",
	6: "The Last Lesson",
	7: "The Dying Detective",
}

// Prescribed poems by unit.
var poems = map[int]string{
	1: "Life",
	2: "The Grumble Family",
	3: "I Am Every Woman",
	4: "The Ant and the Cricket",
	5: "The Secret of the Machines",
	6: "No Men Are Foreign",
	7: "The House on Elm Street",
}

// Supplementary stories by unit.
var supplementaryStories = map[int]string{
	1: "The Tempest",
	3: "The Story of Mulan",
}

// memoryPoems is the prescribed list for the memorize-and-write slot.
// Validation matches the drafted poem title against this list by
// case-insensitive substring.
var memoryPoems = []string{
	"Life",
	"The Road Not Taken",
	"No Men Are Foreign",
	"Laugh and Be Merry",
	"The River",
	"Sea Fever",
}

// Grammar areas for the five Part II grammar slots.
var grammarAreas = []string{
	"active and passive voice",
	"direct and indirect speech",
	"punctuation",
	"sentence types",
	"sentence rearrangement",
}

// Writing tasks for Part III, in question order Q39-Q44.
var writingTasks = []string{
	"letter writing",
	"email writing",
	"paragraph writing",
	"picture composition",
	"dialogue writing",
	"story development",
}

// pictureImages is the catalogue of illustrative images for picture
// composition, keyed by scene keyword. The reviser swaps images by
// matching feedback text against these keywords.
var pictureImages = map[string]string{
	"market":   "images/market_scene.png",
	"park":     "images/park_scene.png",
	"school":   "images/school_assembly.png",
	"beach":    "images/beach_scene.png",
	"traffic":  "images/traffic_signal.png",
	"festival": "images/village_festival.png",
	"library":  "images/library_reading.png",
	"farm":     "images/farm_harvest.png",
}

const defaultPictureImage = "images/park_scene.png"

// Blueprint enumerates the fixed 47-slot plan: Part I 14 vocabulary MCQs,
// Part II 14 (4 prose + 4 poetry + 5 grammar + 1 road map), Part III 17
// (4 prose + 4 poetry + 2 supplementary + 6 writing + 1 memory poem),
// Part IV 2 essays. Raw marks sum to 100.
//
// rng only drives the pairing of Part I vocabulary types with units; the
// slot order and numbering never change.
func Blueprint(rng *rand.Rand) []Slot {
	slots := make([]Slot, 0, 47)

	// Part I: Q1-Q14, one mark each. Units 1-7 appear exactly twice;
	// the shuffle varies which vocabulary type lands on which unit.
	units := make([]int, 0, 14)
	for u := 1; u <= 7; u++ {
		units = append(units, u, u)
	}
	rng.Shuffle(len(units), func(i, j int) { units[i], units[j] = units[j], units[i] })

	for i, vt := range vocabularyTypes {
		unit := units[i]
		slots = append(slots, Slot{
			QuestionNumber: i + 1,
			Part:           model.PartI,
			Marks:          1,
			Unit:           unit,
			LessonType:     model.LessonVocabulary,
			VocabularyType: vt,
		})
	}

	// Part II: Q15-Q28, two marks each.
	q := 15
	for unit := 1; unit <= 4; unit++ {
		slots = append(slots, Slot{
			QuestionNumber: q,
			Part:           model.PartII,
			Section:        SectionProse,
			Marks:          2,
			Unit:           unit,
			LessonType:     model.LessonProse,
			LessonTitle:    proseLessons[unit],
			InternalChoice: true,
		})
		q++
	}
	for unit := 1; unit <= 4; unit++ {
		slots = append(slots, Slot{
			QuestionNumber: q,
			Part:           model.PartII,
			Section:        SectionPoetry,
			Marks:          2,
			Unit:           unit,
			LessonType:     model.LessonPoetry,
			LessonTitle:    poems[unit],
		})
		q++
	}
	for _, area := range grammarAreas {
		slots = append(slots, Slot{
			QuestionNumber: q,
			Part:           model.PartII,
			Section:        SectionGrammar,
			Marks:          2,
			LessonType:     model.LessonGrammar,
			GrammarArea:    area,
		})
		q++
	}
	slots = append(slots, Slot{
		QuestionNumber: q,
		Part:           model.PartII,
		Section:        SectionRoadMap,
		Marks:          2,
		LessonType:     model.LessonWriting,
		WritingTask:    "road map directions",
	})
	q++

	// Part III: Q29-Q45.
	for unit := 4; unit <= 7; unit++ {
		slots = append(slots, Slot{
			QuestionNumber: q,
			Part:           model.PartIII,
			Section:        SectionProse,
			Marks:          2,
			Unit:           unit,
			LessonType:     model.LessonProse,
			LessonTitle:    proseLessons[unit],
		})
		q++
	}
	partIIIPoems := []struct {
		unit  int
		title string
	}{
		{5, poems[5]},
		{6, poems[6]},
		{7, poems[7]},
		{6, "Sea Fever"},
	}
	for _, p := range partIIIPoems {
		slots = append(slots, Slot{
			QuestionNumber: q,
			Part:           model.PartIII,
			Section:        SectionPoetry,
			Marks:          2,
			Unit:           p.unit,
			LessonType:     model.LessonPoetry,
			LessonTitle:    p.title,
		})
		q++
	}
	for _, unit := range []int{1, 3} {
		slots = append(slots, Slot{
			QuestionNumber: q,
			Part:           model.PartIII,
			Section:        SectionSupplementary,
			Marks:          2,
			Unit:           unit,
			LessonType:     model.LessonSupplementary,
			LessonTitle:    supplementaryStories[unit],
		})
		q++
	}
	for _, task := range writingTasks {
		slot := Slot{
			QuestionNumber: q,
			Part:           model.PartIII,
			Section:        SectionWriting,
			Marks:          3,
			LessonType:     model.LessonWriting,
			WritingTask:    task,
		}
		if task == "picture composition" {
			slot.ImageRef = defaultPictureImage
		}
		slots = append(slots, slot)
		q++
	}
	slots = append(slots, Slot{
		QuestionNumber: q,
		Part:           model.PartIII,
		Section:        SectionMemoryPoem,
		Marks:          4,
		LessonType:     model.LessonMemory,
		LessonTitle:    memoryPoems[rng.Intn(len(memoryPoems))],
	})
	q++

	// Part IV: Q46-Q47, eight marks each, both internal choice.
	slots = append(slots, Slot{
		QuestionNumber:   q,
		Part:             model.PartIV,
		Section:          SectionEssay,
		Marks:            8,
		LessonType:       model.LessonWriting,
		WritingTask:      "expanded essay",
		InternalChoice:   true,
		AlternativeCount: 2,
	})
	q++
	slots = append(slots, Slot{
		QuestionNumber:   q,
		Part:             model.PartIV,
		Section:          SectionEssay,
		Marks:            8,
		LessonType:       model.LessonWriting,
		WritingTask:      "expanded essay",
		InternalChoice:   true,
		AlternativeCount: 3,
	})

	return slots
}

// MemoryPoems returns a copy of the prescribed memory-poem list.
func MemoryPoems() []string {
	out := make([]string, len(memoryPoems))
	copy(out, memoryPoems)
	return out
}

// ProseUnits returns the unit numbers that must be covered by
// prose-tagged questions.
func ProseUnits() []int {
	return []int{1, 2, 3, 4, 5, 6, 7}
}
