package planner

import (
	"math/rand/v2"
	"slices"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const (
	readHours   = 1.0
	polishHours = 0.33

	// jitterSpan is the width of the shuffle jitter, centred on zero.
	jitterSpan = 20.0
)

var reviseHours = map[curriculum.Difficulty]float64{
	curriculum.DifficultyEasy:   0.42,
	curriculum.DifficultyMedium: 0.67,
	curriculum.DifficultyHard:   1.25,
}

var practiceHours = map[curriculum.Difficulty]float64{
	curriculum.DifficultyEasy:   0.5,
	curriculum.DifficultyMedium: 0.75,
	curriculum.DifficultyHard:   1.0,
}

var difficultyScore = map[curriculum.Difficulty]float64{
	curriculum.DifficultyEasy:   10,
	curriculum.DifficultyMedium: 20,
	curriculum.DifficultyHard:   30,
}

// Stage scores. Finishing a started chapter outranks starting a new one.
const (
	scoreUnread      = 40
	scoreUnrevised   = 60
	scoreUnpracticed = 30
	scorePolish      = 10
)

type candidate struct {
	chapter     curriculum.Chapter
	subjectID   string
	subjectName string
	session     SessionType
	duration    float64
	score       float64
	difficulty  curriculum.Difficulty
}

// nextSession picks the first stage the chapter has not completed.
// Thorough does not gate any stage.
func nextSession(p ChapterProgress, d curriculum.Difficulty) (SessionType, float64, float64) {
	switch {
	case !p.Has(CheckpointRead):
		return SessionRead, readHours, scoreUnread
	case !p.Has(CheckpointRevised):
		return SessionRevise, reviseHours[d], scoreUnrevised
	case !p.Has(CheckpointPracticed):
		return SessionPractice, practiceHours[d], scoreUnpracticed
	default:
		return SessionPolish, polishHours, scorePolish
	}
}

func effectiveDifficulty(ch curriculum.Chapter, p ChapterProgress) curriculum.Difficulty {
	d := ch.Difficulty
	if p.Difficulty != "" {
		d = p.Difficulty
	}
	if !d.Valid() {
		return curriculum.DifficultyMedium
	}
	return d
}

// candidates builds one session per chapter of every selected subject,
// sorted by descending score. Ties keep syllabus order.
func candidates(syllabus curriculum.Syllabus, cfg Config, jitter func() float64) []candidate {
	var out []candidate
	for _, subj := range syllabus.Subjects {
		if !slices.Contains(cfg.SelectedSubjectIDs, subj.ID) {
			continue
		}
		for _, ch := range subj.Chapters {
			p := cfg.ChapterProgress[ch.ID]
			d := effectiveDifficulty(ch, p)
			session, duration, stage := nextSession(p, d)

			score := difficultyScore[d] + stage
			if jitter != nil {
				score += jitter()
			}

			out = append(out, candidate{
				chapter:     ch,
				subjectID:   subj.ID,
				subjectName: subj.Name,
				session:     session,
				duration:    duration,
				score:       score,
				difficulty:  d,
			})
		}
	}

	slices.SortStableFunc(out, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	return out
}

func newJitter(r *rand.Rand) func() float64 {
	if r == nil {
		return func() float64 { return rand.Float64()*jitterSpan - jitterSpan/2 }
	}
	return func() float64 { return r.Float64()*jitterSpan - jitterSpan/2 }
}
