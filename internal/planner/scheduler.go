package planner

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const (
	// overflowHours lets one slightly-too-long session finish a day.
	overflowHours = 0.5
	// varietyBonus favours subjects not yet scheduled on the day being packed.
	varietyBonus = 15
)

// Options tunes a single Generate call.
type Options struct {
	// StartDate is the first day to pack (YYYY-MM-DD). Empty means today.
	StartDate string
	// Shuffle adds random jitter to priorities so repeated requests vary.
	Shuffle bool
	// Rand drives the jitter. Nil uses the global source.
	Rand *rand.Rand
	// Now defaults to time.Now.
	Now func() time.Time
}

// Generate packs study sessions onto calendar days from the start date up
// to, but excluding, the exam date. Chapters that do not fit before the exam
// are left out. The result is ordered by date, then by packing order.
func Generate(syllabus curriculum.Syllabus, cfg Config, opts Options) ([]StudyTask, error) {
	start, err := startDate(opts)
	if err != nil {
		return nil, err
	}
	exam, err := time.Parse(DateLayout, cfg.ExamDate)
	if err != nil {
		return nil, fmt.Errorf("parsing exam date: %w", err)
	}

	var jitter func() float64
	if opts.Shuffle {
		jitter = newJitter(opts.Rand)
	}
	remaining := candidates(syllabus, cfg, jitter)

	completed := make(map[string]bool, len(cfg.CompletedTopicIDs))
	for _, id := range cfg.CompletedTopicIDs {
		completed[id] = true
	}

	tasks := []StudyTask{}
	for day := start; len(remaining) > 0 && day.Before(exam); day = day.AddDate(0, 0, 1) {
		target := cfg.hoursOn(int(day.Weekday()))
		date := day.Format(DateLayout)

		var placed []placement
		placed, remaining = packDay(remaining, target)
		for _, p := range placed {
			tasks = append(tasks, materialize(p, date, completed))
		}
	}
	return tasks, nil
}

func startDate(opts Options) (time.Time, error) {
	if opts.StartDate == "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		y, m, d := now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(DateLayout, opts.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing start date: %w", err)
	}
	return t, nil
}

type placement struct {
	candidate
	filledBefore float64
}

// packDay fills one day greedily and returns what was placed along with the
// candidates still waiting. remaining is consumed.
func packDay(remaining []candidate, target float64) ([]placement, []candidate) {
	ceiling := target + overflowHours
	filled := 0.0
	usedSubjects := make(map[string]bool)
	var placed []placement

	for filled < target {
		best := -1
		bestScore := math.Inf(-1)
		for i, c := range remaining {
			if c.duration > ceiling-filled {
				continue
			}
			score := c.score
			if !usedSubjects[c.subjectID] {
				score += varietyBonus
			}
			// Strictly greater keeps the first of equal scores.
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		c := remaining[best]
		placed = append(placed, placement{candidate: c, filledBefore: filled})
		filled += c.duration
		usedSubjects[c.subjectID] = true
		remaining = slices.Delete(remaining, best, best+1)
	}
	return placed, remaining
}

func materialize(p placement, date string, completed map[string]bool) StudyTask {
	topicID := TopicID(p.chapter.ID, p.session)
	return StudyTask{
		ID:            fmt.Sprintf("task-%s-%s-%.2f", p.chapter.ID, date, p.filledBefore),
		TopicID:       topicID,
		ChapterID:     p.chapter.ID,
		ChapterName:   p.chapter.Name,
		SubjectName:   p.subjectName,
		Session:       p.session,
		ScheduledDate: date,
		Duration:      math.Round(p.duration*100) / 100,
		Difficulty:    p.difficulty,
		IsCompleted:   completed[topicID],
	}
}
