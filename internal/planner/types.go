// Package planner turns a resolved syllabus and a student's progress into a
// day-by-day study schedule. It performs no I/O.
package planner

import (
	"slices"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

// DateLayout is the calendar date format used for exam, start and task dates.
const DateLayout = "2006-01-02"

// Checkpoint is a progress marker a student ticks off per chapter.
type Checkpoint string

const (
	CheckpointRead      Checkpoint = "Read"
	CheckpointRevised   Checkpoint = "Revised"
	CheckpointPracticed Checkpoint = "Practiced"
	CheckpointThorough  Checkpoint = "Thorough"
)

// Checkpoints lists every checkpoint in progression order.
var Checkpoints = []Checkpoint{CheckpointRead, CheckpointRevised, CheckpointPracticed, CheckpointThorough}

// Valid reports whether c is a known checkpoint.
func (c Checkpoint) Valid() bool {
	return slices.Contains(Checkpoints, c)
}

// ChapterProgress is a student's state for one chapter. An empty Difficulty
// means the chapter's own difficulty applies.
type ChapterProgress struct {
	Difficulty  curriculum.Difficulty `json:"difficulty,omitempty"`
	Checkpoints []Checkpoint          `json:"checkpoints"`
}

// Has reports whether the checkpoint has been achieved.
func (p ChapterProgress) Has(c Checkpoint) bool {
	return slices.Contains(p.Checkpoints, c)
}

// AvailableHours is the study budget for one weekday (0 = Sunday).
type AvailableHours struct {
	Weekday int     `json:"weekday"`
	Hours   float64 `json:"hours"`
}

// Config is the part of a student's profile the scheduler reads.
type Config struct {
	SelectedSubjectIDs []string
	ChapterProgress    map[string]ChapterProgress
	ExamDate           string
	AvailableHours     []AvailableHours
	CompletedTopicIDs  []string
}

// hoursOn returns the budget for a weekday. The first matching entry wins.
func (c Config) hoursOn(weekday int) float64 {
	for _, h := range c.AvailableHours {
		if h.Weekday == weekday {
			return h.Hours
		}
	}
	return 0
}

// SessionType labels the activity a task asks for.
type SessionType string

const (
	SessionRead     SessionType = "Read & Understand"
	SessionRevise   SessionType = "Revise & Recap"
	SessionPractice SessionType = "Practice Problems"
	SessionPolish   SessionType = "Quick Polish"
)

// Sessions lists every session type in study order.
var Sessions = []SessionType{SessionRead, SessionRevise, SessionPractice, SessionPolish}

// StudyTask is one scheduled session for one chapter on one day.
type StudyTask struct {
	ID            string                `json:"id"`
	TopicID       string                `json:"topic_id"`
	ChapterID     string                `json:"chapter_id"`
	ChapterName   string                `json:"chapter_name"`
	SubjectName   string                `json:"subject_name,omitempty"`
	Session       SessionType           `json:"session"`
	ScheduledDate string                `json:"scheduled_date"`
	Duration      float64               `json:"duration"`
	Difficulty    curriculum.Difficulty `json:"difficulty"`
	IsCompleted   bool                  `json:"is_completed"`
}

// TopicID returns the completion key for a chapter's session.
// It stays stable across regenerations while the chapter remains in the same stage.
func TopicID(chapterID string, session SessionType) string {
	return chapterID + "-" + string(session)
}
