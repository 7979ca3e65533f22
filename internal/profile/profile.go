// Package profile holds the per-student planning document and the rules for
// changing it.
package profile

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/gamification"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

// DefaultExamLeadDays is how far out a new student's exam date is set.
const DefaultExamLeadDays = 60

var (
	ErrUnknownCheckpoint = errors.New("unknown checkpoint")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidHours      = errors.New("invalid hours")
	ErrUnknownTopic      = errors.New("unknown topic")
)

// DefaultWeeklyHours is the study budget given to new students.
var DefaultWeeklyHours = []planner.AvailableHours{
	{Weekday: 0, Hours: 6},
	{Weekday: 1, Hours: 3},
	{Weekday: 2, Hours: 3},
	{Weekday: 3, Hours: 3},
	{Weekday: 4, Hours: 3},
	{Weekday: 5, Hours: 3},
	{Weekday: 6, Hours: 5},
}

// DailyRoutine records a student's fixed daily events as HH:MM times.
type DailyRoutine struct {
	WakeTime           string `json:"wake_time"`
	MorningFreshUpTime string `json:"morning_fresh_up_time"`
	EveningFreshUpTime string `json:"evening_fresh_up_time"`
	BedTime            string `json:"bed_time"`
	BreakfastTime      string `json:"breakfast_time"`
	LunchTime          string `json:"lunch_time"`
	SnackTime          string `json:"snack_time"`
	DinnerTime         string `json:"dinner_time"`
	SchoolStartTime    string `json:"school_start_time"`
	SchoolEndTime      string `json:"school_end_time"`
	FreeSlotBuffers    int    `json:"free_slot_buffers"`
}

// Profile is everything stored for one student, keyed by email.
type Profile struct {
	Email              string                             `json:"email"`
	Name               string                             `json:"name"`
	Phone              string                             `json:"phone"`
	SchoolName         string                             `json:"school_name"`
	Board              string                             `json:"board"`
	ClassLevel         int                                `json:"class_level"`
	SelectedSubjectIDs []string                           `json:"selected_subject_ids"`
	CustomSubjects     []curriculum.Subject               `json:"custom_subjects"`
	ManualChapters     map[string][]curriculum.Chapter    `json:"manual_chapters"`
	ExamDate           string                             `json:"exam_date"`
	AvailableHours     []planner.AvailableHours           `json:"available_hours"`
	ChapterProgress    map[string]planner.ChapterProgress `json:"chapter_progress"`
	CompletedTopicIDs  []string                           `json:"completed_topic_ids"`
	DailyRoutine       *DailyRoutine                      `json:"daily_routine,omitempty"`
	Onboarded          bool                               `json:"onboarded"`
	Gamification       gamification.State                 `json:"gamification"`
	UpdatedAt          time.Time                          `json:"updated_at"`
}

// New returns a profile with the defaults a fresh sign-up gets.
func New(email, name string, now time.Time) *Profile {
	return &Profile{
		Email:              email,
		Name:               name,
		Board:              curriculum.DefaultBoard,
		ClassLevel:         curriculum.DefaultClassLevel,
		SelectedSubjectIDs: []string{},
		CustomSubjects:     []curriculum.Subject{},
		ManualChapters:     map[string][]curriculum.Chapter{},
		ExamDate:           now.AddDate(0, 0, DefaultExamLeadDays).Format(planner.DateLayout),
		AvailableHours:     slices.Clone(DefaultWeeklyHours),
		ChapterProgress:    map[string]planner.ChapterProgress{},
		CompletedTopicIDs:  []string{},
		Gamification:       gamification.State{UnlockedAchievementIDs: []string{}},
		UpdatedAt:          now,
	}
}

// ToggleCheckpoint adds the checkpoint to a chapter, or removes it if present.
func (p *Profile) ToggleCheckpoint(chapterID string, cp planner.Checkpoint) error {
	if !cp.Valid() {
		return ErrUnknownCheckpoint
	}
	if p.ChapterProgress == nil {
		p.ChapterProgress = map[string]planner.ChapterProgress{}
	}

	prog := p.ChapterProgress[chapterID]
	if i := slices.Index(prog.Checkpoints, cp); i >= 0 {
		prog.Checkpoints = slices.Delete(slices.Clone(prog.Checkpoints), i, i+1)
	} else {
		prog.Checkpoints = append(slices.Clone(prog.Checkpoints), cp)
	}
	p.ChapterProgress[chapterID] = prog
	return nil
}

// SetChapterDifficulty overrides a chapter's difficulty for this student.
func (p *Profile) SetChapterDifficulty(chapterID string, d curriculum.Difficulty) error {
	if !d.Valid() {
		return ErrInvalidDifficulty
	}
	if p.ChapterProgress == nil {
		p.ChapterProgress = map[string]planner.ChapterProgress{}
	}
	prog := p.ChapterProgress[chapterID]
	prog.Difficulty = d
	p.ChapterProgress[chapterID] = prog
	return nil
}

// ToggleTopicCompleted flips a task's completion and returns the new state.
func (p *Profile) ToggleTopicCompleted(topicID string) bool {
	if i := slices.Index(p.CompletedTopicIDs, topicID); i >= 0 {
		p.CompletedTopicIDs = slices.Delete(p.CompletedTopicIDs, i, i+1)
		return false
	}
	p.CompletedTopicIDs = append(p.CompletedTopicIDs, topicID)
	return true
}

// HasTopic reports whether topicID names a session of a chapter in one of the
// student's selected subjects.
func (p *Profile) HasTopic(s curriculum.Syllabus, topicID string) bool {
	for _, subj := range s.Subjects {
		if !slices.Contains(p.SelectedSubjectIDs, subj.ID) {
			continue
		}
		for _, ch := range subj.Chapters {
			for _, session := range planner.Sessions {
				if planner.TopicID(ch.ID, session) == topicID {
					return true
				}
			}
		}
	}
	return false
}

// AddCustomSubject creates a subject the student fills with their own
// chapters and selects it.
func (p *Profile) AddCustomSubject(name, id string) curriculum.Subject {
	subj := curriculum.Subject{
		ID:       id,
		Name:     curriculum.NormalizeName(name),
		Chapters: []curriculum.Chapter{},
		IsCustom: true,
		IsManual: true,
	}
	p.CustomSubjects = append(p.CustomSubjects, subj)
	if !slices.Contains(p.SelectedSubjectIDs, id) {
		p.SelectedSubjectIDs = append(p.SelectedSubjectIDs, id)
	}
	return subj
}

// AddManualChapter adds a chapter to a custom subject, or to the student's
// chapters for a manual board subject. A missing difficulty becomes Medium.
func (p *Profile) AddManualChapter(subjectID string, ch curriculum.Chapter) error {
	if ch.Difficulty == "" {
		ch.Difficulty = curriculum.DifficultyMedium
	}
	if !ch.Difficulty.Valid() {
		return ErrInvalidDifficulty
	}
	ch.Name = curriculum.NormalizeName(ch.Name)

	for i := range p.CustomSubjects {
		if p.CustomSubjects[i].ID == subjectID {
			p.CustomSubjects[i].Chapters = append(p.CustomSubjects[i].Chapters, ch)
			return nil
		}
	}

	if p.ManualChapters == nil {
		p.ManualChapters = map[string][]curriculum.Chapter{}
	}
	p.ManualChapters[subjectID] = append(p.ManualChapters[subjectID], ch)
	return nil
}

// SetDailyHours sets the study budget for a weekday (0 = Sunday).
func (p *Profile) SetDailyHours(weekday int, hours float64) error {
	if weekday < 0 || weekday > 6 || hours < 0 || hours > 24 {
		return ErrInvalidHours
	}
	for i := range p.AvailableHours {
		if p.AvailableHours[i].Weekday == weekday {
			p.AvailableHours[i].Hours = hours
			return nil
		}
	}
	p.AvailableHours = append(p.AvailableHours, planner.AvailableHours{Weekday: weekday, Hours: hours})
	return nil
}

// ResetProgress clears completions and chapter progress.
func (p *Profile) ResetProgress() {
	p.CompletedTopicIDs = []string{}
	p.ChapterProgress = map[string]planner.ChapterProgress{}
}

// PlannerConfig returns the scheduler's view of this profile.
func (p *Profile) PlannerConfig() planner.Config {
	return planner.Config{
		SelectedSubjectIDs: p.SelectedSubjectIDs,
		ChapterProgress:    p.ChapterProgress,
		ExamDate:           p.ExamDate,
		AvailableHours:     p.AvailableHours,
		CompletedTopicIDs:  p.CompletedTopicIDs,
	}
}

// SyllabusSource looks up board syllabi.
type SyllabusSource interface {
	Syllabus(board string, classLevel int) (curriculum.Syllabus, bool)
	Default(board string, classLevel int) (curriculum.Syllabus, bool)
}

// Syllabus resolves the student's board syllabus together with their own
// chapters and subjects. The boolean reports an exact board/class match;
// when it is false the default syllabus (if any) is used in its place.
func (p *Profile) Syllabus(src SyllabusSource) (curriculum.Syllabus, bool) {
	base, exact := src.Syllabus(p.Board, p.ClassLevel)
	if !exact {
		var ok bool
		if base, ok = src.Default(p.Board, p.ClassLevel); !ok {
			base = curriculum.Syllabus{Board: p.Board, ClassLevel: p.ClassLevel}
		}
	}
	return curriculum.Resolve(base, p.ManualChapters, p.CustomSubjects), exact
}

// MasteryScore is the percentage of checkpoints achieved across the chapters
// of selected subjects, capped at 100.
func (p *Profile) MasteryScore(s curriculum.Syllabus) int {
	total := s.ChapterCount(p.SelectedSubjectIDs)
	if total == 0 {
		return 0
	}

	achieved := 0
	for _, subj := range s.Subjects {
		if !slices.Contains(p.SelectedSubjectIDs, subj.ID) {
			continue
		}
		for _, ch := range subj.Chapters {
			achieved += len(p.ChapterProgress[ch.ID].Checkpoints)
		}
	}

	score := int(math.Round(float64(achieved) / float64(total*len(planner.Checkpoints)) * 100))
	return min(score, 100)
}
