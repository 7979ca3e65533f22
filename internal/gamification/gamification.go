// Package gamification tracks study streaks, points and achievements.
package gamification

import (
	"slices"
	"time"
)

// PointsPerTask is awarded for every completed study task.
const PointsPerTask = 10

const dateLayout = "2006-01-02"

// State is a student's gamification progress.
type State struct {
	Streak                 int      `json:"streak"`
	LastStudyDate          string   `json:"last_study_date"`
	Points                 int      `json:"points"`
	UnlockedAchievementIDs []string `json:"unlocked_achievement_ids"`
	AwardedTopicIDs        []string `json:"awarded_topic_ids,omitempty"`
}

// Unlocked reports whether the achievement has been earned.
func (s State) Unlocked(id string) bool {
	return slices.Contains(s.UnlockedAchievementIDs, id)
}

// ConditionType is what an achievement measures.
type ConditionType string

const (
	ConditionTaskCount ConditionType = "task_count"
	ConditionStreak    ConditionType = "streak"
	ConditionMastery   ConditionType = "mastery"
	ConditionEarlyBird ConditionType = "early_bird"
	ConditionNightOwl  ConditionType = "night_owl"
)

// Achievement is a badge unlocked by reaching a threshold.
type Achievement struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Icon          string        `json:"icon"`
	ConditionType ConditionType `json:"condition_type"`
	Threshold     int           `json:"threshold"`
}

// Achievements is the full catalogue.
var Achievements = []Achievement{
	{ID: "first_step", Title: "First Steps", Description: "Complete your first study task.", Icon: "🌱", ConditionType: ConditionTaskCount, Threshold: 1},
	{ID: "streak_3", Title: "On Fire", Description: "Maintain a 3-day study streak.", Icon: "🔥", ConditionType: ConditionStreak, Threshold: 3},
	{ID: "streak_7", Title: "Unstoppable", Description: "Maintain a 7-day study streak.", Icon: "🚀", ConditionType: ConditionStreak, Threshold: 7},
	{ID: "early_bird", Title: "Early Bird", Description: "Complete a task before 8 AM.", Icon: "🌅", ConditionType: ConditionEarlyBird, Threshold: 1},
	{ID: "night_owl", Title: "Night Owl", Description: "Complete a task after 9 PM.", Icon: "🦉", ConditionType: ConditionNightOwl, Threshold: 1},
	{ID: "mastery_50", Title: "Halfway There", Description: "Reach 50% Syllabus Mastery.", Icon: "🎯", ConditionType: ConditionMastery, Threshold: 50},
	{ID: "mastery_100", Title: "Completionist", Description: "Reach 100% Syllabus Mastery.", Icon: "🏆", ConditionType: ConditionMastery, Threshold: 100},
}

const (
	earlyBirdHour = 8
	nightOwlHour  = 21
)

// CheckStreak updates the streak for a visit at now. It returns the new state
// and whether anything changed and needs saving.
//
// A student who has never studied keeps a zero streak. Visiting the day after
// the last study date extends the streak; missing a day resets it.
func CheckStreak(s State, now time.Time) (State, bool) {
	if s.LastStudyDate == "" {
		if s.Streak == 0 {
			return s, false
		}
		s.Streak = 0
		return s, true
	}

	last, err := time.Parse(dateLayout, s.LastStudyDate)
	if err != nil {
		// Unreadable dates count as a missed day.
		last = time.Time{}
	}
	today := calendarDay(now)

	switch days := int(today.Sub(last).Hours() / 24); days {
	case 0:
		return s, false
	case 1:
		s.Streak++
	default:
		s.Streak = 0
	}
	s.LastStudyDate = today.Format(dateLayout)
	return s, true
}

// RecordCompletion counts completedAt as a study day, awards points the first
// time topicID is completed and unlocks any achievements now earned. mastery
// is the student's current mastery percentage.
func RecordCompletion(s State, topicID string, mastery int, completedAt time.Time) State {
	s = markStudied(s, completedAt)
	if !slices.Contains(s.AwardedTopicIDs, topicID) {
		s.Points += PointsPerTask
		s.AwardedTopicIDs = append(slices.Clone(s.AwardedTopicIDs), topicID)
	}
	unlocked := slices.Clone(s.UnlockedAchievementIDs)

	unlock := func(id string) {
		if !slices.Contains(unlocked, id) {
			unlocked = append(unlocked, id)
		}
	}

	for _, a := range Achievements {
		switch a.ConditionType {
		case ConditionStreak:
			if s.Streak >= a.Threshold {
				unlock(a.ID)
			}
		case ConditionMastery:
			if mastery >= a.Threshold {
				unlock(a.ID)
			}
		}
	}

	hour := completedAt.Hour()
	if hour < earlyBirdHour {
		unlock("early_bird")
	}
	if hour >= nightOwlHour {
		unlock("night_owl")
	}
	unlock("first_step")

	s.UnlockedAchievementIDs = unlocked
	return s
}

// markStudied starts or extends the streak for a study day at t. Unlike a
// visit, studying never leaves the streak at zero.
func markStudied(s State, t time.Time) State {
	if s.LastStudyDate == "" {
		s.Streak = 1
		s.LastStudyDate = calendarDay(t).Format(dateLayout)
		return s
	}
	s, _ = CheckStreak(s, t)
	if s.Streak == 0 {
		s.Streak = 1
	}
	return s
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
