// Package admin builds the school-facing reports over all student profiles.
package admin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-planner/internal/profile"
)

const (
	// activeWindowDays is how recently a student must have studied to count as active.
	activeWindowDays = 7
	// progressPerTask converts completed tasks into a rough progress percentage.
	progressPerTask = 2

	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// StudentSummary is one row of the admin student table.
type StudentSummary struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Class      string `json:"class"`
	Board      string `json:"board"`
	Progress   int    `json:"progress"`
	Streak     int    `json:"streak"`
	Points     int    `json:"points"`
	LastActive string `json:"last_active"`
	Status     string `json:"status"`
}

// Stats aggregates the student table.
type Stats struct {
	TotalStudents     int            `json:"total_students"`
	ActiveToday       int            `json:"active_today"`
	AverageProgress   int            `json:"average_progress"`
	ClassDistribution map[string]int `json:"class_distribution"`
}

// Summaries builds a summary row per profile.
func Summaries(profiles []profile.Profile, now time.Time) []StudentSummary {
	today := calendarDay(now)
	out := make([]StudentSummary, 0, len(profiles))

	for _, p := range profiles {
		s := StudentSummary{
			Email:      p.Email,
			Name:       p.Name,
			Class:      strconv.Itoa(p.ClassLevel),
			Board:      p.Board,
			Progress:   min(100, len(p.CompletedTopicIDs)*progressPerTask),
			Streak:     p.Gamification.Streak,
			Points:     p.Gamification.Points,
			LastActive: "Never",
			Status:     StatusInactive,
		}

		if last, err := time.Parse("2006-01-02", p.Gamification.LastStudyDate); err == nil {
			days := int(today.Sub(last).Hours() / 24)
			s.LastActive = lastActiveLabel(days)
			if days < activeWindowDays {
				s.Status = StatusActive
			}
		}
		out = append(out, s)
	}
	return out
}

func lastActiveLabel(days int) string {
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}

// Filter narrows summaries to a class ("" or "All" for every class) and a
// case-insensitive search over name and email.
func Filter(summaries []StudentSummary, class, search string) []StudentSummary {
	search = strings.ToLower(strings.TrimSpace(search))
	out := []StudentSummary{}
	for _, s := range summaries {
		if class != "" && class != "All" && s.Class != class {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Email), search) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ComputeStats totals the summaries. Average progress is rounded down.
func ComputeStats(summaries []StudentSummary) Stats {
	st := Stats{
		TotalStudents:     len(summaries),
		ClassDistribution: map[string]int{},
	}
	if len(summaries) == 0 {
		return st
	}

	total := 0
	for _, s := range summaries {
		if s.LastActive == "Today" {
			st.ActiveToday++
		}
		total += s.Progress
		st.ClassDistribution[s.Class]++
	}
	st.AverageProgress = total / len(summaries)
	return st
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
