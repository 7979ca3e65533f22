// Package schedule runs study-plan regeneration for a student: it loads the
// profile, resolves the syllabus, generates, and fans the result out.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/p-n-ai/pai-planner/internal/activity"
	"github.com/p-n-ai/pai-planner/internal/gamification"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/profile"
)

// Publisher receives every regenerated schedule.
type Publisher interface {
	Publish(email string, tasks []planner.StudyTask)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, []planner.StudyTask) {}

// Request asks for a schedule. An empty StartDate means today.
type Request struct {
	StartDate string `json:"start_date"`
	Shuffle   bool   `json:"shuffle"`
}

// Coverage compares the chapters a student selected with those scheduled.
type Coverage struct {
	Chapters  int `json:"chapters"`
	Scheduled int `json:"scheduled"`
}

// Result is a generated schedule with what the student should know about it.
type Result struct {
	Tasks    []planner.StudyTask `json:"tasks"`
	Warnings []string            `json:"warnings"`
	Coverage Coverage            `json:"coverage"`
	Mastery  int                 `json:"mastery"`
}

// ToggleResult reports a task completion change.
type ToggleResult struct {
	Completed    bool               `json:"completed"`
	Gamification gamification.State `json:"gamification"`
	Schedule     Result             `json:"schedule"`
}

// ServiceConfig holds dependencies for the schedule service.
type ServiceConfig struct {
	Profiles    profile.Store
	Curriculum  profile.SyllabusSource
	Cache       Cache
	Leaderboard gamification.Leaderboard
	Events      activity.Logger
	Publisher   Publisher
	Now         func() time.Time

	// Board and class level given to new profiles. Zero values keep the
	// curriculum defaults.
	DefaultBoard      string
	DefaultClassLevel int
}

// Service coordinates schedule generation and progress updates.
type Service struct {
	profiles    profile.Store
	curriculum  profile.SyllabusSource
	cache       Cache
	leaderboard gamification.Leaderboard
	events      activity.Logger
	publisher   Publisher
	now         func() time.Time
	locks       *keyedMutex

	defaultBoard      string
	defaultClassLevel int
}

// NewService creates a schedule service. Optional dependencies fall back to
// no-op or in-memory versions.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		profiles:    cfg.Profiles,
		curriculum:  cfg.Curriculum,
		cache:       cfg.Cache,
		leaderboard: cfg.Leaderboard,
		events:      cfg.Events,
		publisher:   cfg.Publisher,
		now:         cfg.Now,
		locks:       newKeyedMutex(),

		defaultBoard:      cfg.DefaultBoard,
		defaultClassLevel: cfg.DefaultClassLevel,
	}
	if s.profiles == nil {
		s.profiles = profile.NewMemoryStore()
	}
	if s.cache == nil {
		s.cache = NopCache{}
	}
	if s.leaderboard == nil {
		s.leaderboard = gamification.NewMemoryLeaderboard()
	}
	if s.events == nil {
		s.events = activity.NopLogger{}
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// EnsureProfile returns the student's profile, creating it with defaults if
// this is their first visit.
func (s *Service) EnsureProfile(email, name string) (*profile.Profile, error) {
	email = profile.NormalizeEmail(email)
	unlock := s.locks.Lock(email)
	defer unlock()

	p, err := s.profiles.Get(email)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, profile.ErrNotFound) {
		return nil, err
	}

	p = profile.New(email, name, s.now())
	if s.defaultBoard != "" {
		p.Board = strings.ToUpper(s.defaultBoard)
	}
	if s.defaultClassLevel > 0 {
		p.ClassLevel = s.defaultClassLevel
	}
	if err := s.profiles.Save(p); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	slog.Info("profile created", "email", email)
	return p, nil
}

// Touch loads a profile for a visit, refreshing the study streak.
func (s *Service) Touch(email string) (*profile.Profile, error) {
	email = profile.NormalizeEmail(email)
	unlock := s.locks.Lock(email)
	defer unlock()

	p, err := s.profiles.Get(email)
	if err != nil {
		return nil, err
	}

	state, changed := gamification.CheckStreak(p.Gamification, s.now())
	if changed {
		p.Gamification = state
		p.UpdatedAt = s.now()
		if err := s.profiles.Save(p); err != nil {
			return nil, fmt.Errorf("saving streak: %w", err)
		}
	}
	return p, nil
}

// Generate builds the student's schedule. Unshuffled results are cached.
func (s *Service) Generate(ctx context.Context, email string, req Request) (Result, error) {
	email = profile.NormalizeEmail(email)
	unlock := s.locks.Lock(email)
	defer unlock()

	p, err := s.profiles.Get(email)
	if err != nil {
		return Result{}, err
	}
	return s.generate(ctx, p, req)
}

// UpdateProgress applies mutate to the student's profile, saves it and
// returns the regenerated schedule. Errors from mutate are returned as is.
func (s *Service) UpdateProgress(ctx context.Context, email string, mutate func(*profile.Profile) error) (Result, error) {
	email = profile.NormalizeEmail(email)
	unlock := s.locks.Lock(email)
	defer unlock()

	p, err := s.profiles.Get(email)
	if err != nil {
		return Result{}, err
	}
	if err := mutate(p); err != nil {
		return Result{}, err
	}
	p.Email = email
	p.UpdatedAt = s.now()
	if err := s.profiles.Save(p); err != nil {
		return Result{}, fmt.Errorf("saving profile: %w", err)
	}
	s.logEvent(email, activity.ProgressUpdated, nil)

	return s.generate(ctx, p, Request{})
}

// ToggleTask flips a task's completion. Completing a task counts as a study
// day, awards points once per topic, checks achievements and updates the
// leaderboard. Topics outside the student's selected chapters are rejected.
func (s *Service) ToggleTask(ctx context.Context, email, topicID string) (ToggleResult, error) {
	email = profile.NormalizeEmail(email)
	unlock := s.locks.Lock(email)
	defer unlock()

	p, err := s.profiles.Get(email)
	if err != nil {
		return ToggleResult{}, err
	}

	syllabus, _ := p.Syllabus(s.curriculum)
	if !slices.Contains(p.CompletedTopicIDs, topicID) && !p.HasTopic(syllabus, topicID) {
		return ToggleResult{}, fmt.Errorf("toggling %q: %w", topicID, profile.ErrUnknownTopic)
	}

	now := s.now()
	completed := p.ToggleTopicCompleted(topicID)
	if completed {
		p.Gamification = gamification.RecordCompletion(p.Gamification, topicID, p.MasteryScore(syllabus), now)

		entry := gamification.Entry{
			Email:      email,
			Name:       p.Name,
			Points:     p.Gamification.Points,
			Streak:     p.Gamification.Streak,
			ClassLevel: p.ClassLevel,
		}
		if err := s.leaderboard.Update(ctx, entry); err != nil {
			slog.Warn("leaderboard update failed", "email", email, "error", err)
		}
	}

	p.UpdatedAt = now
	if err := s.profiles.Save(p); err != nil {
		return ToggleResult{}, fmt.Errorf("saving profile: %w", err)
	}
	s.logEvent(email, activity.TaskToggled, map[string]any{"topic_id": topicID, "completed": completed})

	result, err := s.generate(ctx, p, Request{})
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Completed: completed, Gamification: p.Gamification, Schedule: result}, nil
}

// Leaderboard returns the top students by points.
func (s *Service) Leaderboard(ctx context.Context) ([]gamification.Standing, error) {
	return s.leaderboard.Top(ctx, gamification.DefaultLeaderboardSize)
}

// generate runs the planner for p. The caller holds p's lock.
func (s *Service) generate(ctx context.Context, p *profile.Profile, req Request) (Result, error) {
	syllabus, found := p.Syllabus(s.curriculum)
	cfg := p.PlannerConfig()

	startDate := req.StartDate
	if startDate == "" {
		startDate = s.now().Format(planner.DateLayout)
	}

	var key string
	var tasks []planner.StudyTask
	hit := false
	if !req.Shuffle {
		k, err := cacheKey(p.Email, syllabus, cfg, startDate)
		if err != nil {
			return Result{}, err
		}
		key = k
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("schedule cache read failed", "email", p.Email, "error", err)
		}
		tasks, hit = cached, ok
	}

	if !hit {
		generated, err := planner.Generate(syllabus, cfg, planner.Options{
			StartDate: startDate,
			Shuffle:   req.Shuffle,
			Now:       s.now,
		})
		if err != nil {
			return Result{}, fmt.Errorf("generating schedule: %w", err)
		}
		tasks = generated
		if key != "" {
			if err := s.cache.Set(ctx, key, tasks); err != nil {
				slog.Warn("schedule cache write failed", "email", p.Email, "error", err)
			}
		}
	}

	result := Result{
		Tasks:    tasks,
		Warnings: []string{},
		Coverage: coverage(syllabus.ChapterCount(p.SelectedSubjectIDs), tasks),
		Mastery:  p.MasteryScore(syllabus),
	}
	if !found {
		msg := fmt.Sprintf("no syllabus available for %s class %d", p.Board, p.ClassLevel)
		if !strings.EqualFold(syllabus.Board, p.Board) || syllabus.ClassLevel != p.ClassLevel {
			msg += fmt.Sprintf(", using %s class %d", syllabus.Board, syllabus.ClassLevel)
		}
		result.Warnings = append(result.Warnings, msg)
	}
	if missing := result.Coverage.Chapters - result.Coverage.Scheduled; missing > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d chapter(s) could not be fitted before the exam", missing))
	}

	slog.Info("schedule generated",
		"email", p.Email,
		"tasks", len(tasks),
		"cached", hit,
		"shuffle", req.Shuffle,
	)
	s.logEvent(p.Email, activity.ScheduleGenerated, map[string]any{
		"tasks":     len(tasks),
		"chapters":  result.Coverage.Chapters,
		"scheduled": result.Coverage.Scheduled,
		"shuffle":   req.Shuffle,
	})
	s.publisher.Publish(p.Email, tasks)

	return result, nil
}

func coverage(chapters int, tasks []planner.StudyTask) Coverage {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		seen[t.ChapterID] = true
	}
	return Coverage{Chapters: chapters, Scheduled: len(seen)}
}

func (s *Service) logEvent(email, typ string, data map[string]any) {
	if err := s.events.Log(activity.Event{Email: email, Type: typ, Data: data, CreatedAt: s.now()}); err != nil {
		slog.Warn("failed to log event", "type", typ, "email", email, "error", err)
	}
}
