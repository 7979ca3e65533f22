package schedule_test

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-planner/internal/activity"
	"github.com/p-n-ai/pai-planner/internal/admin"
	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/gamification"
	"github.com/p-n-ai/pai-planner/internal/live"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/platform/cache"
	"github.com/p-n-ai/pai-planner/internal/profile"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

const email = "asha@example.com"

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	s curriculum.Syllabus
}

func (f fakeSource) Syllabus(board string, classLevel int) (curriculum.Syllabus, bool) {
	return f.s, strings.EqualFold(board, f.s.Board) && classLevel == f.s.ClassLevel
}

func (f fakeSource) Default(string, int) (curriculum.Syllabus, bool) {
	return f.s, true
}

func testSyllabus() curriculum.Syllabus {
	return curriculum.Syllabus{Board: "CBSE", ClassLevel: 10, Subjects: []curriculum.Subject{
		{ID: "math-10", Name: "Mathematics", Chapters: []curriculum.Chapter{
			{ID: "m1-10", Name: "Real Numbers", Difficulty: curriculum.DifficultyEasy},
			{ID: "m4-10", Name: "Quadratic Equations", Difficulty: curriculum.DifficultyHard},
		}},
		{ID: "sci-10", Name: "Science", Chapters: []curriculum.Chapter{
			{ID: "s11-10", Name: "Electricity", Difficulty: curriculum.DifficultyHard},
		}},
	}}
}

type fixture struct {
	svc         *schedule.Service
	profiles    *profile.MemoryStore
	events      *activity.MemoryLogger
	leaderboard *gamification.MemoryLeaderboard
	hub         *live.Hub
}

func newFixture(t *testing.T, c schedule.Cache) fixture {
	t.Helper()
	f := fixture{
		profiles:    profile.NewMemoryStore(),
		events:      activity.NewMemoryLogger(),
		leaderboard: gamification.NewMemoryLeaderboard(),
		hub:         live.NewHub(),
	}
	f.svc = schedule.NewService(schedule.ServiceConfig{
		Profiles:    f.profiles,
		Curriculum:  fakeSource{testSyllabus()},
		Cache:       c,
		Leaderboard: f.leaderboard,
		Events:      f.events,
		Publisher:   f.hub,
		Now:         func() time.Time { return fixedNow },
	})

	p, err := f.svc.EnsureProfile(email, "Asha")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	p.SelectedSubjectIDs = []string{"math-10", "sci-10"}
	if err := f.profiles.Save(p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return f
}

func TestService_Generate(t *testing.T) {
	f := newFixture(t, nil)

	got, err := f.svc.Generate(t.Context(), email, schedule.Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got.Tasks) != 3 {
		t.Fatalf("len(Tasks) = %d, want 3", len(got.Tasks))
	}
	if got.Tasks[0].ScheduledDate != "2026-10-19" {
		t.Errorf("first task on %s, want today", got.Tasks[0].ScheduledDate)
	}
	if got.Coverage != (schedule.Coverage{Chapters: 3, Scheduled: 3}) {
		t.Errorf("Coverage = %+v", got.Coverage)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", got.Warnings)
	}

	events := f.events.Events()
	if len(events) != 1 || events[0].Type != activity.ScheduleGenerated {
		t.Errorf("events = %+v, want one schedule_generated", events)
	}
}

func TestService_Generate_CoverageWarning(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.UpdateProgress(t.Context(), email, func(p *profile.Profile) error {
		p.ExamDate = "2026-10-20"
		p.AvailableHours = []planner.AvailableHours{{Weekday: 1, Hours: 1}}
		return nil
	})

	got, err := f.svc.Generate(t.Context(), email, schedule.Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Coverage.Scheduled != 1 {
		t.Errorf("Scheduled = %d, want 1", got.Coverage.Scheduled)
	}
	want := "2 chapter(s) could not be fitted before the exam"
	if len(got.Warnings) != 1 || got.Warnings[0] != want {
		t.Errorf("Warnings = %v, want [%s]", got.Warnings, want)
	}
}

func TestService_Generate_SyllabusFallbackWarning(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.UpdateProgress(t.Context(), email, func(p *profile.Profile) error {
		p.ClassLevel = 7
		return nil
	})

	got, err := f.svc.Generate(t.Context(), email, schedule.Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got.Tasks) == 0 {
		t.Error("Generate() should still schedule from the default syllabus")
	}
	want := "no syllabus available for CBSE class 7, using CBSE class 10"
	if len(got.Warnings) == 0 || got.Warnings[0] != want {
		t.Errorf("Warnings = %v, want first %q", got.Warnings, want)
	}
}

func TestService_Generate_UnknownStudent(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Generate(t.Context(), "nobody@example.com", schedule.Request{})
	if !errors.Is(err, profile.ErrNotFound) {
		t.Errorf("Generate() error = %v, want ErrNotFound", err)
	}
}

func TestService_Generate_BadStartDate(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := f.svc.Generate(t.Context(), email, schedule.Request{StartDate: "tomorrow"}); err == nil {
		t.Error("Generate() should fail for an unparseable start date")
	}
}

func TestService_Generate_PublishesToSubscribers(t *testing.T) {
	f := newFixture(t, nil)
	updates, unsubscribe := f.hub.Subscribe(email)
	defer unsubscribe()

	if _, err := f.svc.Generate(t.Context(), email, schedule.Request{}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	select {
	case tasks := <-updates:
		if len(tasks) != 3 {
			t.Errorf("published %d tasks, want 3", len(tasks))
		}
	default:
		t.Error("no schedule published")
	}
}

func TestService_Generate_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	f := newFixture(t, schedule.NewRedisCache(cache.Wrap(client, "test"), time.Hour))
	ctx := t.Context()

	first, err := f.svc.Generate(ctx, email, schedule.Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("cache keys = %v, want 1", keys)
	}
	if !strings.HasPrefix(keys[0], "test:schedule:"+email+":") {
		t.Errorf("cache key = %q, want it under test:schedule:", keys[0])
	}
	if ttl := mr.TTL(keys[0]); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	second, err := f.svc.Generate(ctx, email, schedule.Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if fmt.Sprint(first.Tasks) != fmt.Sprint(second.Tasks) {
		t.Error("cached schedule differs from generated one")
	}

	if _, err := f.svc.Generate(ctx, email, schedule.Request{Shuffle: true}); err != nil {
		t.Fatalf("Generate(shuffle) error = %v", err)
	}
	if got := len(mr.Keys()); got != 1 {
		t.Errorf("shuffled schedule was cached: %d keys", got)
	}

	// A progress change must not be served from the old entry.
	res, err := f.svc.UpdateProgress(ctx, email, func(p *profile.Profile) error {
		return p.ToggleCheckpoint("m4-10", planner.CheckpointRead)
	})
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if got := len(mr.Keys()); got != 2 {
		t.Errorf("cache keys = %d, want 2 after progress change", got)
	}
	for _, task := range res.Tasks {
		if task.ChapterID == "m4-10" && task.Session != planner.SessionRevise {
			t.Errorf("m4-10 session = %q, want revise after Read", task.Session)
		}
	}
}

func TestService_UpdateProgress_MutationError(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.UpdateProgress(t.Context(), email, func(p *profile.Profile) error {
		p.Name = "Changed"
		return p.SetDailyHours(9, 2)
	})
	if !errors.Is(err, profile.ErrInvalidHours) {
		t.Fatalf("UpdateProgress() error = %v, want ErrInvalidHours", err)
	}

	p, _ := f.profiles.Get(email)
	if p.Name != "Asha" {
		t.Error("failed mutation was saved")
	}
}

func TestService_ToggleTask(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	topic := planner.TopicID("m1-10", planner.SessionRead)

	got, err := f.svc.ToggleTask(ctx, email, topic)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}
	if !got.Completed {
		t.Error("Completed = false, want true")
	}
	if got.Gamification.Points != gamification.PointsPerTask || !got.Gamification.Unlocked("first_step") {
		t.Errorf("Gamification = %+v", got.Gamification)
	}
	for _, task := range got.Schedule.Tasks {
		if task.TopicID == topic && !task.IsCompleted {
			t.Error("regenerated task should be completed")
		}
	}

	standings, _ := f.svc.Leaderboard(ctx)
	if len(standings) != 1 || standings[0].Points != 10 || standings[0].Name != "Asha" {
		t.Errorf("Leaderboard() = %+v", standings)
	}

	got, err = f.svc.ToggleTask(ctx, email, topic)
	if err != nil {
		t.Fatalf("ToggleTask() error = %v", err)
	}
	if got.Completed || got.Gamification.Points != 10 {
		t.Errorf("second toggle = %+v, want uncompleted with points kept", got)
	}
}

func TestService_ToggleTask_Serialised(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	var topics []string
	for _, chapterID := range []string{"m1-10", "m4-10", "s11-10"} {
		for _, session := range planner.Sessions {
			topics = append(topics, planner.TopicID(chapterID, session))
		}
	}

	var wg sync.WaitGroup
	for _, topic := range topics {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.ToggleTask(ctx, email, topic); err != nil {
				t.Errorf("ToggleTask() error = %v", err)
			}
		}()
	}
	wg.Wait()

	p, _ := f.profiles.Get(email)
	if len(p.CompletedTopicIDs) != len(topics) {
		t.Errorf("len(CompletedTopicIDs) = %d, want %d", len(p.CompletedTopicIDs), len(topics))
	}
	if want := len(topics) * gamification.PointsPerTask; p.Gamification.Points != want {
		t.Errorf("Points = %d, want %d", p.Gamification.Points, want)
	}
}

func TestService_ToggleTask_RepeatedTogglesAwardOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	topic := planner.TopicID("m1-10", planner.SessionRead)

	for range 20 {
		if _, err := f.svc.ToggleTask(ctx, email, topic); err != nil {
			t.Fatalf("ToggleTask() error = %v", err)
		}
	}

	p, _ := f.profiles.Get(email)
	if slices.Contains(p.CompletedTopicIDs, topic) {
		t.Error("topic should be uncompleted after an even number of toggles")
	}
	if p.Gamification.Points != gamification.PointsPerTask {
		t.Errorf("Points = %d, want %d", p.Gamification.Points, gamification.PointsPerTask)
	}
	standings, _ := f.svc.Leaderboard(ctx)
	if len(standings) != 1 || standings[0].Points != gamification.PointsPerTask {
		t.Errorf("Leaderboard() = %+v", standings)
	}
}

func TestService_ToggleTask_UnknownTopic(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		topic string
	}{
		{"made up", "topic-1"},
		{"unknown session", "m1-10-Sleep"},
		{"unselected chapter", planner.TopicID("x9-10", planner.SessionRead)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ToggleTask(t.Context(), email, tt.topic)
			if !errors.Is(err, profile.ErrUnknownTopic) {
				t.Errorf("ToggleTask(%q) error = %v, want ErrUnknownTopic", tt.topic, err)
			}
		})
	}

	p, _ := f.profiles.Get(email)
	if p.Gamification.Points != 0 || len(p.CompletedTopicIDs) != 0 {
		t.Errorf("rejected toggles changed the profile: %+v", p.Gamification)
	}
}

func TestService_ToggleTask_StreakAcrossDays(t *testing.T) {
	clock := fixedNow
	profiles := profile.NewMemoryStore()
	svc := schedule.NewService(schedule.ServiceConfig{
		Profiles:   profiles,
		Curriculum: fakeSource{testSyllabus()},
		Now:        func() time.Time { return clock },
	})
	p, err := svc.EnsureProfile(email, "Asha")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	p.SelectedSubjectIDs = []string{"math-10", "sci-10"}
	profiles.Save(p)

	topics := []string{
		planner.TopicID("m1-10", planner.SessionRead),
		planner.TopicID("m4-10", planner.SessionRead),
		planner.TopicID("s11-10", planner.SessionRead),
		planner.TopicID("m1-10", planner.SessionRevise),
		planner.TopicID("m4-10", planner.SessionRevise),
	}
	for day, topic := range topics {
		clock = fixedNow.AddDate(0, 0, day)
		if _, err := svc.Touch(email); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}
		got, err := svc.ToggleTask(t.Context(), email, topic)
		if err != nil {
			t.Fatalf("ToggleTask() error = %v", err)
		}
		if got.Gamification.Streak != day+1 {
			t.Errorf("day %d: Streak = %d, want %d", day, got.Gamification.Streak, day+1)
		}
	}

	p, _ = profiles.Get(email)
	if p.Gamification.LastStudyDate != "2026-10-23" || !p.Gamification.Unlocked("streak_3") {
		t.Errorf("Gamification = %+v", p.Gamification)
	}
	rows := admin.Summaries([]profile.Profile{*p}, clock)
	if rows[0].Status != admin.StatusActive || rows[0].LastActive != "Today" {
		t.Errorf("admin row = %+v, want active today", rows[0])
	}
}

func TestService_Touch(t *testing.T) {
	f := newFixture(t, nil)
	p, _ := f.profiles.Get(email)
	p.Gamification.LastStudyDate = "2026-10-18"
	p.Gamification.Streak = 2
	f.profiles.Save(p)

	got, err := f.svc.Touch(email)
	if err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if got.Gamification.Streak != 3 {
		t.Errorf("Streak = %d, want 3", got.Gamification.Streak)
	}

	stored, _ := f.profiles.Get(email)
	if stored.Gamification.LastStudyDate != "2026-10-19" {
		t.Errorf("stored LastStudyDate = %q, want today", stored.Gamification.LastStudyDate)
	}
}

func TestService_EnsureProfile_Idempotent(t *testing.T) {
	f := newFixture(t, nil)

	p, err := f.svc.EnsureProfile("ASHA@example.com", "Someone Else")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if p.Name != "Asha" || len(p.SelectedSubjectIDs) != 2 {
		t.Errorf("EnsureProfile() replaced existing profile: %+v", p)
	}
}

func TestService_EnsureProfile_ConfiguredDefaults(t *testing.T) {
	svc := schedule.NewService(schedule.ServiceConfig{
		Curriculum:        fakeSource{testSyllabus()},
		Now:               func() time.Time { return fixedNow },
		DefaultBoard:      "state",
		DefaultClassLevel: 12,
	})

	p, err := svc.EnsureProfile("new@example.com", "New")
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if p.Board != "STATE" || p.ClassLevel != 12 {
		t.Errorf("Board/ClassLevel = %s/%d, want STATE/12", p.Board, p.ClassLevel)
	}
}
