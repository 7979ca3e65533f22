package profile_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/profile"
)

var now = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func TestNew_Defaults(t *testing.T) {
	p := profile.New("asha@example.com", "Asha", now)

	if p.Board != "CBSE" || p.ClassLevel != 10 {
		t.Errorf("board/class = %s/%d, want CBSE/10", p.Board, p.ClassLevel)
	}
	if p.ExamDate != "2026-12-18" {
		t.Errorf("ExamDate = %q, want 2026-12-18", p.ExamDate)
	}
	want := map[int]float64{0: 6, 1: 3, 2: 3, 3: 3, 4: 3, 5: 3, 6: 5}
	for _, h := range p.AvailableHours {
		if want[h.Weekday] != h.Hours {
			t.Errorf("weekday %d hours = %v, want %v", h.Weekday, h.Hours, want[h.Weekday])
		}
	}

	// Defaults must not alias the package-level slice.
	p.AvailableHours[0].Hours = 1
	if profile.DefaultWeeklyHours[0].Hours != 6 {
		t.Error("New() shares DefaultWeeklyHours")
	}
}

func TestToggleCheckpoint(t *testing.T) {
	p := profile.New("a@example.com", "A", now)

	if err := p.ToggleCheckpoint("m1-10", planner.CheckpointRead); err != nil {
		t.Fatalf("ToggleCheckpoint() error = %v", err)
	}
	if err := p.ToggleCheckpoint("m1-10", planner.CheckpointRevised); err != nil {
		t.Fatalf("ToggleCheckpoint() error = %v", err)
	}
	got := p.ChapterProgress["m1-10"]
	if !got.Has(planner.CheckpointRead) || !got.Has(planner.CheckpointRevised) {
		t.Errorf("Checkpoints = %v, want Read and Revised", got.Checkpoints)
	}
	if got.Difficulty != "" {
		t.Errorf("Difficulty = %q, want chapter default", got.Difficulty)
	}

	p.ToggleCheckpoint("m1-10", planner.CheckpointRead)
	if p.ChapterProgress["m1-10"].Has(planner.CheckpointRead) {
		t.Error("second toggle should remove Read")
	}
}

func TestToggleCheckpoint_Unknown(t *testing.T) {
	p := profile.New("a@example.com", "A", now)

	err := p.ToggleCheckpoint("m1-10", "Skimmed")
	if !errors.Is(err, profile.ErrUnknownCheckpoint) {
		t.Errorf("error = %v, want ErrUnknownCheckpoint", err)
	}
}

func TestSetChapterDifficulty(t *testing.T) {
	p := profile.New("a@example.com", "A", now)
	p.ToggleCheckpoint("m4-10", planner.CheckpointRead)

	if err := p.SetChapterDifficulty("m4-10", curriculum.DifficultyEasy); err != nil {
		t.Fatalf("SetChapterDifficulty() error = %v", err)
	}
	got := p.ChapterProgress["m4-10"]
	if got.Difficulty != curriculum.DifficultyEasy || !got.Has(planner.CheckpointRead) {
		t.Errorf("progress = %+v, want Easy with Read kept", got)
	}

	if err := p.SetChapterDifficulty("m4-10", "Brutal"); !errors.Is(err, profile.ErrInvalidDifficulty) {
		t.Errorf("error = %v, want ErrInvalidDifficulty", err)
	}
}

func TestToggleTopicCompleted(t *testing.T) {
	p := profile.New("a@example.com", "A", now)

	if !p.ToggleTopicCompleted("m1-10-Read & Understand") {
		t.Error("first toggle should complete")
	}
	if p.ToggleTopicCompleted("m1-10-Read & Understand") {
		t.Error("second toggle should un-complete")
	}
	if len(p.CompletedTopicIDs) != 0 {
		t.Errorf("CompletedTopicIDs = %v, want empty", p.CompletedTopicIDs)
	}
}

func TestAddCustomSubject(t *testing.T) {
	p := profile.New("a@example.com", "A", now)

	subj := p.AddCustomSubject("  computer  science", "custom-1")

	if subj.Name != "Computer Science" || !subj.IsCustom || !subj.IsManual {
		t.Errorf("subject = %+v", subj)
	}
	if !slices.Contains(p.SelectedSubjectIDs, "custom-1") {
		t.Error("custom subject should be selected")
	}
}

func TestAddManualChapter(t *testing.T) {
	p := profile.New("a@example.com", "A", now)
	p.AddCustomSubject("Computer Science", "custom-1")

	if err := p.AddManualChapter("custom-1", curriculum.Chapter{ID: "c1", Name: "python basics"}); err != nil {
		t.Fatalf("AddManualChapter() error = %v", err)
	}
	if err := p.AddManualChapter("eng-10", curriculum.Chapter{ID: "c2", Name: "Poems", Difficulty: curriculum.DifficultyEasy}); err != nil {
		t.Fatalf("AddManualChapter() error = %v", err)
	}

	custom := p.CustomSubjects[0].Chapters
	if len(custom) != 1 || custom[0].Name != "Python Basics" || custom[0].Difficulty != curriculum.DifficultyMedium {
		t.Errorf("custom chapters = %+v", custom)
	}
	if len(p.ManualChapters["eng-10"]) != 1 {
		t.Errorf("manual chapters = %+v", p.ManualChapters)
	}

	err := p.AddManualChapter("eng-10", curriculum.Chapter{ID: "c3", Name: "X", Difficulty: "Tricky"})
	if !errors.Is(err, profile.ErrInvalidDifficulty) {
		t.Errorf("error = %v, want ErrInvalidDifficulty", err)
	}
}

func TestSetDailyHours(t *testing.T) {
	tests := []struct {
		name    string
		weekday int
		hours   float64
		wantErr bool
	}{
		{"sunday", 0, 8, false},
		{"saturday zero", 6, 0, false},
		{"weekday too big", 7, 2, true},
		{"negative weekday", -1, 2, true},
		{"negative hours", 3, -1, true},
		{"more than a day", 3, 25, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profile.New("a@example.com", "A", now)
			err := p.SetDailyHours(tt.weekday, tt.hours)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetDailyHours() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, profile.ErrInvalidHours) {
					t.Errorf("error = %v, want ErrInvalidHours", err)
				}
				return
			}
			for _, h := range p.AvailableHours {
				if h.Weekday == tt.weekday && h.Hours != tt.hours {
					t.Errorf("hours = %v, want %v", h.Hours, tt.hours)
				}
			}
		})
	}
}

func TestSetDailyHours_AddsMissingWeekday(t *testing.T) {
	p := profile.New("a@example.com", "A", now)
	p.AvailableHours = nil

	p.SetDailyHours(2, 1.5)

	if len(p.AvailableHours) != 1 || p.AvailableHours[0] != (planner.AvailableHours{Weekday: 2, Hours: 1.5}) {
		t.Errorf("AvailableHours = %+v", p.AvailableHours)
	}
}

func TestResetProgress(t *testing.T) {
	p := profile.New("a@example.com", "A", now)
	p.ToggleCheckpoint("m1-10", planner.CheckpointRead)
	p.ToggleTopicCompleted("m1-10-Read & Understand")

	p.ResetProgress()

	if len(p.ChapterProgress) != 0 || len(p.CompletedTopicIDs) != 0 {
		t.Errorf("progress not cleared: %+v %+v", p.ChapterProgress, p.CompletedTopicIDs)
	}
}

func TestSyllabus_MergesStudentContent(t *testing.T) {
	src := fakeSource{curriculum.Syllabus{Board: "CBSE", ClassLevel: 10, Subjects: []curriculum.Subject{
		{ID: "math-10", Name: "Mathematics", Chapters: []curriculum.Chapter{{ID: "m1-10"}}},
		{ID: "eng-10", Name: "English", IsManual: true},
	}}}
	p := profile.New("a@example.com", "A", now)
	p.AddManualChapter("eng-10", curriculum.Chapter{ID: "e1", Name: "Poems"})
	p.AddCustomSubject("Art", "custom-art")

	s, ok := p.Syllabus(src)
	if !ok {
		t.Fatal("Syllabus() should find the board syllabus")
	}
	if len(s.Subjects) != 3 {
		t.Fatalf("len(Subjects) = %d, want 3", len(s.Subjects))
	}
	if eng, _ := s.Subject("eng-10"); len(eng.Chapters) != 1 {
		t.Errorf("eng-10 chapters = %+v", eng.Chapters)
	}
}

func TestSyllabus_FallsBackToDefault(t *testing.T) {
	src := fakeSource{curriculum.Syllabus{Board: "CBSE", ClassLevel: 10, Subjects: []curriculum.Subject{
		{ID: "math-10", Name: "Mathematics", Chapters: []curriculum.Chapter{{ID: "m1-10"}}},
	}}}
	p := profile.New("a@example.com", "A", now)
	p.Board = "ICSE"

	s, exact := p.Syllabus(src)
	if exact {
		t.Error("Syllabus() reported an exact match for ICSE/10")
	}
	if s.Board != "CBSE" || len(s.Subjects) != 1 {
		t.Errorf("fallback syllabus = %s with %d subjects, want CBSE with 1", s.Board, len(s.Subjects))
	}
}

func TestMasteryScore(t *testing.T) {
	s := curriculum.Syllabus{Subjects: []curriculum.Subject{
		{ID: "math", Chapters: []curriculum.Chapter{{ID: "a"}, {ID: "b"}}},
		{ID: "sci", Chapters: []curriculum.Chapter{{ID: "c"}}},
	}}

	tests := []struct {
		name     string
		selected []string
		progress map[string][]planner.Checkpoint
		want     int
	}{
		{"nothing selected", nil, nil, 0},
		{"no progress", []string{"math"}, nil, 0},
		{"one of eight", []string{"math"}, map[string][]planner.Checkpoint{"a": {planner.CheckpointRead}}, 13},
		{"all done", []string{"math"}, map[string][]planner.Checkpoint{"a": planner.Checkpoints, "b": planner.Checkpoints}, 100},
		{"unselected progress ignored", []string{"math"}, map[string][]planner.Checkpoint{"c": planner.Checkpoints}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profile.New("a@example.com", "A", now)
			p.SelectedSubjectIDs = tt.selected
			for id, cps := range tt.progress {
				p.ChapterProgress[id] = planner.ChapterProgress{Checkpoints: cps}
			}
			if got := p.MasteryScore(s); got != tt.want {
				t.Errorf("MasteryScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

type fakeSource struct {
	s curriculum.Syllabus
}

func (f fakeSource) Syllabus(board string, classLevel int) (curriculum.Syllabus, bool) {
	return f.s, strings.EqualFold(board, f.s.Board) && classLevel == f.s.ClassLevel
}

func (f fakeSource) Default(string, int) (curriculum.Syllabus, bool) {
	return f.s, true
}
