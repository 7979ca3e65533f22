package export_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-planner/internal/export"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

func TestWriteSchedule(t *testing.T) {
	tasks := []planner.StudyTask{
		{ScheduledDate: "2026-10-19", SubjectName: "Mathematics", ChapterName: "Real Numbers", Session: planner.SessionRead, Duration: 1, Difficulty: "Easy"},
		{ScheduledDate: "2026-10-19", SubjectName: "Science", ChapterName: "Electricity", Session: planner.SessionRevise, Duration: 1.25, Difficulty: "Hard", IsCompleted: true},
		{ScheduledDate: "2026-10-20", SubjectName: "Mathematics", ChapterName: "Polynomials", Session: planner.SessionPolish, Duration: 0.33, Difficulty: "Medium"},
	}

	var buf bytes.Buffer
	if err := export.WriteSchedule(&buf, tasks); err != nil {
		t.Fatalf("WriteSchedule() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != export.ScheduleSheet || got[1] != export.TotalsSheet {
		t.Errorf("sheets = %v, want [Schedule Daily Totals]", got)
	}

	rows, err := f.GetRows(export.ScheduleSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][6] != "Done" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][1] != "Science" || rows[2][4] != "1.25" || rows[2][6] != "Yes" {
		t.Errorf("row 2 = %v", rows[2])
	}

	totals, err := f.GetRows(export.TotalsSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(totals) != 3 {
		t.Fatalf("len(totals) = %d, want header + 2 days", len(totals))
	}
	if totals[1][0] != "2026-10-19" || totals[1][1] != "2" || totals[1][2] != "2.25" {
		t.Errorf("totals day 1 = %v", totals[1])
	}
}

func TestWriteSchedule_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteSchedule(&buf, nil); err != nil {
		t.Fatalf("WriteSchedule() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows(export.ScheduleSheet)
	if len(rows) != 1 {
		t.Errorf("len(rows) = %d, want header only", len(rows))
	}
}
