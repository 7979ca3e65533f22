// Package export writes generated schedules as spreadsheets.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-planner/internal/planner"
)

const (
	ScheduleSheet = "Schedule"
	TotalsSheet   = "Daily Totals"
)

var (
	scheduleHeader = []any{"Date", "Subject", "Chapter", "Session", "Hours", "Difficulty", "Done"}
	totalsHeader   = []any{"Date", "Tasks", "Hours"}
)

// WriteSchedule writes tasks as an XLSX workbook with one row per task and a
// per-day summary sheet.
func WriteSchedule(w io.Writer, tasks []planner.StudyTask) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(ScheduleSheet); err != nil {
		return fmt.Errorf("creating schedule sheet: %w", err)
	}
	if _, err := f.NewSheet(TotalsSheet); err != nil {
		return fmt.Errorf("creating totals sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := writeRows(f, ScheduleSheet, scheduleHeader, scheduleRows(tasks), bold); err != nil {
		return err
	}
	if err := writeRows(f, TotalsSheet, totalsHeader, totalRows(tasks), bold); err != nil {
		return err
	}

	f.SetColWidth(ScheduleSheet, "A", "A", 12)
	f.SetColWidth(ScheduleSheet, "B", "C", 32)
	f.SetColWidth(ScheduleSheet, "D", "D", 20)

	idx, _ := f.GetSheetIndex(ScheduleSheet)
	f.SetActiveSheet(idx)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func scheduleRows(tasks []planner.StudyTask) [][]any {
	rows := make([][]any, 0, len(tasks))
	for _, t := range tasks {
		done := "No"
		if t.IsCompleted {
			done = "Yes"
		}
		rows = append(rows, []any{
			t.ScheduledDate,
			t.SubjectName,
			t.ChapterName,
			string(t.Session),
			t.Duration,
			string(t.Difficulty),
			done,
		})
	}
	return rows
}

// totalRows keeps dates in schedule order, which is already ascending.
func totalRows(tasks []planner.StudyTask) [][]any {
	var rows [][]any
	for _, t := range tasks {
		if n := len(rows); n > 0 && rows[n-1][0] == t.ScheduledDate {
			rows[n-1][1] = rows[n-1][1].(int) + 1
			rows[n-1][2] = round2(rows[n-1][2].(float64) + t.Duration)
			continue
		}
		rows = append(rows, []any{t.ScheduledDate, 1, t.Duration})
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
