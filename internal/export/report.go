// Package export renders quiz reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"myth-quiz-service/internal/domain"
)

const (
	SheetSummary = "Summary"
	SheetAreas   = "Areas"
	SheetAnswers = "Answers"
)

// WriteReport writes report as an xlsx workbook with a summary, a per-area
// breakdown and one row per answered question.
func WriteReport(w io.Writer, report domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if err := writeSummary(f, report); err != nil {
		return err
	}
	if err := writeAreas(f, report); err != nil {
		return err
	}
	if err := writeAnswers(f, report); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, report domain.Report) error {
	completedAt := ""
	if report.CompletedAt != nil {
		completedAt = report.CompletedAt.Format("2006-01-02 15:04:05")
	}
	rows := [][]interface{}{
		{"Name", report.UserName},
		{"Score", report.TotalScore},
		{"Max Score", report.MaxScore},
		{"Percentage", report.Percentage},
		{"Title", report.Title},
		{"Description", report.Description},
		{"Strongest Area", report.StrongestAreaName},
		{"Weakest Area", report.WeakestAreaName},
		{"Tips", strings.Join(report.Tips, "\n")},
		{"Completed At", completedAt},
	}
	return writeRows(f, SheetSummary, rows)
}

func writeAreas(f *excelize.File, report domain.Report) error {
	if _, err := f.NewSheet(SheetAreas); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	rows := [][]interface{}{{"Area ID", "Area", "Score", "Max Score"}}
	for _, area := range report.Areas {
		rows = append(rows, []interface{}{area.AreaID, area.Name, area.Score, area.MaxScore})
	}
	return writeRows(f, SheetAreas, rows)
}

func writeAnswers(f *excelize.File, report domain.Report) error {
	if _, err := f.NewSheet(SheetAnswers); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	details := make([]domain.AnswerDetail, 0, len(report.AnswerDetails))
	for _, detail := range report.AnswerDetails {
		details = append(details, detail)
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].AreaID != details[j].AreaID {
			return details[i].AreaID < details[j].AreaID
		}
		return details[i].QuestionID < details[j].QuestionID
	})

	rows := [][]interface{}{{"Area ID", "Question ID", "Question", "Selected", "Correct Answer", "Result", "Explanation"}}
	for _, d := range details {
		result := "Incorrect"
		if d.Correct {
			result = "Correct"
		}
		rows = append(rows, []interface{}{
			d.AreaID,
			d.QuestionID,
			d.QuestionText,
			strings.Join(d.SelectedTexts, "; "),
			strings.Join(d.CorrectTexts, "; "),
			result,
			d.Explanation,
		})
	}
	return writeRows(f, SheetAnswers, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
