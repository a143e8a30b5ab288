package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/gradescan/gradescan/internal/model"
)

const consolidatedSheet = "Results"

// WriteConsolidatedXLSX writes the consolidated run report as a
// spreadsheet with the same layout as the consolidated CSV.
func WriteConsolidatedXLSX(w io.Writer, results []*model.Evaluation) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(consolidatedSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	header := []any{"Student ID", "Total Score", "Total Possible", "Percentage"}
	var order []string
	if len(results) > 0 {
		order = questionOrder(results[0].Questions)
		for _, qNum := range order {
			header = append(header, "Q"+qNum)
		}
	}
	if err := f.SetSheetRow(consolidatedSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, ev := range results {
		row := []any{
			ev.StudentID,
			ev.Summary.TotalScore,
			ev.Summary.TotalPossible,
			fmt.Sprintf("%v%%", ev.Summary.Percentage),
		}
		for _, qNum := range order {
			if q, ok := ev.Questions[qNum]; ok {
				row = append(row, formatScore(q.Score)+"/"+formatScore(q.MaxScore))
			} else {
				row = append(row, "")
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(consolidatedSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
