package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gradescan/gradescan/internal/model"
)

// WriteCSV writes one student's results: a row per question, indented
// rows per sub-question, a blank row, then the TOTAL row.
func WriteCSV(w io.Writer, ev *model.Evaluation) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Question", "Score", "Max Score", "Percentage", "Feedback"}); err != nil {
		return err
	}

	for _, qNum := range questionOrder(ev.Questions) {
		q := ev.Questions[qNum]
		if len(q.Subs) > 0 {
			if err := cw.Write([]string{
				"Question " + qNum, formatScore(q.Score), formatScore(q.MaxScore), pct(q.Score, q.MaxScore), "",
			}); err != nil {
				return err
			}
			for _, letter := range subOrder(q.Subs) {
				sub := q.Subs[letter]
				if err := cw.Write([]string{
					"    " + qNum + letter, formatScore(sub.Score), formatScore(sub.MaxScore), pct(sub.Score, sub.MaxScore), sub.Feedback,
				}); err != nil {
					return err
				}
			}
			continue
		}
		if err := cw.Write([]string{
			"Question " + qNum, formatScore(q.Score), formatScore(q.MaxScore), pct(q.Score, q.MaxScore), q.Feedback,
		}); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{
		"TOTAL",
		formatScore(ev.Summary.TotalScore),
		formatScore(ev.Summary.TotalPossible),
		fmt.Sprintf("%v%%", ev.Summary.Percentage),
		"",
	}); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// WriteConsolidatedCSV writes one row per student with total and
// per-question "score/max" cells. All students are assumed to share
// the same answer key.
func WriteConsolidatedCSV(w io.Writer, results []*model.Evaluation) error {
	cw := csv.NewWriter(w)

	header := []string{"Student ID", "Total Score", "Total Possible", "Percentage"}
	var order []string
	if len(results) > 0 {
		order = questionOrder(results[0].Questions)
		for _, qNum := range order {
			header = append(header, "Q"+qNum)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, ev := range results {
		row := []string{
			ev.StudentID,
			formatScore(ev.Summary.TotalScore),
			formatScore(ev.Summary.TotalPossible),
			fmt.Sprintf("%v%%", ev.Summary.Percentage),
		}
		for _, qNum := range order {
			if q, ok := ev.Questions[qNum]; ok {
				row = append(row, formatScore(q.Score)+"/"+formatScore(q.MaxScore))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatScore renders scores without a trailing ".0" for whole values.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
