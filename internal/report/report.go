// Package report serializes evaluation results: per-student JSON and
// CSV, and consolidated CSV/XLSX across a whole run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/gradescan/gradescan/internal/model"
)

// WriteJSON writes one evaluation as indented JSON.
func WriteJSON(w io.Writer, ev *model.Evaluation) error {
	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

// questionOrder returns the evaluation's question numbers in numeric
// order, so rows come out as 1, 2, ... 10 rather than map order.
func questionOrder(questions map[string]*model.QuestionResult) []string {
	nums := make([]string, 0, len(questions))
	for q := range questions {
		nums = append(nums, q)
	}
	sort.Slice(nums, func(i, j int) bool {
		a, _ := strconv.Atoi(nums[i])
		b, _ := strconv.Atoi(nums[j])
		return a < b
	})
	return nums
}

// subOrder returns a composite result's sub letters in order.
func subOrder(subs map[string]*model.SubResult) []string {
	letters := make([]string, 0, len(subs))
	for l := range subs {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

// pct formats a score as a percentage with one decimal, guarding the
// zero-max case.
func pct(score, max float64) string {
	if max == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", score/max*100)
}
