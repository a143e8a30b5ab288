package store

import (
	"fmt"

	"github.com/gradescan/gradescan/internal/model"
)

// ExportRun rebuilds every evaluation persisted under a run, ordered by
// student ID, for consolidated reporting.
func (s *Store) ExportRun(runID int64) ([]*model.Evaluation, error) {
	rows, err := s.db.Query(
		`SELECT id, student_id, total_score, total_possible, percentage
		 FROM sheets WHERE run_id = ? ORDER BY student_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	type sheet struct {
		id int64
		ev *model.Evaluation
	}
	var sheets []sheet
	for rows.Next() {
		var sh sheet
		sh.ev = &model.Evaluation{Questions: make(map[string]*model.QuestionResult)}
		if err := rows.Scan(&sh.id, &sh.ev.StudentID, &sh.ev.Summary.TotalScore,
			&sh.ev.Summary.TotalPossible, &sh.ev.Summary.Percentage); err != nil {
			return nil, err
		}
		sheets = append(sheets, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sh := range sheets {
		if err := s.loadQuestionResults(sh.id, sh.ev); err != nil {
			return nil, fmt.Errorf("load sheet %d: %w", sh.id, err)
		}
	}

	results := make([]*model.Evaluation, 0, len(sheets))
	for _, sh := range sheets {
		results = append(results, sh.ev)
	}
	return results, nil
}

func (s *Store) loadQuestionResults(sheetID int64, ev *model.Evaluation) error {
	rows, err := s.db.Query(
		`SELECT question, sub_letter, score, max_score, feedback, answer_text
		 FROM question_results WHERE sheet_id = ? ORDER BY question, sub_letter`, sheetID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var qNum, letter, feedback, answerText string
		var score, maxScore float64
		if err := rows.Scan(&qNum, &letter, &score, &maxScore, &feedback, &answerText); err != nil {
			return err
		}

		if letter == "" {
			q := ev.Questions[qNum]
			if q == nil {
				q = &model.QuestionResult{}
				ev.Questions[qNum] = q
			}
			q.Score = score
			q.MaxScore = maxScore
			q.Feedback = feedback
			q.AnswerText = answerText
			continue
		}

		q := ev.Questions[qNum]
		if q == nil {
			q = &model.QuestionResult{}
			ev.Questions[qNum] = q
		}
		if q.Subs == nil {
			q.Subs = make(map[string]*model.SubResult)
		}
		q.Subs[letter] = &model.SubResult{Score: score, MaxScore: maxScore, Feedback: feedback}
	}
	return rows.Err()
}
