// Package eval scores a student submission against an answer key.
// MCQ questions are matched deterministically; all free-text items are
// batched into a single grading-collaborator call, and any failure
// degrades to a local keyword-overlap estimate.
package eval

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/gradescan/gradescan/internal/model"
	"github.com/gradescan/gradescan/internal/submission"
)

// Grader scores a batch of free-text items in one call. Implementations
// are external collaborators; the engine never trusts their output
// without clamping it to the item's mark bounds.
type Grader interface {
	GradeBatch(ctx context.Context, items []model.GradingItem) (map[string]model.ItemScore, error)
}

// Engine evaluates submissions against a single read-only answer key.
type Engine struct {
	grader  Grader
	retries int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetries sets how many times the batched grading call is retried
// before falling back to the heuristic. The default is zero: a single
// attempt, then fallback, which bounds worst-case latency.
func WithRetries(n int) Option {
	return func(e *Engine) { e.retries = n }
}

// New creates an Engine. A nil grader is allowed and routes every
// free-text item through the heuristic scorer.
func New(g Grader, opts ...Option) *Engine {
	e := &Engine{grader: g}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate produces one Evaluation for the given key and submission.
// Every question in the key appears exactly once in the result; a
// question absent from the submission scores zero.
func (e *Engine) Evaluate(ctx context.Context, key *model.AnswerKey, sub model.Submission) *model.Evaluation {
	result := &model.Evaluation{
		Questions: make(map[string]*model.QuestionResult),
		Summary: model.Summary{
			TotalPossible: key.Metadata.TotalMarks,
		},
	}

	var items []model.GradingItem

	for qNum, q := range key.Questions {
		answer, attempted := sub[qNum]
		if !attempted {
			result.Questions[qNum] = &model.QuestionResult{
				Score:    0,
				MaxScore: q.MaxScore(),
				Feedback: "Question not attempted",
			}
			continue
		}

		switch q.Kind {
		case model.KindMCQ:
			score, feedback := scoreMCQ(answer, q)
			result.Questions[qNum] = &model.QuestionResult{
				Score:      score,
				MaxScore:   q.Marks,
				Feedback:   feedback,
				AnswerText: answer,
			}
			result.Summary.TotalScore += score

		case model.KindDescriptive:
			items = append(items, model.GradingItem{
				ID:            qNum,
				KeyPoints:     q.KeyPoints,
				AnswerText:    q.AnswerText,
				StudentAnswer: answer,
				MaxScore:      q.Marks,
			})

		case model.KindComposite:
			subAnswers := submission.ParseSubAnswers(answer)
			for letter, subQ := range q.Subs {
				subAnswer, found := subAnswers[letter]
				if !found {
					// Best effort: grade the whole answer, telling the
					// grader to focus on this part only.
					subAnswer = answer
				}
				items = append(items, model.GradingItem{
					ID:            qNum + "_" + letter,
					KeyPoints:     subQ.KeyPoints,
					AnswerText:    subQ.AnswerText,
					StudentAnswer: subAnswer,
					MaxScore:      subQ.Marks,
					Partial:       !found,
				})
			}
		}
	}

	if len(items) > 0 {
		scores := e.gradeItems(ctx, items)
		e.mergeItems(result, sub, items, scores)
	}

	if result.Summary.TotalPossible > 0 {
		result.Summary.Percentage = round2(result.Summary.TotalScore / result.Summary.TotalPossible * 100)
	}
	return result
}

// gradeItems runs the batched grading attempt and fills gaps with the
// heuristic estimator. Collaborator failures are absorbed here: a
// per-item miss falls back individually, a batch-level failure falls
// back for every item.
func (e *Engine) gradeItems(ctx context.Context, items []model.GradingItem) map[string]model.ItemScore {
	var graded map[string]model.ItemScore

	if e.grader != nil {
		var err error
		for attempt := 0; attempt <= e.retries; attempt++ {
			graded, err = e.grader.GradeBatch(ctx, items)
			if err == nil {
				break
			}
			slog.Warn("batched grading attempt failed", "attempt", attempt+1, "error", err)
			graded = nil
		}
	}

	scores := make(map[string]model.ItemScore, len(items))
	for _, item := range items {
		if got, ok := graded[item.ID]; ok {
			scores[item.ID] = model.ItemScore{
				Score:    clamp(got.Score, 0, item.MaxScore),
				MaxScore: item.MaxScore,
				Feedback: got.Feedback,
			}
			continue
		}
		score, feedback := estimateScore(item.StudentAnswer, item.KeyPoints, item.AnswerText, item.MaxScore)
		scores[item.ID] = model.ItemScore{
			Score:    score,
			MaxScore: item.MaxScore,
			Feedback: feedback,
		}
	}
	return scores
}

// mergeItems folds graded free-text items into the result, rolling
// composite sub-results up into their parent question.
func (e *Engine) mergeItems(result *model.Evaluation, sub model.Submission, items []model.GradingItem, scores map[string]model.ItemScore) {
	for _, item := range items {
		score := scores[item.ID]

		qNum, letter, isSub := strings.Cut(item.ID, "_")
		if !isSub {
			result.Questions[qNum] = &model.QuestionResult{
				Score:      score.Score,
				MaxScore:   score.MaxScore,
				Feedback:   score.Feedback,
				AnswerText: item.StudentAnswer,
			}
			result.Summary.TotalScore += score.Score
			continue
		}

		parent, ok := result.Questions[qNum]
		if !ok {
			parent = &model.QuestionResult{
				Subs:       make(map[string]*model.SubResult),
				AnswerText: sub[qNum],
			}
			result.Questions[qNum] = parent
		}
		parent.Subs[letter] = &model.SubResult{
			Score:    score.Score,
			MaxScore: score.MaxScore,
			Feedback: score.Feedback,
		}
		parent.Score += score.Score
		parent.MaxScore += score.MaxScore
		result.Summary.TotalScore += score.Score
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
