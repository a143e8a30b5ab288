package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gradescan/gradescan/internal/model"
)

// fakeGrader scripts the grading collaborator for engine tests.
type fakeGrader struct {
	scores map[string]model.ItemScore
	err    error
	calls  int
	// failFirst makes only the first call fail, for retry tests.
	failFirst bool
}

func (f *fakeGrader) GradeBatch(_ context.Context, items []model.GradingItem) (map[string]model.ItemScore, error) {
	f.calls++
	if f.failFirst && f.calls == 1 {
		return nil, errors.New("transient failure")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func mcqKey(option string, marks float64) *model.AnswerKey {
	return &model.AnswerKey{
		Questions: map[string]*model.Question{
			"1": {Kind: model.KindMCQ, Marks: marks, CorrectOption: option},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 1, TotalMarks: marks},
	}
}

func TestEvaluateMCQ(t *testing.T) {
	tests := []struct {
		name         string
		answer       string
		wantScore    float64
		wantFeedback []string
	}{
		{"correct with brackets", "(B) because it balances the equation", 2, []string{"Correct answer."}},
		{"bare letter correct", "B", 2, []string{"Correct answer."}},
		{"wrong option names both", "C", 0, []string{"C", "B"}},
		{"no option found", "42", 0, []string{"Could not identify", "B"}},
	}

	engine := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := mcqKey("B", 2)
			result := engine.Evaluate(context.Background(), key, model.Submission{"1": tt.answer})

			q := result.Questions["1"]
			if q == nil {
				t.Fatal("question 1 missing from result")
			}
			if q.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", q.Score, tt.wantScore)
			}
			for _, frag := range tt.wantFeedback {
				if !strings.Contains(q.Feedback, frag) {
					t.Errorf("feedback %q should contain %q", q.Feedback, frag)
				}
			}
		})
	}
}

func TestEvaluateUnattempted(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"3": {Kind: model.KindDescriptive, Marks: 4},
			"5": {Kind: model.KindComposite, Subs: map[string]*model.Question{
				"a": {Kind: model.KindDescriptive, Marks: 3},
				"b": {Kind: model.KindDescriptive, Marks: 2},
			}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 2, TotalMarks: 9},
	}

	result := New(nil).Evaluate(context.Background(), key, model.Submission{})

	q3 := result.Questions["3"]
	if q3 == nil {
		t.Fatal("question 3 missing")
	}
	if q3.Score != 0 || q3.MaxScore != 4 {
		t.Errorf("q3 = %v/%v, want 0/4", q3.Score, q3.MaxScore)
	}
	if q3.Feedback != "Question not attempted" {
		t.Errorf("q3 feedback = %q", q3.Feedback)
	}

	q5 := result.Questions["5"]
	if q5 == nil {
		t.Fatal("question 5 missing")
	}
	if q5.MaxScore != 5 {
		t.Errorf("composite unattempted max = %v, want sum of sub marks 5", q5.MaxScore)
	}

	if result.Summary.TotalPossible != 9 {
		t.Errorf("total possible = %v, want key total marks 9", result.Summary.TotalPossible)
	}
	if result.Summary.Percentage != 0 {
		t.Errorf("percentage = %v, want 0", result.Summary.Percentage)
	}
}

func TestEvaluateBatchedGrading(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"1": {Kind: model.KindMCQ, Marks: 2, CorrectOption: "B"},
			"2": {Kind: model.KindDescriptive, Marks: 8, KeyPoints: []string{"energy is conserved in closed systems"}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 2, TotalMarks: 10},
	}
	sub := model.Submission{"1": "B", "2": "energy stays the same"}

	grader := &fakeGrader{scores: map[string]model.ItemScore{
		"2": {Score: 5, MaxScore: 8, Feedback: "partially complete"},
	}}
	result := New(grader).Evaluate(context.Background(), key, sub)

	if grader.calls != 1 {
		t.Errorf("grader calls = %d, want 1 (single batched request)", grader.calls)
	}
	if got := result.Questions["2"].Score; got != 5 {
		t.Errorf("q2 score = %v, want 5", got)
	}
	if got := result.Questions["2"].Feedback; got != "partially complete" {
		t.Errorf("q2 feedback = %q", got)
	}
	if result.Summary.TotalScore != 7 {
		t.Errorf("total = %v, want 7", result.Summary.TotalScore)
	}
	if result.Summary.Percentage != 70.0 {
		t.Errorf("percentage = %v, want 70.0", result.Summary.Percentage)
	}
}

func TestEvaluateClampsScores(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"1": {Kind: model.KindDescriptive, Marks: 5, KeyPoints: []string{"a point"}},
			"2": {Kind: model.KindDescriptive, Marks: 5, KeyPoints: []string{"another point"}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 2, TotalMarks: 10},
	}
	sub := model.Submission{"1": "answer one", "2": "answer two"}

	grader := &fakeGrader{scores: map[string]model.ItemScore{
		"1": {Score: 12, MaxScore: 5, Feedback: "too generous"},
		"2": {Score: -3, MaxScore: 5, Feedback: "below zero"},
	}}
	result := New(grader).Evaluate(context.Background(), key, sub)

	if got := result.Questions["1"].Score; got != 5 {
		t.Errorf("over-max score = %v, want clamped to 5", got)
	}
	if got := result.Questions["2"].Score; got != 0 {
		t.Errorf("negative score = %v, want clamped to 0", got)
	}
}

func TestEvaluateMissingItemFallsBack(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"1": {Kind: model.KindDescriptive, Marks: 4, KeyPoints: []string{"explains mitosis produces two cells"}},
			"2": {Kind: model.KindDescriptive, Marks: 4, KeyPoints: []string{"gravity attracts masses together"}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 2, TotalMarks: 8},
	}
	sub := model.Submission{
		"1": "mitosis produces daughter cells",
		"2": "something unrelated entirely",
	}

	// Response covers question 1 only; question 2 must be estimated
	// locally.
	grader := &fakeGrader{scores: map[string]model.ItemScore{
		"1": {Score: 4, MaxScore: 4, Feedback: "good"},
	}}
	result := New(grader).Evaluate(context.Background(), key, sub)

	if got := result.Questions["1"].Feedback; got != "good" {
		t.Errorf("q1 feedback = %q, want grader feedback", got)
	}
	if got := result.Questions["2"].Feedback; !strings.Contains(got, "key points") {
		t.Errorf("q2 feedback = %q, want heuristic feedback", got)
	}
}

func TestEvaluateGraderErrorFallsBack(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"1": {Kind: model.KindDescriptive, Marks: 4, KeyPoints: []string{"explains mitosis produces two cells"}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 1, TotalMarks: 4},
	}
	sub := model.Submission{"1": "mitosis produces daughter cells"}

	grader := &fakeGrader{err: errors.New("connection refused")}
	result := New(grader).Evaluate(context.Background(), key, sub)

	q := result.Questions["1"]
	if q.Score != 4 {
		t.Errorf("heuristic score = %v, want full credit 4", q.Score)
	}
	if q.Feedback != "Answer addresses all key points correctly." {
		t.Errorf("feedback = %q", q.Feedback)
	}
}

func TestEvaluateRetries(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"1": {Kind: model.KindDescriptive, Marks: 4, KeyPoints: []string{"a point"}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 1, TotalMarks: 4},
	}
	sub := model.Submission{"1": "an answer"}

	grader := &fakeGrader{
		failFirst: true,
		scores:    map[string]model.ItemScore{"1": {Score: 3, MaxScore: 4, Feedback: "second try"}},
	}
	result := New(grader, WithRetries(1)).Evaluate(context.Background(), key, sub)

	if grader.calls != 2 {
		t.Errorf("grader calls = %d, want 2", grader.calls)
	}
	if got := result.Questions["1"].Feedback; got != "second try" {
		t.Errorf("feedback = %q, want result from retry", got)
	}
}

func TestEvaluateComposite(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"5": {Kind: model.KindComposite, Subs: map[string]*model.Question{
				"a": {Kind: model.KindDescriptive, Marks: 3, KeyPoints: []string{"first part point"}},
				"b": {Kind: model.KindDescriptive, Marks: 2, KeyPoints: []string{"second part point"}},
			}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 1, TotalMarks: 5},
	}
	sub := model.Submission{"5": "a) answer one\nb) answer two"}

	grader := &fakeGrader{scores: map[string]model.ItemScore{
		"5_a": {Score: 2, MaxScore: 3, Feedback: "decent"},
		"5_b": {Score: 2, MaxScore: 2, Feedback: "complete"},
	}}
	result := New(grader).Evaluate(context.Background(), key, sub)

	q5 := result.Questions["5"]
	if q5 == nil {
		t.Fatal("question 5 missing")
	}
	if q5.Score != 4 || q5.MaxScore != 5 {
		t.Errorf("rolled up = %v/%v, want 4/5", q5.Score, q5.MaxScore)
	}
	if len(q5.Subs) != 2 {
		t.Fatalf("subs = %d, want 2", len(q5.Subs))
	}
	if q5.Subs["a"].Score != 2 || q5.Subs["a"].MaxScore != 3 {
		t.Errorf("sub a = %v/%v, want 2/3", q5.Subs["a"].Score, q5.Subs["a"].MaxScore)
	}
	if result.Summary.TotalScore != 4 {
		t.Errorf("total = %v, want 4", result.Summary.TotalScore)
	}
	if result.Summary.Percentage != 80.0 {
		t.Errorf("percentage = %v, want 80.0", result.Summary.Percentage)
	}
}

func TestEvaluateCompositeMissingSubLetter(t *testing.T) {
	key := &model.AnswerKey{
		Questions: map[string]*model.Question{
			"5": {Kind: model.KindComposite, Subs: map[string]*model.Question{
				"a": {Kind: model.KindDescriptive, Marks: 3, KeyPoints: []string{"first part point"}},
				"b": {Kind: model.KindDescriptive, Marks: 2, KeyPoints: []string{"second part point"}},
			}},
		},
		Metadata: model.KeyMetadata{TotalQuestions: 1, TotalMarks: 5},
	}
	// No lettered markers at all: both sub-parts should be graded
	// against the full answer, flagged partial.
	sub := model.Submission{"5": "one undivided answer covering both parts"}

	var seen []model.GradingItem
	grader := &captureGrader{capture: &seen}
	New(grader).Evaluate(context.Background(), key, sub)

	if len(seen) != 2 {
		t.Fatalf("items = %d, want 2", len(seen))
	}
	for _, item := range seen {
		if item.StudentAnswer != "one undivided answer covering both parts" {
			t.Errorf("item %s answer = %q, want full text fallback", item.ID, item.StudentAnswer)
		}
		if !item.Partial {
			t.Errorf("item %s should be flagged partial", item.ID)
		}
	}
}

// captureGrader records the items it was asked to grade.
type captureGrader struct {
	capture *[]model.GradingItem
}

func (c *captureGrader) GradeBatch(_ context.Context, items []model.GradingItem) (map[string]model.ItemScore, error) {
	*c.capture = append(*c.capture, items...)
	return map[string]model.ItemScore{}, nil
}
