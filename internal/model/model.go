package model

// QuestionKind discriminates the three answer-key question shapes.
type QuestionKind string

const (
	// KindMCQ is a multiple-choice question with a single correct option.
	KindMCQ QuestionKind = "mcq"
	// KindDescriptive is a free-text question graded against key points.
	KindDescriptive QuestionKind = "descriptive"
	// KindComposite is a question with lettered sub-parts, each marked
	// independently. A composite's own marks are always zero; marks live
	// only at the leaves.
	KindComposite QuestionKind = "composite"
)

// Question is one entry of the answer key. Which fields are meaningful
// depends on Kind: CorrectOption for MCQ, AnswerText/KeyPoints for
// descriptive, Subs for composite.
type Question struct {
	Kind          QuestionKind         `json:"type"`
	Marks         float64              `json:"marks"`
	FullText      string               `json:"full_text"`
	CorrectOption string               `json:"answer,omitempty"`
	AnswerText    string               `json:"answer_text,omitempty"`
	KeyPoints     []string             `json:"key_points,omitempty"`
	Subs          map[string]*Question `json:"subquestions,omitempty"`
}

// MaxScore returns the marks available for the question: the sum of
// sub-question marks for a composite, the flat mark value otherwise.
func (q *Question) MaxScore() float64 {
	if q.Kind != KindComposite {
		return q.Marks
	}
	var total float64
	for _, sub := range q.Subs {
		total += sub.Marks
	}
	return total
}

// KeyMetadata holds totals accumulated while parsing an answer key.
type KeyMetadata struct {
	TotalQuestions int     `json:"total_questions"`
	TotalMarks     float64 `json:"total_marks"`
}

// AnswerKey is the structured answer key for one exam. It is built once
// per grading run and read-only afterward, so it is safe to share
// across sequential evaluations.
type AnswerKey struct {
	Questions map[string]*Question `json:"questions"`
	Metadata  KeyMetadata          `json:"metadata"`
}

// Submission maps question numbers to the student's raw answer text.
type Submission map[string]string

// GradingItem is one free-text answer sent to the grading collaborator.
// Composite sub-parts use IDs of the form "<question>_<letter>".
type GradingItem struct {
	ID            string
	KeyPoints     []string
	AnswerText    string
	StudentAnswer string
	MaxScore      float64
	// Partial marks a sub-part answer that could not be separated from
	// the rest of the student's text; the grader is told to focus only
	// on the relevant part.
	Partial bool
}

// ItemScore is the grading collaborator's verdict for one item.
type ItemScore struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Feedback string  `json:"feedback"`
}

// SubResult is the scored outcome of one composite sub-part.
type SubResult struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Feedback string  `json:"feedback"`
}

// QuestionResult is the scored outcome of one question. Composite
// questions carry a Subs map and roll up their sub scores.
type QuestionResult struct {
	Score      float64               `json:"score"`
	MaxScore   float64               `json:"max_score"`
	Feedback   string                `json:"feedback,omitempty"`
	AnswerText string                `json:"answer_text"`
	Subs       map[string]*SubResult `json:"subquestions,omitempty"`
}

// Summary aggregates a whole evaluation.
type Summary struct {
	TotalScore    float64 `json:"total_score"`
	TotalPossible float64 `json:"total_possible"`
	Percentage    float64 `json:"percentage"`
}

// Evaluation is the terminal result of grading one submission against
// one answer key. It is never mutated after being returned, only
// serialized.
type Evaluation struct {
	StudentID string                     `json:"student_id,omitempty"`
	Questions map[string]*QuestionResult `json:"questions"`
	Summary   Summary                    `json:"summary"`
}
