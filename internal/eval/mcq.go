package eval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gradescan/gradescan/internal/model"
)

// optionRe finds a selected option letter in free text, tolerating
// forms like "A", "A)", "(A)", "a." anywhere in the answer.
var optionRe = regexp.MustCompile(`[(\s]?([A-Da-d])[)\s.]?`)

// scoreMCQ matches a multiple-choice answer deterministically, never
// via the grading collaborator. The first recognizable option letter
// in the student's text is compared to the key, case-insensitively.
func scoreMCQ(answer string, q *model.Question) (float64, string) {
	m := optionRe.FindStringSubmatch(answer)
	if m == nil {
		return 0, fmt.Sprintf("Could not identify a clear option selection. The correct answer is %s.", q.CorrectOption)
	}

	selected := strings.ToUpper(m[1])
	if selected == q.CorrectOption {
		return q.Marks, "Correct answer."
	}
	return 0, fmt.Sprintf("Incorrect answer. You selected %s, but the correct answer is %s.", selected, q.CorrectOption)
}
