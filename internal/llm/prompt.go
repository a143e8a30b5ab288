package llm

import (
	"fmt"
	"strings"

	"github.com/gradescan/gradescan/internal/model"
)

// buildBatchPrompt describes every free-text item in one grading
// request. Items are identified by ID so the structured response can
// be matched back without positional assumptions.
func buildBatchPrompt(items []model.GradingItem) string {
	var sb strings.Builder

	sb.WriteString("You are an expert evaluator for student answers. Your task is to grade multiple answers and provide constructive feedback.\n\n")
	sb.WriteString("EVALUATION CRITERIA:\n")
	sb.WriteString("- Accuracy: Does the answer contain correct information?\n")
	sb.WriteString("- Completeness: Does the answer address all key points?\n")
	sb.WriteString("- Clarity: Is the answer clear and well-structured?\n")
	sb.WriteString("- Leniency: Be lenient in scoring and give partial marks if the answer includes key points.\n\n")
	sb.WriteString("Below are the questions and answers to evaluate. Provide a score and feedback for each.\n")

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("\nQUESTION %d (ID: %s):\n\n", i+1, item.ID))

		sb.WriteString("MODEL ANSWER KEY POINTS:\n")
		if len(item.KeyPoints) > 0 {
			for _, point := range item.KeyPoints {
				sb.WriteString("- " + point + "\n")
			}
		} else if item.AnswerText != "" {
			sb.WriteString(item.AnswerText + "\n")
		} else {
			sb.WriteString("No model answer provided\n")
		}

		sb.WriteString("\nSTUDENT ANSWER:\n")
		sb.WriteString(item.StudentAnswer + "\n")
		sb.WriteString(fmt.Sprintf("\nTOTAL MARKS AVAILABLE: %g\n", item.MaxScore))

		if item.Partial {
			sb.WriteString("Note: The student answer might contain information about multiple parts of a question. Focus only on evaluating the specific part related to the key points provided.\n")
		}
	}

	sb.WriteString("\nReturn your evaluation in this exact JSON format:\n")
	sb.WriteString(`{
  "<question id>": {
    "score": <numerical score>,
    "max_score": <maximum possible score>,
    "feedback": "<concise feedback explaining the score>"
  }
}
`)
	sb.WriteString("\nUse the question IDs exactly as provided in the QUESTION sections above. Respond with the JSON object only.\n")

	return sb.String()
}
