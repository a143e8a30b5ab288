package eval

import (
	"regexp"
	"strings"

	"github.com/gradescan/gradescan/internal/keyparse"
)

// wordRe matches candidate keywords: word tokens at least four
// characters long.
var wordRe = regexp.MustCompile(`\b\w{4,}\b`)

// estimateScore is the offline fallback scorer: pure keyword overlap
// between the key points and the student's answer. A key point counts
// as matched when more than half of its significant words appear as
// whole tokens, case-insensitively, in the answer.
func estimateScore(studentAnswer string, keyPoints []string, answerText string, maxScore float64) (float64, string) {
	if len(keyPoints) == 0 {
		keyPoints = keyparse.SplitKeyPoints(answerText)
	}
	if len(keyPoints) == 0 {
		return 0, "Unable to evaluate answer due to missing reference points."
	}

	answerWords := tokenSet(studentAnswer)

	matched := 0
	for _, point := range keyPoints {
		keywords := significantWords(point)
		if len(keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range keywords {
			if _, ok := answerWords[kw]; ok {
				hits++
			}
		}
		if float64(hits)/float64(len(keywords)) > 0.5 {
			matched++
		}
	}

	score := round1(float64(matched) / float64(len(keyPoints)) * maxScore)

	var feedback string
	switch {
	case matched == len(keyPoints):
		feedback = "Answer addresses all key points correctly."
	case float64(matched) > float64(len(keyPoints))/2:
		feedback = "Answer addresses many key points but is missing some important details."
	default:
		feedback = "Answer is missing several key points or contains inaccuracies."
	}
	return score, feedback
}

// significantWords extracts the alphabetic tokens of a key point that
// are long enough to be discriminating.
func significantWords(point string) []string {
	var words []string
	for _, w := range wordRe.FindAllString(strings.ToLower(point), -1) {
		if isAlpha(w) {
			words = append(words, w)
		}
	}
	return words
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		set[w] = struct{}{}
	}
	return set
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
