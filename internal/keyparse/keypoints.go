package keyparse

import (
	"strings"

	"github.com/gradescan/gradescan/internal/model"
)

// extractKeyPoints derives key points for every descriptive leaf of the
// key, top-level or nested under a composite. MCQ questions get none.
func extractKeyPoints(key *model.AnswerKey) {
	for _, q := range key.Questions {
		switch q.Kind {
		case model.KindDescriptive:
			q.KeyPoints = SplitKeyPoints(q.AnswerText)
		case model.KindComposite:
			for _, sub := range q.Subs {
				sub.KeyPoints = SplitKeyPoints(sub.AnswerText)
			}
		}
	}
}

// SplitKeyPoints splits a model answer into atomic gradable facts at
// sentence and clause boundaries: a '.' or ';' followed by whitespace
// or end of string ends a point. Empty segments are discarded.
func SplitKeyPoints(text string) []string {
	var points []string
	runes := []rune(text)

	var seg strings.Builder
	for i, r := range runes {
		if (r == '.' || r == ';') && atBoundary(runes, i) {
			if p := strings.TrimSpace(seg.String()); p != "" {
				points = append(points, p)
			}
			seg.Reset()
			continue
		}
		seg.WriteRune(r)
	}
	if p := strings.TrimSpace(seg.String()); p != "" {
		points = append(points, p)
	}
	return points
}

// atBoundary reports whether the separator at index i is followed by
// whitespace or end of string, so "3.14" and "a.b" stay intact.
func atBoundary(runes []rune, i int) bool {
	if i+1 >= len(runes) {
		return true
	}
	next := runes[i+1]
	return next == ' ' || next == '\t' || next == '\n' || next == '\r'
}
