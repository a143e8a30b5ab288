// Package submission converts recognized answer-sheet text into
// per-question answers, and splits composite answers into lettered
// sub-parts.
package submission

import (
	"regexp"
	"strings"

	"github.com/gradescan/gradescan/internal/model"
)

var (
	// A question header occupies its own line: "7", "7.", "7)" or
	// "Question 7", possibly followed only by whitespace.
	headerRe = regexp.MustCompile(`^(?:Question\s*)?(\d+)[.)]?\s*$`)
	// A lettered sub-part marker: "a)", "b.", "(c)" with optional
	// leading punctuation or whitespace.
	subMarkerRe = regexp.MustCompile(`^[(\s]*([a-zA-Z])[)\s.](.*)$`)
)

// Parse splits recognized text into question blocks. Text following a
// header line, up to the next header or end of input, becomes that
// question's answer (newline-preserved, trimmed). Text before the
// first header is dropped.
func Parse(text string) model.Submission {
	answers := make(model.Submission)

	var curQ string
	var lines []string

	save := func() {
		if curQ == "" || len(lines) == 0 {
			return
		}
		if answer := strings.TrimSpace(strings.Join(lines, "\n")); answer != "" {
			answers[curQ] = answer
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			save()
			curQ = m[1]
			lines = nil
			continue
		}
		if curQ != "" {
			lines = append(lines, line)
		}
	}
	save()

	return answers
}

// ParseSubAnswers decomposes a composite answer into lettered parts
// using the same buffer-flush discipline as the key parser. Letters
// are lower-cased. A letter missing from the result is handled by the
// caller, which falls back to the full answer text.
func ParseSubAnswers(text string) map[string]string {
	subs := make(map[string]string)

	var curSub string
	var lines []string

	save := func() {
		if curSub == "" || len(lines) == 0 {
			return
		}
		subs[curSub] = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if m := subMarkerRe.FindStringSubmatch(line); m != nil {
			save()
			curSub = strings.ToLower(m[1])
			lines = []string{strings.TrimSpace(m[2])}
			continue
		}
		if curSub != "" {
			lines = append(lines, line)
		}
	}
	save()

	return subs
}
