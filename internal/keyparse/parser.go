package keyparse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/gradescan/gradescan/internal/model"
)

// Patterns tried in priority order on every line: MCQ first, then
// question header, then sub-question header. A line matching none of
// them is a continuation of the open question, or dropped when no
// question is open.
var (
	mcqRe      = regexp.MustCompile(`^(\d+)\.\s*([A-D])\s*\((.*)\)$`)
	questionRe = regexp.MustCompile(`^(\d+)\.(.*)$`)
	subRe      = regexp.MustCompile(`^([a-z])\)(.*)$`)
	marksRe    = regexp.MustCompile(`\((\d+)\)$|\((\d+)\s*marks?\)$`)
)

type parseState int

const (
	stateNone parseState = iota
	stateInQuestion
	stateInSubquestion
)

// parser is the forward-pass state machine over answer-key lines.
// A single accumulation buffer collects continuation lines and is
// flushed into the open question or sub-question whenever a new header
// line (or end of input) is reached.
type parser struct {
	key     *model.AnswerKey
	state   parseState
	curQ    string
	curSub  string
	buffer  []string
	dropped int
}

// Parse converts raw answer-key text into a structured AnswerKey.
// Lines that match no pattern while no question is open are dropped;
// the count of dropped lines is logged so noisy extractions stay
// observable.
func Parse(text string) *model.AnswerKey {
	p := &parser{
		key: &model.AnswerKey{Questions: make(map[string]*model.Question)},
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		p.consume(line)
	}
	p.flush()

	extractKeyPoints(p.key)

	if p.dropped > 0 {
		slog.Warn("answer key lines dropped before first question", "count", p.dropped)
	}
	return p.key
}

func (p *parser) consume(line string) {
	if m := mcqRe.FindStringSubmatch(line); m != nil {
		p.flush()
		p.startMCQ(m[1], m[2], m[3], line)
		return
	}
	if m := questionRe.FindStringSubmatch(line); m != nil {
		p.flush()
		p.startQuestion(m[1], strings.TrimSpace(m[2]), line)
		return
	}
	if m := subRe.FindStringSubmatch(line); m != nil && p.state != stateNone {
		p.flush()
		p.startSubquestion(m[1], strings.TrimSpace(m[2]), line)
		return
	}
	if p.state == stateNone {
		p.dropped++
		return
	}
	p.buffer = append(p.buffer, line)
}

// flush assigns the accumulated buffer to the in-progress question or
// sub-question as its answer text.
func (p *parser) flush() {
	if len(p.buffer) == 0 {
		return
	}
	text := strings.Join(p.buffer, "\n")
	p.buffer = nil

	q, ok := p.key.Questions[p.curQ]
	if !ok {
		return
	}
	switch p.state {
	case stateInSubquestion:
		if sub, ok := q.Subs[p.curSub]; ok {
			sub.AnswerText = text
		}
	case stateInQuestion:
		q.AnswerText = text
	}
}

func (p *parser) startMCQ(num, option, explanation, line string) {
	marks := extractMarks(explanation)
	p.key.Questions[num] = &model.Question{
		Kind:          model.KindMCQ,
		Marks:         float64(marks),
		FullText:      line,
		CorrectOption: option,
	}
	p.key.Metadata.TotalQuestions++
	p.key.Metadata.TotalMarks += float64(marks)

	p.state = stateInQuestion
	p.curQ = num
	p.curSub = ""
	p.buffer = nil
	if text := strings.TrimSpace(explanation); text != "" {
		p.buffer = []string{text}
	}
}

func (p *parser) startQuestion(num, rest, line string) {
	marks := extractMarks(rest)
	p.key.Questions[num] = &model.Question{
		Kind:     model.KindDescriptive,
		Marks:    float64(marks),
		FullText: line,
	}
	p.key.Metadata.TotalQuestions++
	p.key.Metadata.TotalMarks += float64(marks)

	p.state = stateInQuestion
	p.curQ = num
	p.curSub = ""
	p.buffer = nil
	if rest != "" {
		p.buffer = []string{rest}
	}
}

func (p *parser) startSubquestion(letter, rest, line string) {
	q := p.key.Questions[p.curQ]
	if q == nil {
		p.state = stateNone
		return
	}

	marks := extractMarks(rest)

	if q.Subs == nil {
		q.Subs = make(map[string]*model.Question)
		q.Kind = model.KindComposite
	}
	q.Subs[letter] = &model.Question{
		Kind:     model.KindDescriptive,
		Marks:    float64(marks),
		FullText: line,
	}

	// Marks live only at the leaves: the parent's own marks are
	// subtracted from the running total once and zeroed so they are
	// never double counted.
	p.key.Metadata.TotalMarks += float64(marks) - q.Marks
	q.Marks = 0

	p.state = stateInSubquestion
	p.curSub = letter
	p.buffer = nil
	if rest != "" {
		p.buffer = []string{rest}
	}
}

// extractMarks reads a trailing "(n)" or "(n marks)" annotation.
// Questions without an annotation are worth 1 mark.
func extractMarks(s string) int {
	m := marksRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 1
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 1
	}
	return n
}
