package domain

import "time"

// QuestionType distinguishes scored multiple-choice questions from unscored
// free-text wordcloud questions.
type QuestionType string

const (
	QuestionChoice    QuestionType = "choice"
	QuestionWordcloud QuestionType = "wordcloud"
)

// DefaultTimeLimit applies when a bank entry omits its time limit.
const DefaultTimeLimit = 20 * time.Second

// Question is one immutable bank entry.
type Question struct {
	Text             string       `json:"text"`
	Media            string       `json:"media,omitempty"`
	Type             QuestionType `json:"type,omitempty"`
	Options          []string     `json:"options,omitempty"`
	CorrectIndices   []int        `json:"correctIndices,omitempty"`
	TimeLimitSeconds int          `json:"timeLimitSeconds"`
}

// Kind normalizes the type tag; entries without one are choice questions.
func (q Question) Kind() QuestionType {
	if q.Type == QuestionWordcloud {
		return QuestionWordcloud
	}
	return QuestionChoice
}

// TimeLimit returns the answer window for this question.
func (q Question) TimeLimit() time.Duration {
	if q.TimeLimitSeconds <= 0 {
		return DefaultTimeLimit
	}
	return time.Duration(q.TimeLimitSeconds) * time.Second
}

// IsCorrectSelection checks a choice submission for exact set equality with
// the correct indices: same cardinality, same membership, order irrelevant.
func (q Question) IsCorrectSelection(selected []int) bool {
	if q.Kind() != QuestionChoice {
		return false
	}
	correct := make(map[int]struct{}, len(q.CorrectIndices))
	for _, i := range q.CorrectIndices {
		correct[i] = struct{}{}
	}
	picked := make(map[int]struct{}, len(selected))
	for _, i := range selected {
		picked[i] = struct{}{}
	}
	if len(picked) != len(correct) {
		return false
	}
	for i := range picked {
		if _, ok := correct[i]; !ok {
			return false
		}
	}
	return true
}

// Bank is the ordered, read-only question list a game runs through.
type Bank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// QuestionAt returns the bank entry for an index, if in range.
func (b Bank) QuestionAt(index int) (Question, bool) {
	if index < 0 || index >= len(b.Questions) {
		return Question{}, false
	}
	return b.Questions[index], true
}
