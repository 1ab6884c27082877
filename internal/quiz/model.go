package quiz

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// Option and question limits enforced by the authoring flow.
const (
	MinOptions = 2
	MaxOptions = 5
)

// NoAnswer marks a question the learner never answered.
const NoAnswer = ""

// SubmittedAtLayout matches the browser's Date.toISOString output so stored
// submissions stay readable by both sides.
const SubmittedAtLayout = "2006-01-02T15:04:05.000Z"

type AnswerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID              string         `json:"id"`
	Text            string         `json:"text"`
	Options         []AnswerOption `json:"options"`
	CorrectAnswerID string         `json:"correctAnswerId"`
}

type Test struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	TeacherName string     `json:"teacherName"`
	Questions   []Question `json:"questions"`
}

type StudentAnswer struct {
	QuestionID       string `json:"questionId"`
	SelectedAnswerID string `json:"selectedAnswerId"`
}

type TestSubmission struct {
	ID             string          `json:"id"`
	StudentName    string          `json:"studentName"`
	TestID         string          `json:"testId"`
	TestTitle      string          `json:"testTitle"`
	Answers        []StudentAnswer `json:"answers"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	SubmittedAt    string          `json:"submittedAt"`
}

// HasOption reports whether optionID names one of the question's options.
func (q Question) HasOption(optionID string) bool {
	for _, option := range q.Options {
		if option.ID == optionID {
			return true
		}
	}
	return false
}

// Question returns the question with the given id.
func (t Test) Question(questionID string) (Question, bool) {
	for _, question := range t.Questions {
		if question.ID == questionID {
			return question, true
		}
	}
	return Question{}, false
}

// Clone returns a deep copy so callers can hold a test that later edits
// cannot reach.
func (t Test) Clone() (Test, error) {
	var out Test
	if err := copier.CopyWithOption(&out, &t, copier.Option{DeepCopy: true}); err != nil {
		return Test{}, err
	}
	return out, nil
}

// SubmittedTime parses SubmittedAt. Records written by other clients may use
// plain RFC 3339, so that layout is accepted too.
func (s TestSubmission) SubmittedTime() (time.Time, bool) {
	if parsed, err := time.Parse(SubmittedAtLayout, s.SubmittedAt); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s.SubmittedAt); err == nil {
		return parsed.UTC(), true
	}
	return time.Time{}, false
}

// Percentage rounds score/total to a whole percent.
func Percentage(s TestSubmission) int {
	if s.TotalQuestions <= 0 {
		return 0
	}
	return int(math.Round(float64(s.Score) / float64(s.TotalQuestions) * 100))
}

// FormatSubmittedAt renders t in the stored submission layout.
func FormatSubmittedAt(t time.Time) string {
	return t.UTC().Format(SubmittedAtLayout)
}

// NewID returns a random identifier for tests, questions, options and
// submissions.
func NewID() string {
	return uuid.NewString()
}
