package quiz

import "errors"

var (
	ErrOptionLimit   = errors.New("option limit reached")
	ErrQuestionIndex = errors.New("question index out of range")
	ErrOptionIndex   = errors.New("option index out of range")
)

// Draft is a test being edited. It keeps the editing rules of the creator
// screen: new questions start with two blank options, a question holds at
// most five options and never fewer than two, and removing the option
// marked correct clears the mark.
type Draft struct {
	ID          string
	Title       string
	TeacherName string
	Questions   []Question
}

// NewDraft starts a blank draft, or an edit of existing when it is non-nil.
func NewDraft(teacherName string, existing *Test) (*Draft, error) {
	if existing == nil {
		return &Draft{TeacherName: teacherName}, nil
	}

	copied, err := existing.Clone()
	if err != nil {
		return nil, err
	}
	return &Draft{
		ID:          copied.ID,
		Title:       copied.Title,
		TeacherName: teacherName,
		Questions:   copied.Questions,
	}, nil
}

// AddQuestion appends a blank question and returns its index.
func (d *Draft) AddQuestion() int {
	d.Questions = append(d.Questions, Question{
		ID: NewID(),
		Options: []AnswerOption{
			{ID: NewID()},
			{ID: NewID()},
		},
	})
	return len(d.Questions) - 1
}

func (d *Draft) RemoveQuestion(qIndex int) error {
	if qIndex < 0 || qIndex >= len(d.Questions) {
		return ErrQuestionIndex
	}
	d.Questions = append(d.Questions[:qIndex], d.Questions[qIndex+1:]...)
	return nil
}

func (d *Draft) SetQuestionText(qIndex int, text string) error {
	if qIndex < 0 || qIndex >= len(d.Questions) {
		return ErrQuestionIndex
	}
	d.Questions[qIndex].Text = text
	return nil
}

// AddOption appends a blank option and returns its index.
func (d *Draft) AddOption(qIndex int) (int, error) {
	if qIndex < 0 || qIndex >= len(d.Questions) {
		return -1, ErrQuestionIndex
	}
	question := &d.Questions[qIndex]
	if len(question.Options) >= MaxOptions {
		return -1, ErrOptionLimit
	}
	question.Options = append(question.Options, AnswerOption{ID: NewID()})
	return len(question.Options) - 1, nil
}

func (d *Draft) SetOptionText(qIndex, oIndex int, text string) error {
	if qIndex < 0 || qIndex >= len(d.Questions) {
		return ErrQuestionIndex
	}
	question := &d.Questions[qIndex]
	if oIndex < 0 || oIndex >= len(question.Options) {
		return ErrOptionIndex
	}
	question.Options[oIndex].Text = text
	return nil
}

func (d *Draft) RemoveOption(qIndex, oIndex int) error {
	if qIndex < 0 || qIndex >= len(d.Questions) {
		return ErrQuestionIndex
	}
	question := &d.Questions[qIndex]
	if oIndex < 0 || oIndex >= len(question.Options) {
		return ErrOptionIndex
	}
	if len(question.Options) <= MinOptions {
		return ErrOptionLimit
	}

	removedID := question.Options[oIndex].ID
	question.Options = append(question.Options[:oIndex], question.Options[oIndex+1:]...)
	if question.CorrectAnswerID == removedID {
		question.CorrectAnswerID = ""
	}
	return nil
}

func (d *Draft) MarkCorrect(qIndex, oIndex int) error {
	if qIndex < 0 || qIndex >= len(d.Questions) {
		return ErrQuestionIndex
	}
	question := &d.Questions[qIndex]
	if oIndex < 0 || oIndex >= len(question.Options) {
		return ErrOptionIndex
	}
	question.CorrectAnswerID = question.Options[oIndex].ID
	return nil
}

// Build validates the draft and returns the test to save. A draft without
// an id gets a fresh one; an edited test keeps its id.
func (d *Draft) Build() (Test, error) {
	test := Test{
		ID:          d.ID,
		Title:       d.Title,
		TeacherName: d.TeacherName,
		Questions:   d.Questions,
	}
	if err := ValidateTest(test); err != nil {
		return Test{}, err
	}
	if test.ID == "" {
		test.ID = NewID()
	}
	return test.Clone()
}
