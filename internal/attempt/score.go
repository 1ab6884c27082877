package attempt

import (
	"time"

	"quiz-desk/internal/quiz"
)

// Score grades answers against test in question order. Every question gets
// an entry; unanswered ones carry quiz.NoAnswer. A selection counts only on
// exact equality with a non-empty correct answer id, so an unmarked question
// is never scored correct. Selections are recorded as given even when they
// name no option.
func Score(test quiz.Test, answers map[string]string) ([]quiz.StudentAnswer, int) {
	graded := make([]quiz.StudentAnswer, 0, len(test.Questions))
	score := 0
	for _, question := range test.Questions {
		selected := answers[question.ID]
		graded = append(graded, quiz.StudentAnswer{
			QuestionID:       question.ID,
			SelectedAnswerID: selected,
		})
		if question.CorrectAnswerID != "" && selected == question.CorrectAnswerID {
			score++
		}
	}
	return graded, score
}

// BuildSubmission scores answers and stamps the result with id and at.
func BuildSubmission(test quiz.Test, studentName string, answers map[string]string, id string, at time.Time) quiz.TestSubmission {
	graded, score := Score(test, answers)
	return quiz.TestSubmission{
		ID:             id,
		StudentName:    studentName,
		TestID:         test.ID,
		TestTitle:      test.Title,
		Answers:        graded,
		Score:          score,
		TotalQuestions: len(test.Questions),
		SubmittedAt:    quiz.FormatSubmittedAt(at),
	}
}
