package httpapi

import (
	"quiz-desk/internal/attempt"
	"quiz-desk/internal/quiz"
)

func toOptionPayloads(options []quiz.AnswerOption) []optionPayload {
	out := make([]optionPayload, 0, len(options))
	for _, option := range options {
		out = append(out, optionPayload{ID: option.ID, Text: option.Text})
	}
	return out
}

func toTestResponse(test quiz.Test) testResponse {
	questions := make([]questionPayload, 0, len(test.Questions))
	for _, question := range test.Questions {
		questions = append(questions, questionPayload{
			ID:              question.ID,
			Text:            question.Text,
			Options:         toOptionPayloads(question.Options),
			CorrectAnswerID: question.CorrectAnswerID,
		})
	}
	return testResponse{
		ID:            test.ID,
		Title:         test.Title,
		TeacherName:   test.TeacherName,
		QuestionCount: len(test.Questions),
		Questions:     questions,
	}
}

// toTest builds the domain test from a request. Missing question and option
// ids are generated. correct_index marks the answer when correct_answer_id
// is empty, so clients can author without choosing option ids.
func (req testRequest) toTest(testID string) quiz.Test {
	test := quiz.Test{
		ID:          testID,
		Title:       req.Title,
		TeacherName: req.TeacherName,
		Questions:   make([]quiz.Question, 0, len(req.Questions)),
	}
	for _, item := range req.Questions {
		question := quiz.Question{
			ID:              item.ID,
			Text:            item.Text,
			Options:         make([]quiz.AnswerOption, 0, len(item.Options)),
			CorrectAnswerID: item.CorrectAnswerID,
		}
		if question.ID == "" {
			question.ID = quiz.NewID()
		}
		for _, option := range item.Options {
			id := option.ID
			if id == "" {
				id = quiz.NewID()
			}
			question.Options = append(question.Options, quiz.AnswerOption{ID: id, Text: option.Text})
		}
		if question.CorrectAnswerID == "" && item.CorrectIndex != nil {
			if idx := *item.CorrectIndex; idx >= 0 && idx < len(question.Options) {
				question.CorrectAnswerID = question.Options[idx].ID
			}
		}
		test.Questions = append(test.Questions, question)
	}
	return test
}

func toSubmissionResponse(submission quiz.TestSubmission) submissionResponse {
	answers := make([]answerPayload, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		answers = append(answers, answerPayload{
			QuestionID:       answer.QuestionID,
			SelectedAnswerID: answer.SelectedAnswerID,
		})
	}
	return submissionResponse{
		ID:             submission.ID,
		StudentName:    submission.StudentName,
		TestID:         submission.TestID,
		TestTitle:      submission.TestTitle,
		Answers:        answers,
		Score:          submission.Score,
		TotalQuestions: submission.TotalQuestions,
		Percentage:     quiz.Percentage(submission),
		SubmittedAt:    submission.SubmittedAt,
	}
}

func toAttemptResponse(snap attempt.Snapshot) attemptResponse {
	response := attemptResponse{
		AttemptID:      snap.ID,
		TestID:         snap.TestID,
		TestTitle:      snap.TestTitle,
		StudentName:    snap.StudentName,
		State:          string(snap.State),
		QuestionIndex:  snap.Index,
		TotalQuestions: snap.Total,
		Question: attemptQuestion{
			ID:      snap.Question.ID,
			Text:    snap.Question.Text,
			Options: toOptionPayloads(snap.Question.Options),
		},
		SelectedAnswerID: snap.Selected,
		AnsweredCount:    snap.Answered,
		TimeLeftSeconds:  snap.TimeLeft,
		CanAdvance:       snap.CanAdvance,
		CanRetreat:       snap.CanRetreat,
		IsLast:           snap.IsLast,
		TimedOut:         snap.TimedOut,
	}
	if snap.Submission != nil {
		submission := toSubmissionResponse(*snap.Submission)
		response.Submission = &submission
	}
	return response
}
