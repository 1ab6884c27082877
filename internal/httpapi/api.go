package httpapi

import (
	"context"

	"quiz-desk/internal/attempt"
	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
)

// TriviaImporter builds a test from Open Trivia DB questions.
type TriviaImporter interface {
	Import(ctx context.Context, teacherName, title string, query opentdb.Query) (quiz.Test, error)
}

type API struct {
	service  *quiz.Service
	attempts *attempt.Manager
	trivia   TriviaImporter
}

// NewAPI wires the handlers. trivia may be nil, which disables the import
// endpoint.
func NewAPI(service *quiz.Service, attempts *attempt.Manager, trivia TriviaImporter) *API {
	return &API{
		service:  service,
		attempts: attempts,
		trivia:   trivia,
	}
}
