package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quiz-desk/internal/importer"
	"quiz-desk/internal/opentdb"
	"quiz-desk/internal/quiz"
)

const defaultTriviaAmount = 10

func (a *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveAttempts: a.attempts.Active(),
	})
}

func (a *API) HandleListTests(w http.ResponseWriter, r *http.Request) {
	teacher := strings.TrimSpace(r.URL.Query().Get("teacher"))

	var (
		tests []quiz.Test
		err   error
	)
	if teacher != "" {
		tests, err = a.service.ListTestsByTeacher(r.Context(), teacher)
	} else {
		tests, err = a.service.ListTests(r.Context())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := testsResponse{Tests: make([]testResponse, 0, len(tests))}
	for _, test := range tests {
		response.Tests = append(response.Tests, toTestResponse(test))
	}
	writeJSON(w, http.StatusOK, response)
}

func (a *API) HandleCreateTest(w http.ResponseWriter, r *http.Request) {
	var request testRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	saved, err := a.service.SaveTest(r.Context(), request.TeacherName, request.toTest(""))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTestResponse(saved))
}

func (a *API) HandleGetTest(w http.ResponseWriter, r *http.Request) {
	test, err := a.service.GetTest(r.Context(), chi.URLParam(r, "test_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTestResponse(test))
}

// HandleUpdateTest replaces an existing test. It never creates one, so a
// typo in the id cannot silently fork a test.
func (a *API) HandleUpdateTest(w http.ResponseWriter, r *http.Request) {
	existing, err := a.service.GetTest(r.Context(), chi.URLParam(r, "test_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var request testRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	teacher := request.TeacherName
	if strings.TrimSpace(teacher) == "" {
		teacher = existing.TeacherName
	}

	saved, err := a.service.SaveTest(r.Context(), teacher, request.toTest(existing.ID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTestResponse(saved))
}

func (a *API) HandleDeleteTest(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "test_id")
	if err := a.service.DeleteTest(r.Context(), testID, parseBoolParam(r, "confirm")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleImportTrivia(w http.ResponseWriter, r *http.Request) {
	if a.trivia == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "trivia import is disabled"})
		return
	}

	var request triviaImportRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	teacher, err := quiz.NormalizeName(request.TeacherName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if request.Amount <= 0 {
		request.Amount = defaultTriviaAmount
	}

	test, err := a.trivia.Import(r.Context(), teacher, request.Title, opentdb.Query{
		Amount:     request.Amount,
		Category:   request.Category,
		Difficulty: request.Difficulty,
	})
	if err != nil {
		var validation *quiz.ValidationError
		if errors.As(err, &validation) {
			writeServiceError(w, err)
			return
		}
		if errors.Is(err, opentdb.ErrNoResults) || errors.Is(err, importer.ErrNoUsableQuestions) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "no usable trivia questions for this query, try a smaller amount or another category"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to fetch trivia questions"})
		return
	}

	saved, err := a.service.SaveTest(r.Context(), teacher, test)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTestResponse(saved))
}

func (a *API) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	submissions, err := a.service.ListSubmissions(r.Context(), quiz.SubmissionFilter{
		StudentName: r.URL.Query().Get("student"),
		TestID:      strings.TrimSpace(r.URL.Query().Get("test_id")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit > 0 && len(submissions) > limit {
		submissions = submissions[:limit]
	}

	response := submissionsResponse{Submissions: make([]submissionResponse, 0, len(submissions))}
	for _, submission := range submissions {
		response.Submissions = append(response.Submissions, toSubmissionResponse(submission))
	}
	writeJSON(w, http.StatusOK, response)
}

func (a *API) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	submission, err := a.service.GetSubmission(r.Context(), chi.URLParam(r, "submission_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(submission))
}
