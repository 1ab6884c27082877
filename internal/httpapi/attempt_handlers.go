package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quiz-desk/internal/attempt"
)

func (a *API) lookupAttempt(w http.ResponseWriter, r *http.Request) (*attempt.Attempt, bool) {
	found, err := a.attempts.Get(chi.URLParam(r, "attempt_id"))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return found, true
}

func (a *API) HandleStartAttempt(w http.ResponseWriter, r *http.Request) {
	var request startAttemptRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	test, err := a.service.GetTest(r.Context(), request.TestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	started, err := a.attempts.Start(test, request.StudentName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttemptResponse(started.Snapshot()))
}

func (a *API) HandleGetAttempt(w http.ResponseWriter, r *http.Request) {
	found, ok := a.lookupAttempt(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(found.Snapshot()))
}

func (a *API) HandleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	found, ok := a.lookupAttempt(w, r)
	if !ok {
		return
	}

	var request answerRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	var err error
	if request.QuestionID == "" {
		err = found.SelectCurrent(request.AnswerID)
	} else {
		err = found.SelectAnswer(request.QuestionID, request.AnswerID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(found.Snapshot()))
}

// HandleNext and HandlePrev answer with the current view even when the move
// is refused; the view's can_advance and can_retreat say why.
func (a *API) HandleNext(w http.ResponseWriter, r *http.Request) {
	a.navigate(w, r, (*attempt.Attempt).Advance)
}

func (a *API) HandlePrev(w http.ResponseWriter, r *http.Request) {
	a.navigate(w, r, (*attempt.Attempt).Retreat)
}

func (a *API) navigate(w http.ResponseWriter, r *http.Request, move func(*attempt.Attempt) bool) {
	found, ok := a.lookupAttempt(w, r)
	if !ok {
		return
	}
	if found.State() != attempt.StateActive {
		writeServiceError(w, attempt.ErrAttemptClosed)
		return
	}

	move(found)
	writeJSON(w, http.StatusOK, toAttemptResponse(found.Snapshot()))
}

func (a *API) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	found, ok := a.lookupAttempt(w, r)
	if !ok {
		return
	}

	submission, submitted := found.Submit()
	if !submitted {
		writeServiceError(w, attempt.ErrAttemptClosed)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponse(submission))
}

func (a *API) HandleAbandonAttempt(w http.ResponseWriter, r *http.Request) {
	if err := a.attempts.Abandon(chi.URLParam(r, "attempt_id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
