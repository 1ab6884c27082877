package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"quiz-desk/internal/attempt"
	"quiz-desk/internal/quiz"
)

const maxBodyBytes = 1 << 20

func writeServiceError(w http.ResponseWriter, err error) {
	var validation *quiz.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid test", Problems: validation.Problems})
	case errors.Is(err, quiz.ErrTestNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "test not found"})
	case errors.Is(err, quiz.ErrSubmissionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "submission not found"})
	case errors.Is(err, attempt.ErrAttemptNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "attempt not found"})
	case errors.Is(err, quiz.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
	case errors.Is(err, attempt.ErrNoQuestions):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "test has no questions"})
	case errors.Is(err, attempt.ErrUnknownQuestion):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question does not belong to the test"})
	case errors.Is(err, attempt.ErrAttemptClosed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "attempt is no longer active"})
	case errors.Is(err, quiz.ErrConfirmationRequired):
		writeJSON(w, http.StatusPreconditionRequired, errorResponse{Error: "deleting a test cannot be undone; repeat with confirm=true"})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

// decodeJSON reads a bounded JSON body into dst and writes the 400 itself
// on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func parseBoolParam(r *http.Request, key string) bool {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	return value == "1" || value == "true" || value == "yes"
}

func parseIntParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
