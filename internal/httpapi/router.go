package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(api *API, corsOrigins []string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", api.HandleHealth)

	r.Route("/tests", func(tr chi.Router) {
		tr.Get("/", api.HandleListTests)
		tr.Post("/", api.HandleCreateTest)
		tr.Post("/import/trivia", api.HandleImportTrivia)
		tr.Get("/{test_id}", api.HandleGetTest)
		tr.Put("/{test_id}", api.HandleUpdateTest)
		tr.Delete("/{test_id}", api.HandleDeleteTest)
	})

	r.Route("/attempts", func(ar chi.Router) {
		ar.Post("/", api.HandleStartAttempt)
		ar.Get("/{attempt_id}", api.HandleGetAttempt)
		ar.Delete("/{attempt_id}", api.HandleAbandonAttempt)
		ar.Put("/{attempt_id}/answer", api.HandleSelectAnswer)
		ar.Post("/{attempt_id}/next", api.HandleNext)
		ar.Post("/{attempt_id}/prev", api.HandlePrev)
		ar.Post("/{attempt_id}/submit", api.HandleSubmit)
	})

	r.Route("/submissions", func(sr chi.Router) {
		sr.Get("/", api.HandleListSubmissions)
		sr.Get("/{submission_id}", api.HandleGetSubmission)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}
