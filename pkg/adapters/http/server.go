// Package http exposes the engine over a JSON API: one route set for
// resolving forms and one for driving sessions screen by screen.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/espalier-io/espalier"
	"github.com/espalier-io/espalier/pkg/domain"
)

// Engine defines what the server needs from the core. The root package's
// Engine satisfies it.
type Engine interface {
	Forms(ctx context.Context) ([]string, error)
	StartSession(ctx context.Context, slug, sessionID string) (*espalier.Session, error)
	Session(sessionID string) (*espalier.Session, error)
	EndSession(sessionID string)
}

// Server handles the HTTP routes.
type Server struct {
	engine Engine
	logger *slog.Logger
}

// NewHandler builds the router.
func NewHandler(engine Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/forms", s.listForms)
	r.Post("/forms/{slug}/sessions", s.startSession)
	r.Get("/sessions/{id}", s.getSession)
	r.Post("/sessions/{id}/answers", s.submitAnswers)
	r.Post("/sessions/{id}/back", s.back)
	r.Delete("/sessions/{id}", s.endSession)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.engine.Forms(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if slugs == nil {
		slugs = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"forms": slugs})
}

type startSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
			return
		}
	}

	sess, err := s.engine.StartSession(r.Context(), chi.URLParam(r, "slug"), body.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snapshotToDTO(sess.Snapshot(r.Context())))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshotToDTO(sess.Snapshot(r.Context())))
}

type submitAnswersRequest struct {
	Values map[domain.QuestionID]any `json:"values"`
}

// submitAnswers stages the posted values and advances. A validation failure
// is not an error at the transport level: it returns 422 with the refreshed
// snapshot so the client can render the message in place.
func (s *Server) submitAnswers(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body submitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	for id, value := range body.Values {
		if err := sess.SetValue(r.Context(), id, value); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	snap, err := sess.Next(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if snap.ValidationError != nil {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, snapshotToDTO(snap))
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := sess.Back(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	s.engine.EndSession(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrFormNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		s.writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, domain.ErrOperationInFlight),
		errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrNoHistory):
		s.writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
