// Package server exposes the orchestration engine over HTTP. It is a thin
// boundary: requests are validated, handed to the orchestrator and the result
// serialized. All orchestration failures collapse into one generic error
// payload so internals never leak to clients.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/platewise/platewise/logging"
)

// Executor runs one user request end to end and returns the final answer.
type Executor interface {
	Execute(ctx context.Context, userID, userInput, sessionID string) (string, error)
}

// Options configures the HTTP server.
type Options struct {
	RequestTimeout time.Duration
	Logger         logging.Logger
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Server wires the orchestrator behind a chi router.
type Server struct {
	executor Executor
	opts     Options
	router   chi.Router
}

// New creates the HTTP boundary around the given executor.
func New(executor Executor, optFns ...func(o *Options)) *Server {
	opts := Options{
		RequestTimeout: 120 * time.Second,
		Logger:         logging.NoOpLogger{},
		Now:            time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{executor: executor, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/meal-plan", s.handleMealPlan)

	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type mealPlanRequest struct {
	UserID    string `json:"user_id"`
	UserInput string `json:"user_input"`
	SessionID string `json:"session_id,omitempty"`
}

type mealPlanResponse struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Status    string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMealPlan(w http.ResponseWriter, r *http.Request) {
	var req mealPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if req.UserID == "" || req.UserInput == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id and user_input are required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%s_%d", req.UserID, s.opts.Now().Unix())
	}

	text, err := s.executor.Execute(r.Context(), req.UserID, req.UserInput, sessionID)
	if err != nil {
		s.opts.Logger.Error("server.request_failed",
			"user_id", req.UserID, "session_id", sessionID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "failed to process request",
		})
		return
	}

	writeJSON(w, http.StatusOK, mealPlanResponse{
		UserID:    req.UserID,
		SessionID: sessionID,
		Response:  text,
		Status:    "success",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
