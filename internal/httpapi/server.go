// Package httpapi serves the task-assignment, goals and chat endpoints.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/randalmurphal/taskmentor/internal/assign"
	"github.com/randalmurphal/taskmentor/internal/runlock"
)

// DefaultLockTTL bounds how long one assignment may hold the per-user lock.
const DefaultLockTTL = 2 * time.Minute

// Deps are the collaborators the handlers use.
type Deps struct {
	Runner  *assign.Runner
	Goals   *assign.GoalsService
	Chats   *assign.ChatRepo
	Locker  runlock.Locker // nil disables the per-user assignment lock
	LockTTL time.Duration
	Logger  *slog.Logger
}

// Server holds the handler dependencies.
type Server struct {
	deps Deps
	log  *slog.Logger
}

// New returns a Server. Zero-valued optional deps get defaults.
func New(deps Deps) *Server {
	if deps.Locker == nil {
		deps.Locker = runlock.Nop{}
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultLockTTL
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{deps: deps, log: deps.Logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/assign", s.handleAssign).Methods(http.MethodPost)

	r.HandleFunc("/goals", s.handleListGoals).Methods(http.MethodGet)
	r.HandleFunc("/goals", s.handleSetGoalList).Methods(http.MethodPost)
	r.HandleFunc("/goals/manage-goals", s.handleManageGoals).Methods(http.MethodPost)
	r.HandleFunc("/goals/get-goals", s.handleGetGoals).Methods(http.MethodPost)
	r.HandleFunc("/goals/{userId}", s.handleLookupGoals).Methods(http.MethodGet)

	r.HandleFunc("/chat/agent", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/chat/history/{userId}", s.handleHistory).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
