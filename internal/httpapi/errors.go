package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/randalmurphal/taskmentor/internal/assign"
	"github.com/randalmurphal/taskmentor/internal/runlock"
)

// writeError maps err to a status and a human-readable detail. Only
// validation and not-found messages are passed through; everything else
// gets a fixed message so internals never reach the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *assign.ValidationError
		notFound   *assign.NotFoundError
		noProjects *assign.NoCandidateProjectsError
		badPlan    *assign.PlanParseError
		reasoning  *assign.ReasoningServiceError
		commit     *assign.TaskCommitError
	)

	status, detail := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.As(err, &validation):
		status, detail = http.StatusBadRequest, validation.Message
	case errors.As(err, &notFound):
		status, detail = http.StatusNotFound, notFoundDetail(notFound)
	case errors.Is(err, runlock.ErrLocked):
		status, detail = http.StatusConflict, "An assignment is already running for this user"
	case errors.As(err, &noProjects):
		detail = "No active projects are available for assignment"
	case errors.As(err, &badPlan):
		detail = "The assistant returned an unusable plan, please try again"
	case errors.As(err, &reasoning):
		detail = "The reasoning service is unavailable, please try again later"
	case errors.As(err, &commit):
		detail = "Some tasks could not be saved"
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.log.Log(r.Context(), level, "request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	writeDetail(w, status, detail)
}

func notFoundDetail(e *assign.NotFoundError) string {
	if e.Kind == "goals" {
		return "Goals not found for this user"
	}
	return e.Error()
}
