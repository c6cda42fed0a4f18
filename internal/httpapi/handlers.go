package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/randalmurphal/taskmentor/internal/assign"
)

type assignRequest struct {
	UserID string `json:"userId"`
}

type agentResponse struct {
	Status        string `json:"status"`
	AgentResponse string `json:"agent_response"`
}

type goalsRequest struct {
	UserID string `json:"userId"`
	Goals  string `json:"goals"`
}

type goalListRequest struct {
	UserID string   `json:"userId"`
	Goals  []string `json:"goals"`
}

type manageGoalsResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Goals   assign.GoalRecord `json:"goals"`
}

type getGoalsResponse struct {
	Status string           `json:"status"`
	Goals  assign.GoalsView `json:"goals"`
}

type chatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

var errBadBody = &assign.ValidationError{Message: "Invalid request body"}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return &assign.ValidationError{Field: "userId", Message: "userId is required"}
	}
	return nil
}

// handleAssign runs one task assignment. Concurrent requests for the same
// user are rejected with 409 while a run is in flight.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, errBadBody)
		return
	}
	if err := requireUser(req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	release, err := s.deps.Locker.Acquire(ctx, "assign:"+req.UserID, s.deps.LockTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.log.Warn("release assignment lock", "user_id", req.UserID, "error", err)
		}
	}()

	state, err := s.deps.Runner.Assign(ctx, req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deps.Chats.Append(ctx, req.UserID, assign.UserTypeAgent, state.ResponseText); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, agentResponse{Status: "success", AgentResponse: state.ResponseText})
}

func (s *Server) handleManageGoals(w http.ResponseWriter, r *http.Request) {
	var req goalsRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, errBadBody)
		return
	}
	res, err := s.deps.Goals.SetGoals(r.Context(), req.UserID, req.Goals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg := "Goals updated successfully"
	if res.Created {
		msg = "Goals created successfully"
	}
	writeJSON(w, http.StatusOK, manageGoalsResponse{Status: "success", Message: msg, Goals: res.Record})
}

func (s *Server) handleGetGoals(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, errBadBody)
		return
	}
	if err := requireUser(req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.deps.Goals.GetGoals(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, getGoalsResponse{Status: "success", Goals: view})
}

func (s *Server) handleLookupGoals(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Goals.LookupGoals(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Goals.ListGoals(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []assign.GoalRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleSetGoalList accepts goals as a list of strings.
func (s *Server) handleSetGoalList(w http.ResponseWriter, r *http.Request) {
	var req goalListRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, errBadBody)
		return
	}
	res, err := s.deps.Goals.SetGoalList(r.Context(), req.UserID, req.Goals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Record)
}

// handleChat stores the user's message, runs the mentor and stores the reply.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, errBadBody)
		return
	}
	if err := requireUser(req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, r, &assign.ValidationError{Field: "message", Message: "Message cannot be empty"})
		return
	}

	ctx := r.Context()
	if _, err := s.deps.Chats.Append(ctx, req.UserID, assign.UserTypeUser, req.Message); err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.deps.Runner.Mentor(ctx, req.UserID, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deps.Chats.Append(ctx, req.UserID, assign.UserTypeAgent, state.ResponseText); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, agentResponse{Status: "success", AgentResponse: state.ResponseText})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Chats.History(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []assign.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

