package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/taskmentor/internal/assign"
	"github.com/randalmurphal/taskmentor/internal/httpapi"
	"github.com/randalmurphal/taskmentor/internal/runlock"
	"github.com/randalmurphal/taskmentor/pkg/docstore"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
)

const planJSON = `{"project_id":"p1","tasks":[{"title":"t1"},{"title":"t2"},{"title":"t3"},{"title":"t4"},{"title":"t5"}]}`

type testEnv struct {
	srv    *httptest.Server
	store  *docstore.MemoryStore
	repos  assign.Repos
	locker runlock.Locker
}

func newEnv(t *testing.T, client llm.Client) *testEnv {
	t.Helper()
	store := docstore.NewMemory()
	repos := assign.NewRepos(store, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runner, err := assign.NewRunner(repos, assign.NewReasoner(client), logger)
	require.NoError(t, err)

	locker := runlock.NewMemory()
	api := httpapi.New(httpapi.Deps{
		Runner: runner,
		Goals:  assign.NewGoalsService(repos.Goals),
		Chats:  repos.Chats,
		Locker: locker,
		Logger: logger,
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, repos: repos, locker: locker}
}

func (e *testEnv) addProject(t *testing.T, id, name string) {
	t.Helper()
	_, err := e.store.InsertOne(context.Background(), assign.ProjectsCollection, assign.Project{
		ID: docstore.ID(id), Name: name, Status: assign.ProjectActive,
	})
	require.NoError(t, err)
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	status, raw := e.doRaw(t, method, path, body)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return status, out
}

func (e *testEnv) doRaw(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestHealth(t *testing.T) {
	env := newEnv(t, llm.NewMockClient(""))
	status, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAssign_EndToEnd(t *testing.T) {
	mock := llm.NewMockClient(planJSON)
	env := newEnv(t, mock)
	env.addProject(t, "p1", "API Revamp")

	status, body := env.do(t, http.MethodPost, "/goals/manage-goals", map[string]string{
		"userId": "u1", "goals": "become backend engineer",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Goals created successfully", body["message"])

	status, body = env.do(t, http.MethodPost, "/assign", map[string]string{"userId": "u1"})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body["agent_response"], "p1")
	assert.Equal(t, 1, mock.CallCount())

	tasks, err := env.repos.Tasks.AssignedTo(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, tasks, 5)

	history, err := env.repos.Chats.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, assign.UserTypeAgent, history[0].UserType)
	assert.Equal(t, body["agent_response"], history[0].Message)
}

func TestAssign_NoGoals(t *testing.T) {
	mock := llm.NewMockClient(planJSON)
	env := newEnv(t, mock)
	env.addProject(t, "p1", "API Revamp")

	status, body := env.do(t, http.MethodPost, "/assign", map[string]string{"userId": "u1"})
	require.Equal(t, http.StatusCreated, status)
	assert.Contains(t, body["agent_response"], "goals")
	assert.Zero(t, mock.CallCount())
}

func TestAssign_Errors(t *testing.T) {
	tests := []struct {
		name       string
		client     llm.Client
		project    bool
		body       any
		wantStatus int
		wantDetail string
	}{
		{
			name:       "missing user",
			client:     llm.NewMockClient(planJSON),
			body:       map[string]string{"userId": ""},
			wantStatus: http.StatusBadRequest,
			wantDetail: "userId is required",
		},
		{
			name:       "malformed body",
			client:     llm.NewMockClient(planJSON),
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
			wantDetail: "Invalid request body",
		},
		{
			name:       "no active projects",
			client:     llm.NewMockClient(planJSON),
			body:       map[string]string{"userId": "u1"},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "No active projects are available for assignment",
		},
		{
			name:       "unusable plan",
			client:     llm.NewMockClient("I cannot help with that"),
			project:    true,
			body:       map[string]string{"userId": "u1"},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "The assistant returned an unusable plan, please try again",
		},
		{
			name:       "reasoning service down",
			client:     llm.NewMockClient("").WithError(errors.New("connection refused")),
			project:    true,
			body:       map[string]string{"userId": "u1"},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "The reasoning service is unavailable, please try again later",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, tt.client)
			if tt.project {
				env.addProject(t, "p1", "API Revamp")
			}
			_, err := env.repos.Goals.Upsert(context.Background(), "u1", "learn go")
			require.NoError(t, err)

			status, body := env.do(t, http.MethodPost, "/assign", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDetail, body["detail"])
		})
	}
}

func TestAssign_ConcurrentRunRejected(t *testing.T) {
	env := newEnv(t, llm.NewMockClient(planJSON))
	env.addProject(t, "p1", "API Revamp")

	release, err := env.locker.Acquire(context.Background(), "assign:u1", time.Minute)
	require.NoError(t, err)

	status, body := env.do(t, http.MethodPost, "/assign", map[string]string{"userId": "u1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, body["detail"])

	require.NoError(t, release(context.Background()))
	status, _ = env.do(t, http.MethodPost, "/assign", map[string]string{"userId": "u1"})
	assert.Equal(t, http.StatusCreated, status)
}

func TestManageGoals(t *testing.T) {
	env := newEnv(t, llm.NewMockClient(""))

	status, body := env.do(t, http.MethodPost, "/goals/manage-goals", map[string]string{"userId": "u1", "goals": "  learn go  "})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Goals created successfully", body["message"])
	goals := body["goals"].(map[string]any)
	assert.Equal(t, "learn go", goals["goals"])
	assert.Equal(t, "u1", goals["userId"])

	status, body = env.do(t, http.MethodPost, "/goals/manage-goals", map[string]string{"userId": "u1", "goals": "learn rust"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Goals updated successfully", body["message"])

	long := make([]byte, assign.MaxGoalsLength+1)
	for i := range long {
		long[i] = 'a'
	}
	tests := []struct {
		name   string
		goals  string
		detail string
	}{
		{"empty", "", "Goals cannot be empty"},
		{"whitespace", "   ", "Goals cannot be empty"},
		{"too long", string(long), "Goals cannot exceed 1024 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/goals/manage-goals", map[string]string{"userId": "u1", "goals": tt.goals})
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.detail, body["detail"])
		})
	}

	rec, found, err := env.repos.Goals.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, assign.GoalText("learn rust"), rec.Goals)
}

func TestGetGoals(t *testing.T) {
	env := newEnv(t, llm.NewMockClient(""))

	status, body := env.do(t, http.MethodPost, "/goals/get-goals", map[string]string{"userId": "nobody"})
	require.Equal(t, http.StatusOK, status)
	goals := body["goals"].(map[string]any)
	assert.Equal(t, true, goals["isDefault"])
	assert.Equal(t, "", goals["goals"])

	status, _ = env.do(t, http.MethodGet, "/goals/nobody", nil)
	assert.Equal(t, http.StatusNotFound, status)

	_, err := env.repos.Goals.Upsert(context.Background(), "u1", "learn go")
	require.NoError(t, err)

	status, body = env.do(t, http.MethodPost, "/goals/get-goals", map[string]string{"userId": "u1"})
	require.Equal(t, http.StatusOK, status)
	goals = body["goals"].(map[string]any)
	assert.Nil(t, goals["isDefault"])
	assert.Equal(t, "learn go", goals["goals"])

	status, body = env.do(t, http.MethodGet, "/goals/u1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "learn go", body["goals"])
}

func TestGoalList(t *testing.T) {
	env := newEnv(t, llm.NewMockClient(""))

	status, raw := env.doRaw(t, http.MethodGet, "/goals", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, body := env.do(t, http.MethodPost, "/goals", map[string]any{"userId": "u1", "goals": []string{"learn go", " ", "ship it"}})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "learn go\nship it", body["goals"])

	status, body = env.do(t, http.MethodPost, "/goals", map[string]any{"userId": "u2", "goals": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Goals cannot be empty", body["detail"])

	_, err := env.repos.Goals.Upsert(context.Background(), "u3", "other")
	require.NoError(t, err)

	var recs []assign.GoalRecord
	status, raw = env.doRaw(t, http.MethodGet, "/goals?userId=u1", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "u1", recs[0].UserID)

	status, raw = env.doRaw(t, http.MethodGet, "/goals", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &recs))
	assert.Len(t, recs, 2)
}

func TestChat(t *testing.T) {
	mock := llm.NewMockClient("Start with the HTTP handler tests.")
	env := newEnv(t, mock)
	_, err := env.repos.Goals.Upsert(context.Background(), "u1", "learn go")
	require.NoError(t, err)

	status, body := env.do(t, http.MethodPost, "/chat/agent", map[string]string{"userId": "u1", "message": "where do I start?"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Start with the HTTP handler tests.", body["agent_response"])
	require.NotEmpty(t, mock.LastCall().Messages)
	assert.Contains(t, mock.LastCall().Messages[0].Content, "learn go")

	status, raw := env.doRaw(t, http.MethodGet, "/chat/history/u1", nil)
	require.Equal(t, http.StatusOK, status)
	var history []assign.ChatMessage
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 2)
	assert.Equal(t, assign.UserTypeUser, history[0].UserType)
	assert.Equal(t, "where do I start?", history[0].Message)
	assert.Equal(t, assign.UserTypeAgent, history[1].UserType)

	status, raw = env.doRaw(t, http.MethodGet, "/chat/history/nobody", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, body = env.do(t, http.MethodPost, "/chat/agent", map[string]string{"userId": "u1", "message": " "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Message cannot be empty", body["detail"])
}

func TestUnknownRoute(t *testing.T) {
	env := newEnv(t, llm.NewMockClient(""))
	status, body := env.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not found", body["detail"])

	status, _ = env.do(t, http.MethodDelete, "/assign", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}
