package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/taskmentor/internal/assign"
	"github.com/randalmurphal/taskmentor/pkg/docstore"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/config"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/registry"
)

func TestSettingsFrom_Defaults(t *testing.T) {
	s := SettingsFrom(config.New(nil))

	assert.Equal(t, ":8000", s.HTTPAddr)
	assert.Equal(t, "memory", s.Store.Driver)
	assert.Equal(t, "projects", s.Store.Database)
	assert.Equal(t, "gemini", s.LLM.Provider)
	assert.Equal(t, 3, s.LLM.MaxAttempts)
	assert.Equal(t, 2*time.Minute, s.LockTTL)
	assert.Equal(t, "none", s.Telemetry.Exporter)
	assert.Empty(t, s.RedisAddr)
}

func TestSettingsFrom_MongoURIImpliesMongo(t *testing.T) {
	s := SettingsFrom(config.New(nil).Set("store.uri", "mongodb://db:27017"))
	assert.Equal(t, "mongo", s.Store.Driver)

	s = SettingsFrom(config.New(nil).
		Set("store.uri", "mongodb://db:27017").
		Set("store.driver", "sqlite"))
	assert.Equal(t, "sqlite", s.Store.Driver)
}

func TestLoadSettings_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmentor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
log:
  level: debug
  format: json
store:
  driver: sqlite
  path: /tmp/tm.db
llm:
  provider: openai
  max_attempts: 5
lock:
  ttl: 30s
telemetry:
  metrics: true
`), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_NAME", "mentor")
	t.Setenv("HTTP_ADDR", ":9100")

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", s.HTTPAddr, "env overrides file")
	assert.Equal(t, LogSettings{Level: "debug", Format: "json"}, s.Log)
	assert.Equal(t, "sqlite", s.Store.Driver)
	assert.Equal(t, "/tmp/tm.db", s.Store.Path)
	assert.Equal(t, "mentor", s.Store.Database)
	assert.Equal(t, "openai", s.LLM.Provider)
	assert.Equal(t, "sk-test", s.LLM.APIKey())
	assert.Equal(t, 5, s.LLM.MaxAttempts)
	assert.Equal(t, 30*time.Second, s.LockTTL)
	assert.True(t, s.Telemetry.Metrics)
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogSettings{Level: "warn", Format: "json"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(io.Discard, LogSettings{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(io.Discard, LogSettings{Format: "xml"})
	assert.Error(t, err)
}

func TestLLMProviders(t *testing.T) {
	providers := LLMProviders()
	assert.ElementsMatch(t, []string{"anthropic", "gemini", "mock", "openai"}, providers.Keys())

	tests := []struct {
		provider string
		keys     map[string]string
		wantName string
		wantErr  bool
	}{
		{"gemini", map[string]string{"gemini": "g"}, "gemini", false},
		{"gemini", nil, "", true},
		{"openai", map[string]string{"openai": "o"}, "openai", false},
		{"openai", map[string]string{"gemini": "g"}, "", true},
		{"anthropic", map[string]string{"anthropic": "a"}, "anthropic", false},
		{"mock", nil, "mock", false},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			factory, err := providers.Lookup(tt.provider)
			require.NoError(t, err)
			client, err := factory(LLMSettings{Provider: tt.provider, APIKeys: tt.keys})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, llm.ProviderName(client))
		})
	}

	_, err := providers.Lookup("palm")
	var nf *registry.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStoreDrivers(t *testing.T) {
	drivers := StoreDrivers()
	ctx := context.Background()

	factory, err := drivers.Lookup("sqlite")
	require.NoError(t, err)
	st, err := factory(ctx, StoreSettings{Path: filepath.Join(t.TempDir(), "tm.db")})
	require.NoError(t, err)
	assert.NoError(t, st.Close(ctx))

	factory, err = drivers.Lookup("mongo")
	require.NoError(t, err)
	_, err = factory(ctx, StoreSettings{})
	assert.ErrorContains(t, err, "uri")
}

func TestNew_ServesRequests(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemory()
	_, err := mem.InsertOne(ctx, assign.ProjectsCollection, assign.Project{
		ID: "p1", Name: "API Revamp", Status: assign.ProjectActive,
	})
	require.NoError(t, err)

	s := SettingsFrom(config.New(nil).
		Set("llm.provider", "mock").
		Set("llm.mock.response", `{"project_id":"p1","tasks":[{"title":"a"},{"title":"b"},{"title":"c"},{"title":"d"},{"title":"e"}]}`))

	var logs bytes.Buffer
	a, err := New(ctx, s, WithStore(mem), WithLogOutput(&logs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })
	assert.Contains(t, logs.String(), "service assembled")

	srv := httptest.NewServer(a.Handler)
	t.Cleanup(srv.Close)

	post := func(path, body string) int {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, post("/goals/manage-goals", `{"userId":"u1","goals":"ship it"}`))
	assert.Equal(t, http.StatusCreated, post("/assign", `{"userId":"u1"}`))

	tasks, err := assign.NewTaskRepo(mem, nil).AssignedTo(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"unknown provider", config.New(nil).Set("llm.provider", "palm")},
		{"missing api key", config.New(nil).Set("llm.provider", "openai")},
		{"unknown driver", config.New(nil).Set("llm.provider", "mock").Set("store.driver", "cassandra")},
		{"unknown exporter", config.New(nil).Set("llm.provider", "mock").Set("telemetry.exporter", "jaeger")},
		{"bad log level", config.New(nil).Set("llm.provider", "mock").Set("log.level", "loud")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), SettingsFrom(tt.cfg), WithLogOutput(io.Discard))
			assert.Error(t, err)
		})
	}
}

func TestClose_RunsClosersInReverse(t *testing.T) {
	var order []string
	a := &App{}
	for _, name := range []string{"first", "second"} {
		a.closers = append(a.closers, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, a.Close(context.Background()), "second close is a no-op")
}
