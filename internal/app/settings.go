package app

import (
	"time"

	"github.com/randalmurphal/taskmentor/pkg/flowgraph/config"
)

// Settings is the resolved process configuration.
type Settings struct {
	HTTPAddr  string
	Log       LogSettings
	Store     StoreSettings
	LLM       LLMSettings
	RedisAddr string
	LockTTL   time.Duration
	Telemetry TelemetrySettings
}

// LogSettings selects the slog handler.
type LogSettings struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// StoreSettings selects and configures the document store driver.
type StoreSettings struct {
	Driver   string // memory, sqlite, mongo
	URI      string
	Database string
	Path     string
}

// LLMSettings selects the reasoning provider.
type LLMSettings struct {
	Provider     string // gemini, openai, anthropic, mock
	Model        string
	BaseURL      string
	APIKeys      map[string]string // keyed by provider
	MaxAttempts  int
	MockResponse string
}

// APIKey returns the key configured for the selected provider.
func (s LLMSettings) APIKey() string {
	return s.APIKeys[s.Provider]
}

// TelemetrySettings controls OpenTelemetry export.
type TelemetrySettings struct {
	Exporter    string // none or stdout
	ServiceName string
	Metrics     bool
	Tracing     bool
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"http.addr":             "HTTP_ADDR",
	"store.uri":             "MONGODB_URL",
	"store.database":        "DATABASE_NAME",
	"llm.openai.api_key":    "OPENAI_API_KEY",
	"llm.anthropic.api_key": "ANTHROPIC_API_KEY",
	"llm.gemini.api_key":    "GOOGLE_API_KEY",
	"redis.addr":            "REDIS_ADDR",
	"llm.provider":          "LLM_PROVIDER",
	"store.driver":          "STORE_DRIVER",
	"telemetry.exporter":    "TELEMETRY_EXPORTER",
	"log.level":             "LOG_LEVEL",
}

// LoadSettings reads path (YAML or JSON) when set, then applies
// environment overrides.
func LoadSettings(path string) (Settings, error) {
	cfg := config.New(nil)
	if path != "" {
		var err error
		if cfg, err = config.FromFile(path); err != nil {
			return Settings{}, err
		}
	}
	return SettingsFrom(cfg.ApplyEnv(envBindings)), nil
}

// SettingsFrom resolves Settings from cfg, filling defaults.
func SettingsFrom(cfg config.Config) Settings {
	store := cfg.Section("store")
	driver := store.String("driver", "")
	if driver == "" {
		driver = "memory"
		if store.String("uri", "") != "" {
			driver = "mongo"
		}
	}

	llmCfg := cfg.Section("llm")
	keys := make(map[string]string)
	for _, p := range []string{"gemini", "openai", "anthropic"} {
		if k := llmCfg.String(p+".api_key", ""); k != "" {
			keys[p] = k
		}
	}

	return Settings{
		HTTPAddr: cfg.String("http.addr", ":8000"),
		Log: LogSettings{
			Level:  cfg.String("log.level", "info"),
			Format: cfg.String("log.format", "text"),
		},
		Store: StoreSettings{
			Driver:   driver,
			URI:      store.String("uri", ""),
			Database: store.String("database", "projects"),
			Path:     store.String("path", "taskmentor.db"),
		},
		LLM: LLMSettings{
			Provider:     llmCfg.String("provider", "gemini"),
			Model:        llmCfg.String("model", ""),
			BaseURL:      llmCfg.String("base_url", ""),
			APIKeys:      keys,
			MaxAttempts:  llmCfg.Int("max_attempts", 3),
			MockResponse: llmCfg.String("mock.response", ""),
		},
		RedisAddr: cfg.String("redis.addr", ""),
		LockTTL:   cfg.Duration("lock.ttl", 2*time.Minute),
		Telemetry: TelemetrySettings{
			Exporter:    cfg.String("telemetry.exporter", "none"),
			ServiceName: cfg.String("telemetry.service_name", "taskmentor"),
			Metrics:     cfg.Bool("telemetry.metrics", false),
			Tracing:     cfg.Bool("telemetry.tracing", false),
		},
	}
}
