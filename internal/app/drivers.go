package app

import (
	"context"
	"fmt"

	"github.com/randalmurphal/taskmentor/pkg/docstore"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/registry"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultGeminiModel is used when no model is configured for gemini.
const DefaultGeminiModel = "gemini-2.0-flash"

// StoreFactory opens a document store.
type StoreFactory func(ctx context.Context, s StoreSettings) (docstore.Store, error)

// ProviderFactory builds a reasoning client.
type ProviderFactory func(s LLMSettings) (llm.Client, error)

// StoreDrivers returns the built-in store drivers.
func StoreDrivers() *registry.Registry[string, StoreFactory] {
	r := registry.New[string, StoreFactory]("store driver")
	r.RegisterMany(map[string]StoreFactory{
		"memory": func(context.Context, StoreSettings) (docstore.Store, error) {
			return docstore.NewMemory(), nil
		},
		"sqlite": func(_ context.Context, s StoreSettings) (docstore.Store, error) {
			st, err := docstore.NewSQLite(s.Path)
			if err != nil {
				return nil, err
			}
			return st, nil
		},
		"mongo": func(ctx context.Context, s StoreSettings) (docstore.Store, error) {
			if s.URI == "" {
				return nil, fmt.Errorf("mongo store requires a uri (MONGODB_URL)")
			}
			st, err := docstore.NewMongo(ctx, s.URI, s.Database)
			if err != nil {
				return nil, err
			}
			return st, nil
		},
	})
	return r
}

// LLMProviders returns the built-in reasoning providers.
func LLMProviders() *registry.Registry[string, ProviderFactory] {
	r := registry.New[string, ProviderFactory]("llm provider")
	r.RegisterMany(map[string]ProviderFactory{
		"gemini": func(s LLMSettings) (llm.Client, error) {
			if err := requireKey(s, "GOOGLE_API_KEY"); err != nil {
				return nil, err
			}
			base := s.BaseURL
			if base == "" {
				base = GeminiBaseURL
			}
			model := s.Model
			if model == "" {
				model = DefaultGeminiModel
			}
			return llm.NewOpenAI(
				llm.WithProviderName("gemini"),
				llm.WithOpenAIAPIKey(s.APIKey()),
				llm.WithBaseURL(base),
				llm.WithOpenAIModel(model),
			), nil
		},
		"openai": func(s LLMSettings) (llm.Client, error) {
			if err := requireKey(s, "OPENAI_API_KEY"); err != nil {
				return nil, err
			}
			opts := []llm.OpenAIOption{llm.WithOpenAIAPIKey(s.APIKey())}
			if s.BaseURL != "" {
				opts = append(opts, llm.WithBaseURL(s.BaseURL))
			}
			if s.Model != "" {
				opts = append(opts, llm.WithOpenAIModel(s.Model))
			}
			return llm.NewOpenAI(opts...), nil
		},
		"anthropic": func(s LLMSettings) (llm.Client, error) {
			if err := requireKey(s, "ANTHROPIC_API_KEY"); err != nil {
				return nil, err
			}
			opts := []llm.AnthropicOption{llm.WithAnthropicAPIKey(s.APIKey())}
			if s.BaseURL != "" {
				opts = append(opts, llm.WithAnthropicBaseURL(s.BaseURL))
			}
			if s.Model != "" {
				opts = append(opts, llm.WithAnthropicModel(s.Model))
			}
			return llm.NewAnthropic(opts...), nil
		},
		"mock": func(s LLMSettings) (llm.Client, error) {
			return llm.NewMockClient(s.MockResponse), nil
		},
	})
	return r
}

func requireKey(s LLMSettings, env string) error {
	if s.APIKey() == "" {
		return fmt.Errorf("llm provider %q requires an api key (%s)", s.Provider, env)
	}
	return nil
}
