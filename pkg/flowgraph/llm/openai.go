package llm

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when neither the client nor the request names one.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI implements Client against an OpenAI-compatible chat completions API.
type OpenAI struct {
	client      openai.Client
	provider    string
	model       string
	maxTokens   int
	temperature float64
}

// OpenAIOption configures OpenAI.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	apiKey      string
	baseURL     string
	provider    string
	model       string
	maxTokens   int
	temperature float64
	extra       []option.RequestOption
}

// WithOpenAIAPIKey sets the API key. Without it the SDK reads OPENAI_API_KEY.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(c *openAIConfig) { c.apiKey = key }
}

// WithBaseURL points the client at a compatible endpoint, such as
// https://generativelanguage.googleapis.com/v1beta/openai/ for Gemini.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithProviderName overrides the name reported in logs and metrics.
func WithProviderName(name string) OpenAIOption {
	return func(c *openAIConfig) { c.provider = name }
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithOpenAIMaxTokens sets the default completion token limit.
func WithOpenAIMaxTokens(n int) OpenAIOption {
	return func(c *openAIConfig) { c.maxTokens = n }
}

// WithOpenAITemperature sets the default sampling temperature.
func WithOpenAITemperature(t float64) OpenAIOption {
	return func(c *openAIConfig) { c.temperature = t }
}

// WithOpenAIRequestOptions passes raw SDK options through, e.g. an HTTP client.
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(c *openAIConfig) { c.extra = append(c.extra, opts...) }
}

// NewOpenAI creates an OpenAI-compatible client.
func NewOpenAI(opts ...OpenAIOption) *OpenAI {
	cfg := openAIConfig{
		provider:    "openai",
		model:       DefaultOpenAIModel,
		maxTokens:   2048,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var reqOpts []option.RequestOption
	if cfg.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	// Retries belong to the caller's retry policy.
	reqOpts = append(reqOpts, option.WithMaxRetries(0))
	reqOpts = append(reqOpts, cfg.extra...)

	return &OpenAI{
		client:      openai.NewClient(reqOpts...),
		provider:    cfg.provider,
		model:       cfg.model,
		maxTokens:   cfg.maxTokens,
		temperature: cfg.temperature,
	}
}

// Provider implements Named.
func (c *OpenAI) Provider() string { return c.provider }

// Complete implements Client.
func (c *OpenAI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Messages:            c.buildMessages(req),
		Model:               c.modelFor(req),
		Temperature:         openai.Float(c.temperatureFor(req)),
		MaxCompletionTokens: openai.Int(int64(c.maxTokensFor(req))),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.wrapError(ctx, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, NewError("complete", ErrEmptyResponse, false)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Duration:     time.Since(start),
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *OpenAI) buildMessages(req CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

func (c *OpenAI) modelFor(req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

func (c *OpenAI) maxTokensFor(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return c.maxTokens
}

func (c *OpenAI) temperatureFor(req CompletionRequest) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return c.temperature
}

func (c *OpenAI) wrapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return NewError("complete", ctx.Err(), false)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return statusError("complete", apiErr.StatusCode, apiErr.Message, "chat.completions")
	}
	// Transport failures (DNS, connection reset) are worth another try.
	return NewError("complete", err, true)
}
