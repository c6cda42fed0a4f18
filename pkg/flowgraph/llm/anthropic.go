package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when neither the client nor the request names one.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// Anthropic implements Client against the Anthropic Messages API.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// AnthropicOption configures Anthropic.
type AnthropicOption func(*Anthropic, *[]option.RequestOption)

// WithAnthropicAPIKey sets the API key. Without it the SDK reads ANTHROPIC_API_KEY.
func WithAnthropicAPIKey(key string) AnthropicOption {
	return func(_ *Anthropic, opts *[]option.RequestOption) {
		if key != "" {
			*opts = append(*opts, option.WithAPIKey(key))
		}
	}
}

// WithAnthropicBaseURL overrides the API endpoint.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(_ *Anthropic, opts *[]option.RequestOption) {
		if url != "" {
			*opts = append(*opts, option.WithBaseURL(url))
		}
	}
}

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(a *Anthropic, _ *[]option.RequestOption) { a.model = model }
}

// WithAnthropicMaxTokens sets the default output token limit.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(a *Anthropic, _ *[]option.RequestOption) { a.maxTokens = n }
}

// WithAnthropicTemperature sets the default sampling temperature.
func WithAnthropicTemperature(t float64) AnthropicOption {
	return func(a *Anthropic, _ *[]option.RequestOption) { a.temperature = t }
}

// NewAnthropic creates an Anthropic Messages API client.
func NewAnthropic(opts ...AnthropicOption) *Anthropic {
	a := &Anthropic{
		model:       DefaultAnthropicModel,
		maxTokens:   2048,
		temperature: 0.7,
	}
	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	for _, opt := range opts {
		opt(a, &reqOpts)
	}
	a.client = anthropic.NewClient(reqOpts...)
	return a
}

// Provider implements Named.
func (a *Anthropic) Provider() string { return "anthropic" }

// Complete implements Client.
func (a *Anthropic) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	system, conversation := splitSystem(req)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.modelFor(req)),
		Messages:    buildAnthropicMessages(conversation),
		MaxTokens:   int64(a.maxTokensFor(req)),
		Temperature: anthropic.Float(a.temperatureFor(req)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.wrapError(ctx, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return nil, NewError("complete", ErrEmptyResponse, false)
	}

	in := int(resp.Usage.InputTokens)
	out := int(resp.Usage.OutputTokens)
	return &CompletionResponse{
		Content:      text.String(),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Duration:     time.Since(start),
		Usage: TokenUsage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}, nil
}

// buildAnthropicMessages converts turns, merging consecutive same-role
// turns since the API requires alternation.
func buildAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var lastRole Role
	var pending []string

	flush := func() {
		if len(pending) == 0 {
			return
		}
		block := anthropic.NewTextBlock(strings.Join(pending, "\n\n"))
		if lastRole == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
		pending = nil
	}

	for _, m := range msgs {
		role := m.Role
		if role != RoleAssistant {
			role = RoleUser
		}
		if role != lastRole {
			flush()
			lastRole = role
		}
		pending = append(pending, m.Content)
	}
	flush()
	return out
}

func (a *Anthropic) modelFor(req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return a.model
}

func (a *Anthropic) maxTokensFor(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return a.maxTokens
}

func (a *Anthropic) temperatureFor(req CompletionRequest) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return a.temperature
}

func (a *Anthropic) wrapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return NewError("complete", ctx.Err(), false)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusError("complete", apiErr.StatusCode, "", "messages")
	}
	return NewError("complete", err, true)
}
