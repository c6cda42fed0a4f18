package assign

import (
	"context"
	"log/slog"
	"strings"
	"time"

	fgerrors "github.com/randalmurphal/taskmentor/pkg/flowgraph/errors"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/observability"
)

// Reasoner wraps one reasoning-service call: messages in, text out.
// Failures surface as *ReasoningServiceError.
type Reasoner struct {
	client  llm.Client
	retry   fgerrors.RetryConfig
	metrics observability.MetricsRecorder
	logger  *slog.Logger
	model   string
}

// ReasonerOption configures a Reasoner.
type ReasonerOption func(*Reasoner)

// WithRetry retries transient failures using cfg. The default is one attempt.
func WithRetry(cfg fgerrors.RetryConfig) ReasonerOption {
	return func(r *Reasoner) { r.retry = cfg }
}

// WithReasonerMetrics records call counts, tokens and latency.
func WithReasonerMetrics(m observability.MetricsRecorder) ReasonerOption {
	return func(r *Reasoner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithReasonerLogger sets the logger for call and retry logs.
func WithReasonerLogger(l *slog.Logger) ReasonerOption {
	return func(r *Reasoner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithModel overrides the provider's default model.
func WithModel(model string) ReasonerOption {
	return func(r *Reasoner) { r.model = model }
}

// NewReasoner wraps client.
func NewReasoner(client llm.Client, opts ...ReasonerOption) *Reasoner {
	r := &Reasoner{
		client:  client,
		retry:   fgerrors.NoRetry,
		metrics: observability.NoopMetrics{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate sends messages and returns the generated text.
func (r *Reasoner) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	provider := llm.ProviderName(r.client)
	req := llm.CompletionRequest{Model: r.model, Messages: messages}

	cfg := r.retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.logger.Warn("retrying reasoning call",
			slog.String("provider", provider),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	ctx, span := observability.StartLLMSpan(ctx, provider, r.model)
	result := fgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (*llm.CompletionResponse, error) {
		start := time.Now()
		resp, err := r.client.Complete(ctx, req)
		var tokens int
		if resp != nil {
			tokens = resp.Usage.TotalTokens
		}
		r.metrics.RecordLLMCall(ctx, provider, int64(tokens), time.Since(start), err)
		observability.LogLLMCall(r.logger, provider, r.model, tokens, float64(time.Since(start).Microseconds())/1000, err)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(resp.Content) == "" {
			return nil, llm.NewError("complete", llm.ErrEmptyResponse, false)
		}
		return resp, nil
	})
	observability.EndSpanWithError(span, result.Err)

	if result.Err != nil {
		return "", &ReasoningServiceError{Provider: provider, Attempts: result.Attempts, Err: result.Err}
	}
	return result.Value.Content, nil
}
