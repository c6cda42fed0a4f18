package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records flowgraph metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration and error status.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordGraphRun records a graph run completion.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)

	// RecordBranch records the label a router chose after a branch node.
	RecordBranch(ctx context.Context, fromNode, label string)

	// RecordLLMCall records a reasoning-service call and its token usage.
	RecordLLMCall(ctx context.Context, provider string, tokens int64, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions  metric.Int64Counter
	nodeLatency     metric.Float64Histogram
	nodeErrors      metric.Int64Counter
	graphRuns       metric.Int64Counter
	graphLatency    metric.Float64Histogram
	branchDecisions metric.Int64Counter
	llmCalls        metric.Int64Counter
	llmTokens       metric.Int64Counter
	llmLatency      metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowgraph")

	nodeExecutions, err := meter.Int64Counter("flowgraph.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("flowgraph.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("flowgraph.node.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	graphRuns, err := meter.Int64Counter("flowgraph.graph.runs",
		metric.WithDescription("Number of graph runs"),
	)
	if err != nil {
		return nil, err
	}

	graphLatency, err := meter.Float64Histogram("flowgraph.graph.latency_ms",
		metric.WithDescription("Graph run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	branchDecisions, err := meter.Int64Counter("flowgraph.branch.decisions",
		metric.WithDescription("Number of routing decisions by label"),
	)
	if err != nil {
		return nil, err
	}

	llmCalls, err := meter.Int64Counter("flowgraph.llm.calls",
		metric.WithDescription("Number of reasoning-service calls"),
	)
	if err != nil {
		return nil, err
	}

	llmTokens, err := meter.Int64Counter("flowgraph.llm.tokens",
		metric.WithDescription("Tokens consumed by reasoning-service calls"),
	)
	if err != nil {
		return nil, err
	}

	llmLatency, err := meter.Float64Histogram("flowgraph.llm.latency_ms",
		metric.WithDescription("Reasoning-service call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		nodeExecutions:  nodeExecutions,
		nodeLatency:     nodeLatency,
		nodeErrors:      nodeErrors,
		graphRuns:       graphRuns,
		graphLatency:    graphLatency,
		branchDecisions: branchDecisions,
		llmCalls:        llmCalls,
		llmTokens:       llmTokens,
		llmLatency:      llmLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordNodeExecution records a node execution.
func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("node_id", nodeID),
	}

	m.nodeExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.nodeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordGraphRun records a graph run.
func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.graphRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordBranch records a routing decision.
func (m *otelMetrics) RecordBranch(ctx context.Context, fromNode, label string) {
	m.branchDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", fromNode),
		attribute.String("route", label),
	))
}

// RecordLLMCall records a reasoning-service call.
func (m *otelMetrics) RecordLLMCall(ctx context.Context, provider string, tokens int64, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	}
	m.llmCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if tokens > 0 {
		m.llmTokens.Add(ctx, tokens, metric.WithAttributes(attribute.String("provider", provider)))
	}
}
