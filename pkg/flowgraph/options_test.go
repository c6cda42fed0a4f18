package flowgraph

import (
	"testing"

	"github.com/randalmurphal/taskmentor/pkg/flowgraph/observability"
	"github.com/stretchr/testify/assert"
)

func applyOptions(opts ...RunOption) runConfig {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()
	assert.Equal(t, 1000, cfg.maxIterations)
	assert.Equal(t, "flowgraph", cfg.graphName)
	assert.Empty(t, cfg.runID)
	assert.Nil(t, cfg.logger)
	assert.False(t, cfg.tracingEnabled)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
	assert.IsType(t, observability.NoopSpanManager{}, cfg.spans)
}

func TestWithMaxIterations(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{"minimum", 1, 1},
		{"typical", 100, 100},
		{"large", 50000, 50000},
		{"zero keeps default", 0, 1000},
		{"negative keeps default", -5, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				cfg := applyOptions(WithMaxIterations(tt.value))
				assert.Equal(t, tt.want, cfg.maxIterations)
			})
		})
	}
}

func TestWithRunID(t *testing.T) {
	cfg := applyOptions(WithRunID("run-42"))
	assert.Equal(t, "run-42", cfg.runID)
}

func TestWithGraphName(t *testing.T) {
	assert.Equal(t, "assign", applyOptions(WithGraphName("assign")).graphName)
	assert.Equal(t, "flowgraph", applyOptions(WithGraphName("")).graphName, "empty name is ignored")
}

func TestWithMetrics(t *testing.T) {
	cfg := applyOptions(WithMetrics(true))
	assert.NotNil(t, cfg.metrics)

	cfg = applyOptions(WithMetrics(true), WithMetrics(false))
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
}

func TestWithTracing(t *testing.T) {
	cfg := applyOptions(WithTracing(true))
	assert.True(t, cfg.tracingEnabled)
	assert.NotEqual(t, observability.NoopSpanManager{}, cfg.spans)

	cfg = applyOptions(WithTracing(true), WithTracing(false))
	assert.False(t, cfg.tracingEnabled)
	assert.IsType(t, observability.NoopSpanManager{}, cfg.spans)
}
