package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder
	r.Record(ModelMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, DurationMs: 500})
	r.Record(ModelMetrics{InputTokens: 3, TotalTokens: 3, DurationMs: 250})

	m := r.GetMetrics()
	assert.Equal(t, 13, m.InputTokens)
	assert.Equal(t, 18, m.TotalTokens)
	assert.Equal(t, int64(750), m.DurationMs)
	assert.Equal(t, 2, m.Requests)
	assert.InDelta(t, 24.0, m.TokenPerSecond, 0.01)

	r.ResetMetrics()
	assert.Equal(t, ModelMetrics{}, r.GetMetrics())
}
