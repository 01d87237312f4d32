package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyClient struct {
	failures int
	err      error
	calls    int
}

func (f *flakyClient) GenerateCompletion(context.Context, string, ...GenerateOption) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

func (f *flakyClient) GenerateCompletionWithFormat(ctx context.Context, _, _, p string, out any, o ...GenerateOption) error {
	_, err := f.GenerateCompletion(ctx, p, o...)
	return err
}

func (f *flakyClient) GenerateEmbedding(context.Context, []byte) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []float32{1}, nil
}

func (f *flakyClient) Health(context.Context) error { return nil }
func (f *flakyClient) ResetMetrics()                {}
func (f *flakyClient) GetMetrics() ModelMetrics     { return ModelMetrics{} }

func fastPolicy() util.BackoffPolicy {
	return util.BackoffPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
		Jitter:          0.5,
	}
}

func TestIsThrottled(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrThrottled, true},
		{MarkThrottled(errors.New("boom")), true},
		{errors.New("ThrottlingException: Rate exceeded"), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("invalid api key"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsThrottled(tt.err), "%v", tt.err)
	}
}

func TestRetrying_RetriesThrottled(t *testing.T) {
	inner := &flakyClient{failures: 2, err: MarkThrottled(errors.New("slow down"))}
	r := NewRetrying(inner, fastPolicy())

	out, err := r.GenerateCompletion(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inner.calls)
}

func TestRetrying_GivesUpAfterCap(t *testing.T) {
	inner := &flakyClient{failures: 10, err: MarkThrottled(errors.New("slow down"))}
	r := NewRetrying(inner, fastPolicy())

	_, err := r.GenerateEmbedding(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, 3, inner.calls)
}

func TestRetrying_PermanentErrorNotRetried(t *testing.T) {
	inner := &flakyClient{failures: 10, err: errors.New("bad request")}
	r := NewRetrying(inner, fastPolicy())

	var out struct{}
	err := r.GenerateCompletionWithFormat(context.Background(), "n", "d", "p", &out)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
