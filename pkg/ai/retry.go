package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
)

var throttleMarkers = []string{
	"throttlingexception",
	"too many requests",
	"rate limit",
	"rate_limit",
	"status code 429",
	"429 ",
	"server is busy",
}

// IsThrottled reports whether err is a rate-limit rejection. Adapters wrap
// provider errors with ErrThrottled; message matching covers the rest.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrThrottled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range throttleMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// MarkThrottled wraps err with ErrThrottled unless it already is.
func MarkThrottled(err error) error {
	if err == nil || errors.Is(err, ErrThrottled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrThrottled, err)
}

// Retrying decorates a GraphAIClient so that throttled calls are retried
// with exponential backoff and jitter. Other errors pass through unchanged.
type Retrying struct {
	GraphAIClient
	policy util.BackoffPolicy
}

// NewRetrying wraps client with policy.
func NewRetrying(client GraphAIClient, policy util.BackoffPolicy) *Retrying {
	return &Retrying{GraphAIClient: client, policy: policy}
}

func (r *Retrying) onRetry(op string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		logger.Warn("[AI] Throttled, backing off", "op", op, "wait", wait, "err", err)
	}
}

func (r *Retrying) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...GenerateOption,
) (string, error) {
	return util.RetryWithBackoff(ctx, r.policy, IsThrottled, func(ctx context.Context) (string, error) {
		return r.GraphAIClient.GenerateCompletion(ctx, prompt, opts...)
	}, r.onRetry("completion"))
}

func (r *Retrying) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...GenerateOption,
) error {
	_, err := util.RetryWithBackoff(ctx, r.policy, IsThrottled, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.GraphAIClient.GenerateCompletionWithFormat(ctx, name, description, prompt, out, opts...)
	}, r.onRetry("structured"))
	return err
}

func (r *Retrying) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return util.RetryWithBackoff(ctx, r.policy, IsThrottled, func(ctx context.Context) ([]float32, error) {
		return r.GraphAIClient.GenerateEmbedding(ctx, input)
	}, r.onRetry("embedding"))
}
