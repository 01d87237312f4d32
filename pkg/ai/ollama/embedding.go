package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"

	"github.com/ollama/ollama/api"
)

const defaultDimensions = 768

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model. Blank input yields a zero vector.
func (c *GraphOllamaClient) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	if strings.TrimSpace(string(input)) == "" {
		return make([]float32, c.embeddingDim), nil
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	}

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, req)
	if err != nil {
		return nil, classify(err)
	}

	c.Record(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	vec := ai.FirstVector(res.Embeddings...)
	if vec == nil {
		return nil, fmt.Errorf("ollama returned no embedding for model %s", c.embeddingModel)
	}
	return ai.FitDimension(vec, c.embeddingDim), nil
}
