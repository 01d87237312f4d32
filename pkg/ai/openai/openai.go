package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// GraphOpenAIClient talks to any OpenAI compatible endpoint. Chat and
// embedding requests may go to different hosts.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	embeddingModel string
	chatModel      string
	embeddingDim   int
	timeoutMin     int

	chatURL string

	reqLock       *semaphore.Weighted
	embeddingLock *semaphore.Weighted

	ai.MetricsRecorder

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration for NewGraphOpenAIClient.
//
// ChatURL and EmbeddingURL may be empty to use api.openai.com. An empty
// EmbeddingKey reuses the chat key.
type NewGraphOpenAIClientParams struct {
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
	TimeoutMin            int
}

// NewGraphOpenAIClient creates a client from params.
//
// Example:
//
//	client, err := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ChatModel:      "gpt-4o-mini",
//		EmbeddingModel: "text-embedding-3-small",
//		EmbeddingDim:   1536,
//		ChatKey:        os.Getenv("AI_CHAT_KEY"),
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) (*GraphOpenAIClient, error) {
	if params.ChatKey == "" {
		return nil, errors.New("openai: chat key is required")
	}
	if params.EmbeddingKey == "" {
		params.EmbeddingKey = params.ChatKey
	}
	if params.EmbeddingURL == "" {
		params.EmbeddingURL = params.ChatURL
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 4
	}
	if params.TimeoutMin <= 0 {
		params.TimeoutMin = 5
	}
	if params.EmbeddingDim <= 0 {
		params.EmbeddingDim = defaultDimensions
	}

	return &GraphOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,
		embeddingDim:   params.EmbeddingDim,
		timeoutMin:     params.TimeoutMin,

		chatURL: params.ChatURL,

		reqLock:       semaphore.NewWeighted(params.MaxConcurrentRequests),
		embeddingLock: semaphore.NewWeighted(params.MaxConcurrentRequests),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}, nil
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are handled by ai.Retrying
		option.WithMaxRetries(0),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// Health checks that the chat model is known to the endpoint.
func (c *GraphOpenAIClient) Health(ctx context.Context) error {
	if _, err := c.ChatClient.Models.Get(ctx, c.chatModel); err != nil {
		return fmt.Errorf("openai health: %w", classify(err))
	}
	return nil
}

// classify marks rate-limit and overload responses as throttled.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return ai.MarkThrottled(err)
		}
	}
	return err
}
