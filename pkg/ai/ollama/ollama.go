package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements ai.GraphAIClient against a local or remote
// Ollama server.
type GraphOllamaClient struct {
	embeddingModel string
	chatModel      string
	embeddingDim   int
	timeoutMin     int

	reqLock *semaphore.Weighted

	ai.MetricsRecorder

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	TimeoutMin            int
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based client. An empty BaseURL
// connects to the default local server.
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{headers: headers, rt: http.DefaultTransport},
	}

	var cli *api.Client
	if params.BaseURL != "" {
		u, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
		cli = api.NewClient(u, httpClient)
	} else {
		var err error
		cli, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 2
	}
	if params.TimeoutMin <= 0 {
		params.TimeoutMin = 10
	}
	if params.EmbeddingDim <= 0 {
		params.EmbeddingDim = defaultDimensions
	}

	return &GraphOllamaClient{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,
		embeddingDim:   params.EmbeddingDim,
		timeoutMin:     params.TimeoutMin,

		reqLock: semaphore.NewWeighted(params.MaxConcurrentRequests),

		Client: cli,
	}, nil
}

// Health pings the server and checks that both models are pulled.
func (c *GraphOllamaClient) Health(ctx context.Context) error {
	if err := c.Client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama health: %w", err)
	}
	for _, m := range []string{c.chatModel, c.embeddingModel} {
		if m == "" {
			continue
		}
		if _, err := c.Client.Show(ctx, &api.ShowRequest{Model: m}); err != nil {
			return fmt.Errorf("ollama health: model %s: %w", m, classify(err))
		}
	}
	return nil
}

// classify marks rate-limit and overload responses as throttled.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se api.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return ai.MarkThrottled(err)
		}
	}
	return err
}
