// Package hugot provides an in-process sentence embedder backed by an ONNX
// sentence-transformer model. It needs no network access once the model is
// on disk and serves as the embedding side of the oracle for offline runs.
package hugot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// DefaultModel produces 384-dimensional embeddings.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// Params configures NewEmbedder.
type Params struct {
	ModelName string
	ModelDir  string
}

// Embedder runs a feature-extraction pipeline. The pipeline is not safe
// for concurrent use so calls are serialized.
type Embedder struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder downloads the model if it is not present and starts a pure
// Go inference session.
func NewEmbedder(params Params) (*Embedder, error) {
	if params.ModelName == "" {
		params.ModelName = DefaultModel
	}
	if params.ModelDir == "" {
		params.ModelDir = "./models"
	}

	modelPath, err := prepareModel(params.ModelName, params.ModelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	p, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "karaka-embedder",
	})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	logger.Info("[Hugot] Embedding pipeline ready", "model", params.ModelName, "path", modelPath)
	return &Embedder{session: session, pipeline: p}, nil
}

func prepareModel(name, dir string) (string, error) {
	modelPath := filepath.Join(dir, strings.ReplaceAll(name, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	logger.Info("[Hugot] Downloading model", "model", name, "dir", dir)
	path, err := hugot.DownloadModel(name, dir, opts)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return path, nil
}

// GenerateEmbedding embeds input. ctx is checked before inference only.
func (e *Embedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pipeline == nil {
		return nil, fmt.Errorf("embedder is closed")
	}

	result, err := e.pipeline.RunPipeline([]string{string(input)})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	vec := ai.FirstVector(result.Embeddings...)
	if vec == nil {
		return nil, fmt.Errorf("no embedding generated")
	}
	return vec, nil
}

// Close releases the inference session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	e.pipeline = nil
	return err
}
