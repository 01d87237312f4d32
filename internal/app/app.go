// Package app assembles the ingestion and query pipeline from configuration.
// Both the worker and the CLI build their services here.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/config"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/storage"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	hai "github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai/hugot"
	oai "github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai/ollama"
	gai "github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai/openai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/extract"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/graph"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/leaselock"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader"
	fileloader "github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader/io"
	s3loader "github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader/s3"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader/web"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger/console"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/query"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/resolve"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store/memory"
	pgxstore "github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store/pgx"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InitLogger installs the console logger described by cfg.
func InitLogger(cfg *config.Config, prefix string) {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
		Prefix: prefix,
	}))
}

// NewAIClient builds the completion oracle for cfg.Adapter, wrapped so that
// throttled calls are retried up to cfg.MaxRetries times.
func NewAIClient(cfg config.AIConfig) (ai.GraphAIClient, error) {
	var client ai.GraphAIClient
	switch cfg.Adapter {
	case "ollama":
		c, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:             cfg.ChatModel,
			EmbeddingModel:        cfg.EmbedModel,
			EmbeddingDim:          cfg.EmbedDim,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			MaxConcurrentRequests: int64(cfg.MaxConcurrent),
			TimeoutMin:            cfg.TimeoutMin,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
		client = c
	default:
		c, err := gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:             cfg.ChatModel,
			EmbeddingModel:        cfg.EmbedModel,
			EmbeddingDim:          cfg.EmbedDim,
			ChatURL:               cfg.ChatURL,
			ChatKey:               cfg.ChatKey,
			EmbeddingURL:          cfg.EmbedURL,
			EmbeddingKey:          cfg.EmbedKey,
			MaxConcurrentRequests: int64(cfg.MaxConcurrent),
			TimeoutMin:            cfg.TimeoutMin,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create openai client: %w", err)
		}
		client = c
	}

	policy := util.DefaultBackoffPolicy()
	policy.MaxAttempts = cfg.MaxRetries
	return ai.NewRetrying(client, policy), nil
}

// dimFitter pads or truncates embeddings to the configured dimension.
type dimFitter struct {
	ai.Embedder
	dim int
}

func (d dimFitter) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	vec, err := d.Embedder.GenerateEmbedding(ctx, input)
	if err != nil {
		return nil, err
	}
	return ai.FitDimension(vec, d.dim), nil
}

// NewEmbedder picks the embedder for entity resolution: a local hugot
// pipeline when cfg.EmbedLocal is set, the oracle when an embedding model
// is configured, and none otherwise. The returned close func is never nil.
func NewEmbedder(cfg config.AIConfig, client ai.GraphAIClient) (ai.Embedder, func() error, error) {
	noop := func() error { return nil }
	switch {
	case cfg.EmbedLocal != "":
		e, err := hai.NewEmbedder(hai.Params{ModelName: cfg.EmbedLocal, ModelDir: cfg.EmbedLocalDir})
		if err != nil {
			return nil, noop, err
		}
		var emb ai.Embedder = e
		if cfg.EmbedDim > 0 {
			emb = dimFitter{Embedder: e, dim: cfg.EmbedDim}
		}
		return emb, e.Close, nil
	case cfg.EmbedModel != "":
		return client, noop, nil
	}
	logger.Warn("[App] No embedding model configured, entity resolution uses exact names only")
	return nil, noop, nil
}

// NewLineParser returns the role extractor. With cfg.UseSRL the oracle
// labels roles directly, otherwise it produces a dependency parse that is
// mapped locally.
func NewLineParser(ctx context.Context, cfg config.AIConfig, client ai.GraphAIClient) (extract.LineParser, error) {
	if cfg.UseSRL {
		return extract.NewSRLParser(ctx, client)
	}
	return extract.NewExtractor(ctx, extract.NewOracleParser(client))
}

// Options selects the backends New wires.
type Options struct {
	// Memory keeps the graph and documents in process instead of Postgres
	// and S3.
	Memory bool
	// Offline skips the oracle. Builder and Engine stay nil; only store
	// maintenance is possible.
	Offline bool
}

// App holds the wired services. Fields that a given Options does not need
// are nil.
type App struct {
	Config    *config.Config
	AI        ai.GraphAIClient
	Store     store.GraphStore
	Documents graph.DocumentStore
	Loader    loader.Loader
	Resolver  *resolve.Resolver
	Builder   *graph.Builder
	Engine    *query.Engine
	Locker    *leaselock.Locker
	Pool      *pgxpool.Pool

	closers []func() error
}

// New wires every service for cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}
	if err := a.openStores(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	if opts.Offline {
		return a, nil
	}
	if err := a.openPipeline(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context, opts Options) error {
	cfg := a.Config
	var s3Client *s3.Client

	if !opts.Memory && cfg.AWS.Enabled() {
		c, err := storage.NewS3Client(ctx, cfg.AWS)
		if err != nil {
			return err
		}
		s3Client = c
		a.Documents = storage.NewS3DocumentStore(c, cfg.AWS.Bucket)
	} else {
		a.Documents = graph.NewMemoryDocumentStore()
	}

	router := loader.NewRouter(fileloader.NewFileLoader())
	router.Register("file", fileloader.NewFileLoader())
	webLoader := web.NewWebLoader(&http.Client{Timeout: 2 * time.Minute})
	router.Register("http", webLoader).Register("https", webLoader)
	if s3Client != nil {
		router.Register("s3", s3loader.NewS3Loader(s3Client, cfg.AWS.Bucket))
	}
	a.Loader = router

	if opts.Memory {
		a.Store = memory.New()
		return nil
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required unless the in-memory store is used")
	}
	if err := pgxstore.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	pool, err := pgxstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.Pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	a.Store = pgxstore.NewGraphDBStorageWithConnection(pool)
	a.Locker = leaselock.NewLocker(pool)
	if s3Client == nil {
		logger.Warn("[App] No S3 side-store configured, document lines are kept in memory only")
	}
	return nil
}

func (a *App) openPipeline(ctx context.Context) error {
	cfg := a.Config
	client, err := NewAIClient(cfg.AI)
	if err != nil {
		return err
	}
	a.AI = client

	embedder, closeEmbedder, err := NewEmbedder(cfg.AI, client)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeEmbedder)

	parser, err := NewLineParser(ctx, cfg.AI, client)
	if err != nil {
		return err
	}

	a.Resolver = resolve.NewResolver(a.Store, embedder,
		resolve.WithThreshold(cfg.Graph.EntitySimilarityThreshold),
	)
	a.Builder, err = graph.NewBuilder(graph.NewBuilderParams{
		Parser:    parser,
		Resolver:  a.Resolver,
		Store:     a.Store,
		Documents: a.Documents,
	},
		graph.WithKeepEmptyActions(cfg.Graph.KeepEmptyActions),
		graph.WithDefaultConfidence(cfg.Graph.DefaultEdgeConfidence),
	)
	if err != nil {
		return err
	}

	a.Engine, err = query.NewEngine(query.NewEngineParams{
		Client:    client,
		Store:     a.Store,
		Documents: a.Documents,
	})
	return err
}

// QueryOptions returns the pattern options configured for questions.
func (a *App) QueryOptions() query.GenerateOptions {
	opts := query.DefaultGenerateOptions()
	opts.MinConfidence = a.Config.Graph.ConfidenceThreshold
	return opts
}

// Hostname is used as the lease holder prefix.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "karaka-"
	}
	return h + "-"
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("[App] Close failed", "err", err)
		}
	}
	a.closers = nil
}
