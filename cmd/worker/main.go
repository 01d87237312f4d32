package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/app"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/config"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/queue"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/leaselock"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	app.InitLogger(cfg, "worker")

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		logger.Fatal("Could not start pipeline", "err", err)
	}
	defer a.Close()

	if err := a.AI.Health(ctx); err != nil {
		logger.Fatal("Oracle is not healthy", "err", err)
	}

	conn, err := queue.Dial(cfg.Rabbit)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	setup, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(setup, queue.IngestQueue, queue.DeleteQueue); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}
	_ = setup.Close()

	leaseOpts := leaselock.Options{
		TTL:          leaselock.DefaultTTL,
		HolderPrefix: app.Hostname(),
	}

	ingest, err := queue.NewIngestHandler(queue.NewIngestHandlerParams{
		Processor: a.Builder,
		Loader:    a.Loader,
		Leaser:    a.Locker,
		LeaseOpts: leaseOpts,
	})
	if err != nil {
		logger.Fatal("Failed to create ingest handler", "err", err)
	}
	del, err := queue.NewDeleteHandler(queue.NewDeleteHandlerParams{
		Deleter:   a.Builder,
		Leaser:    a.Locker,
		LeaseOpts: leaseOpts,
	})
	if err != nil {
		logger.Fatal("Failed to create delete handler", "err", err)
	}

	// The builder handles one document at a time, so both consumers share
	// a mutex around it.
	var mu sync.Mutex
	serial := func(h queue.HandlerFunc) queue.HandlerFunc {
		return func(ctx context.Context, body []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return h(ctx, body)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, handle := range map[string]queue.HandlerFunc{
		queue.IngestQueue: serial(ingest.Handle),
		queue.DeleteQueue: serial(del.Handle),
	} {
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "queue", name, "err", err)
		}
		defer ch.Close()

		consumer := queue.NewConsumer(ch, name, handle)
		consumer.After = func(_ error, _ time.Duration) {
			metrics := a.AI.GetMetrics()
			logger.Info(
				"AI Metrics",
				"input_tokens", metrics.InputTokens,
				"output_tokens", metrics.OutputTokens,
				"total_tokens", metrics.TotalTokens,
				"duration", time.Duration(metrics.DurationMs)*time.Millisecond,
			)
			a.AI.ResetMetrics()
			logger.Info("Waiting for next message")
		}
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Consumer stopped", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}
