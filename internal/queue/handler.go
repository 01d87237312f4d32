package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/graph"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/leaselock"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
)

// DocumentProcessor ingests a whole document.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, in graph.DocumentInput) (graph.DocumentRecord, error)
}

// Leaser serializes work on a document across workers.
type Leaser interface {
	WithDocumentLease(ctx context.Context, documentID string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// IngestHandler processes ingest_queue messages.
type IngestHandler struct {
	processor DocumentProcessor
	loader    loader.Loader
	leaser    Leaser
	leaseOpts leaselock.Options
}

// NewIngestHandlerParams holds the handler's collaborators. Loader is only
// needed for messages with a Source; Leaser may be nil for a single worker.
type NewIngestHandlerParams struct {
	Processor DocumentProcessor
	Loader    loader.Loader
	Leaser    Leaser
	LeaseOpts leaselock.Options
}

func NewIngestHandler(params NewIngestHandlerParams) (*IngestHandler, error) {
	if params.Processor == nil {
		return nil, errors.New("ingest handler needs a document processor")
	}
	return &IngestHandler{
		processor: params.Processor,
		loader:    params.Loader,
		leaser:    params.Leaser,
		leaseOpts: params.LeaseOpts,
	}, nil
}

// Handle decodes body and ingests the document under its lease.
func (h *IngestHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := ParseIngestMessage(body)
	if err != nil {
		return err
	}
	if msg.DocumentID == "" {
		msg.DocumentID = util.NewDocumentID()
		logger.Warn("[Queue] Ingest message without document id, generated one", "document_id", msg.DocumentID)
	}

	run := func(ctx context.Context) error {
		in, err := h.input(ctx, msg)
		if err != nil {
			return err
		}
		doc, err := h.processor.ProcessDocument(ctx, in)
		if err != nil {
			return fmt.Errorf("process document %s: %w", msg.DocumentID, err)
		}
		logger.Info("[Queue] Document ingested",
			"document_id", doc.DocumentID,
			"correlation_id", msg.CorrelationID,
			"lines", doc.TotalLines,
			"actions", doc.Stats.Actions,
			"errors", doc.Stats.Errors,
		)
		return nil
	}

	if h.leaser == nil {
		return run(ctx)
	}
	return h.leaser.WithDocumentLease(ctx, msg.DocumentID, h.leaseOpts, run)
}

func (h *IngestHandler) input(ctx context.Context, msg IngestMessage) (graph.DocumentInput, error) {
	in := msg.Input()
	if in.Lines != nil || in.Text != "" {
		return in, nil
	}
	if h.loader == nil {
		return in, fmt.Errorf("%w: no loader for source %q", ErrPermanent, msg.Source)
	}
	doc, err := h.loader.Load(ctx, msg.Source)
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedScheme) || errors.Is(err, loader.ErrNotText) {
			return in, fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return in, fmt.Errorf("load %s: %w", msg.Source, err)
	}
	in.Text = doc.Text
	if in.Name == "" {
		in.Name = doc.Name
	}
	return in, nil
}
