package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/leaselock"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
)

// DeleteMessage asks a worker to remove a document from the graph and the
// document store.
type DeleteMessage struct {
	DocumentID    string `json:"document_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// ParseDeleteMessage decodes body. A message without a document id can
// never succeed and wraps ErrPermanent.
func ParseDeleteMessage(body []byte) (DeleteMessage, error) {
	var m DeleteMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("%w: decode delete message: %w", ErrPermanent, err)
	}
	m.DocumentID = strings.TrimSpace(m.DocumentID)
	if m.DocumentID == "" {
		return m, fmt.Errorf("%w: delete message has no document id", ErrPermanent)
	}
	return m, nil
}

func (m DeleteMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// DocumentDeleter purges one document.
type DocumentDeleter interface {
	DeleteDocument(ctx context.Context, documentID string) (store.Stats, error)
}

// DeleteHandler processes delete_queue messages. It takes the same
// document lease as ingestion so a delete waits for an in-flight ingest.
type DeleteHandler struct {
	deleter   DocumentDeleter
	leaser    Leaser
	leaseOpts leaselock.Options
}

type NewDeleteHandlerParams struct {
	Deleter   DocumentDeleter
	Leaser    Leaser
	LeaseOpts leaselock.Options
}

func NewDeleteHandler(params NewDeleteHandlerParams) (*DeleteHandler, error) {
	if params.Deleter == nil {
		return nil, errors.New("delete handler needs a document deleter")
	}
	return &DeleteHandler{
		deleter:   params.Deleter,
		leaser:    params.Leaser,
		leaseOpts: params.LeaseOpts,
	}, nil
}

func (h *DeleteHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := ParseDeleteMessage(body)
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		removed, err := h.deleter.DeleteDocument(ctx, msg.DocumentID)
		if err != nil {
			return fmt.Errorf("delete document %s: %w", msg.DocumentID, err)
		}
		logger.Info("[Queue] Document deleted",
			"document_id", msg.DocumentID,
			"correlation_id", msg.CorrelationID,
			"actions", removed.Actions,
			"entities", removed.Entities,
		)
		return nil
	}

	if h.leaser == nil {
		return run(ctx)
	}
	return h.leaser.WithDocumentLease(ctx, msg.DocumentID, h.leaseOpts, run)
}
