package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/graph"
)

// IngestMessage asks a worker to ingest one document. The content comes
// from Lines, Text or Source, in that order of precedence. Source is a
// loader reference such as s3://bucket/key or an https URL.
type IngestMessage struct {
	DocumentID    string   `json:"document_id"`
	DocumentName  string   `json:"document_name,omitempty"`
	Text          string   `json:"text,omitempty"`
	Lines         []string `json:"lines,omitempty"`
	Source        string   `json:"source,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// ParseIngestMessage decodes body. Decoding and validation failures wrap
// ErrPermanent.
func ParseIngestMessage(body []byte) (IngestMessage, error) {
	var m IngestMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("%w: decode ingest message: %w", ErrPermanent, err)
	}
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

func (m IngestMessage) Validate() error {
	if m.Lines == nil && strings.TrimSpace(m.Text) == "" && m.Source == "" {
		return fmt.Errorf("%w: ingest message has no lines, text or source", ErrPermanent)
	}
	return nil
}

// Input converts the message to builder input. Source is resolved by the
// handler, not here.
func (m IngestMessage) Input() graph.DocumentInput {
	return graph.DocumentInput{
		ID:    m.DocumentID,
		Name:  m.DocumentName,
		Text:  m.Text,
		Lines: m.Lines,
	}
}

// Marshal encodes m for Publish.
func (m IngestMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
