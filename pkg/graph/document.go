package graph

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrLineNotFound     = errors.New("line not found")
)

// DocumentStats tallies line outcomes of one document.
type DocumentStats struct {
	Success       int `json:"success"`
	Skipped       int `json:"skipped"`
	Errors        int `json:"errors"`
	Actions       int `json:"actions"`
	Relationships int `json:"relationships"`
}

// DocumentRecord is the persisted form of a processed document. It is the
// only place line text is kept; the graph references lines by number.
type DocumentRecord struct {
	DocumentID   string        `json:"document_id"`
	DocumentName string        `json:"document_name"`
	TotalLines   int           `json:"total_lines"`
	Lines        []string      `json:"lines"`
	Results      []LineResult  `json:"results"`
	Stats        DocumentStats `json:"stats"`
	ProcessedAt  time.Time     `json:"processed_at"`
}

// Line returns the 1-indexed line n.
func (d *DocumentRecord) Line(n int) (string, error) {
	if n < 1 || n > len(d.Lines) {
		return "", ErrLineNotFound
	}
	return d.Lines[n-1], nil
}

// DocumentSummary is a listing entry without lines and results.
type DocumentSummary struct {
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	TotalLines   int       `json:"total_lines"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// DocumentStore keeps processed documents for line retrieval.
// GetDocument returns ErrDocumentNotFound for unknown ids.
type DocumentStore interface {
	PutDocument(ctx context.Context, doc DocumentRecord) error
	GetDocument(ctx context.Context, documentID string) (*DocumentRecord, error)
	ListDocuments(ctx context.Context) ([]DocumentSummary, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// MemoryDocumentStore is a DocumentStore for tests and local runs.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]DocumentRecord
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]DocumentRecord)}
}

func (m *MemoryDocumentStore) PutDocument(_ context.Context, doc DocumentRecord) error {
	doc.Lines = slices.Clone(doc.Lines)
	doc.Results = slices.Clone(doc.Results)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.DocumentID] = doc
	return nil
}

func (m *MemoryDocumentStore) GetDocument(_ context.Context, documentID string) (*DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	doc.Lines = slices.Clone(doc.Lines)
	doc.Results = slices.Clone(doc.Results)
	return &doc, nil
}

func (m *MemoryDocumentStore) ListDocuments(context.Context) ([]DocumentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DocumentSummary, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, Summarize(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func (m *MemoryDocumentStore) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[documentID]; !ok {
		return ErrDocumentNotFound
	}
	delete(m.docs, documentID)
	return nil
}

func Summarize(d DocumentRecord) DocumentSummary {
	return DocumentSummary{
		DocumentID:   d.DocumentID,
		DocumentName: d.DocumentName,
		TotalLines:   d.TotalLines,
		ProcessedAt:  d.ProcessedAt,
	}
}
