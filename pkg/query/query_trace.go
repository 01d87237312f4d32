package query

import (
	"slices"
	"sync"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
)

type TraceEventKind string

const (
	TraceEventDecomposed       TraceEventKind = "decomposed"
	TraceEventPattern          TraceEventKind = "pattern"
	TraceEventMatchedActionIDs TraceEventKind = "matched_action_ids"
	TraceEventUsedDocumentIDs  TraceEventKind = "used_document_ids"
)

// TraceEvent is one step of a query run.
type TraceEvent struct {
	Kind TraceEventKind

	Decomposition *Decomposition
	Pattern       *store.Pattern
	ActionIDs     []string
	DocumentIDs   []string
}

// Tracer is a sink for query tracing events.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fans trace events out to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func record(t Tracer, event TraceEvent) {
	if t == nil {
		return
	}
	t.Record(event)
}

// QueryTrace collects what a query run decomposed, matched and read. It is
// safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	decomposition *Decomposition
	pattern       *store.Pattern
	actionIDs     map[string]struct{}
	documentIDs   map[string]struct{}
}

type QueryTraceSnapshot struct {
	Decomposition *Decomposition `json:"decomposition,omitempty"`
	Pattern       *store.Pattern `json:"pattern,omitempty"`
	ActionIDs     []string       `json:"action_ids"`
	DocumentIDs   []string       `json:"document_ids"`
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		actionIDs:   make(map[string]struct{}),
		documentIDs: make(map[string]struct{}),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventDecomposed:
		t.decomposition = event.Decomposition
	case TraceEventPattern:
		t.pattern = event.Pattern
	case TraceEventMatchedActionIDs:
		for _, id := range event.ActionIDs {
			if id != "" {
				t.actionIDs[id] = struct{}{}
			}
		}
	case TraceEventUsedDocumentIDs:
		for _, id := range event.DocumentIDs {
			if id != "" {
				t.documentIDs[id] = struct{}{}
			}
		}
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		Decomposition: t.decomposition,
		Pattern:       t.pattern,
		ActionIDs:     make([]string, 0, len(t.actionIDs)),
		DocumentIDs:   make([]string, 0, len(t.documentIDs)),
	}
	for id := range t.actionIDs {
		s.ActionIDs = append(s.ActionIDs, id)
	}
	for id := range t.documentIDs {
		s.DocumentIDs = append(s.DocumentIDs, id)
	}
	slices.Sort(s.ActionIDs)
	slices.Sort(s.DocumentIDs)
	return s
}
