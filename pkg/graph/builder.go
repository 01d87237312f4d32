// Package graph turns document lines into action nodes and Kāraka edges.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/extract"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
)

const DefaultConfidence = 0.9

type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// ActionResult describes one action created for a line.
type ActionResult struct {
	ActionID       string                 `json:"action_id"`
	Verb           string                 `json:"verb"`
	ActionSequence int                    `json:"action_sequence"`
	Karakas        map[karaka.Role]string `json:"karakas"`
}

// LineResult is the outcome of processing one line.
type LineResult struct {
	Status     Status         `json:"status"`
	LineNumber int            `json:"line_number"`
	LineText   string         `json:"line_text"`
	Actions    []ActionResult `json:"actions"`
	Error      string         `json:"error,omitempty"`
}

// EntityResolver maps a mention to a canonical entity name.
type EntityResolver interface {
	ResolveEntity(ctx context.Context, mention, documentID string) (string, error)
	ClearCache()
}

// Builder writes the action graph for documents. One Builder processes one
// document at a time.
type Builder struct {
	parser    extract.LineParser
	resolver  EntityResolver
	store     store.GraphStore
	documents DocumentStore

	keepEmptyActions  bool
	defaultConfidence float64
	progress          func(done, total int)
}

type BuilderOption func(*Builder)

// WithKeepEmptyActions controls whether actions none of whose roles
// resolved are still persisted. The default is true.
func WithKeepEmptyActions(keep bool) BuilderOption {
	return func(b *Builder) { b.keepEmptyActions = keep }
}

// WithDefaultConfidence sets the confidence stored on new edges.
func WithDefaultConfidence(c float64) BuilderOption {
	return func(b *Builder) {
		if c > 0 && c <= 1 {
			b.defaultConfidence = c
		}
	}
}

// WithProgress reports progress after every processed line.
func WithProgress(fn func(done, total int)) BuilderOption {
	return func(b *Builder) { b.progress = fn }
}

// NewBuilderParams holds the collaborators of a Builder. Documents may be
// nil, in which case processed documents are not persisted and line text
// cannot be retrieved.
type NewBuilderParams struct {
	Parser    extract.LineParser
	Resolver  EntityResolver
	Store     store.GraphStore
	Documents DocumentStore
}

func NewBuilder(params NewBuilderParams, opts ...BuilderOption) (*Builder, error) {
	if params.Parser == nil {
		return nil, extract.ErrParserUnavailable
	}
	if params.Resolver == nil || params.Store == nil {
		return nil, errors.New("builder needs a resolver and a graph store")
	}
	b := &Builder{
		parser:            params.Parser,
		resolver:          params.Resolver,
		store:             params.Store,
		documents:         params.Documents,
		keepEmptyActions:  true,
		defaultConfidence: DefaultConfidence,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// ProcessLine extracts the verbs of one line and writes an action per verb
// with an edge per resolved role. Failures of a single verb or role are
// logged and skipped; only a parser failure marks the line as an error.
func (b *Builder) ProcessLine(ctx context.Context, lineText string, lineNumber int, documentID string) LineResult {
	res := LineResult{
		Status:     StatusSuccess,
		LineNumber: lineNumber,
		LineText:   lineText,
		Actions:    []ActionResult{},
	}

	if strings.TrimSpace(lineText) == "" {
		res.Status = StatusSkipped
		return res
	}

	verbs, err := b.parser.ParseLine(ctx, lineText)
	if err != nil {
		logger.Error("[Graph] Failed to parse line", "document_id", documentID, "line", lineNumber, "err", err)
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}

	for seq, v := range verbs {
		action, ok := b.processVerb(ctx, v, lineNumber, seq, documentID)
		if ok {
			res.Actions = append(res.Actions, action)
		}
	}

	if len(res.Actions) == 0 {
		res.Status = StatusSkipped
		logger.Debug("[Graph] No actions for line", "document_id", documentID, "line", lineNumber)
	}
	return res
}

func (b *Builder) processVerb(ctx context.Context, v extract.VerbRoles, lineNumber, seq int, documentID string) (ActionResult, bool) {
	roles := karaka.MapToKarakas(v.Roles)
	if len(roles) == 0 {
		logger.Debug("[Graph] Verb has no Kāraka roles", "verb", v.Verb, "line", lineNumber)
		return ActionResult{}, false
	}

	resolved := make(map[karaka.Role]string, len(roles))
	for _, role := range karaka.Roles {
		mention, ok := roles[role]
		if !ok {
			continue
		}
		name, err := b.resolver.ResolveEntity(ctx, mention, documentID)
		if err != nil {
			logger.Warn("[Graph] Failed to resolve entity", "mention", mention, "role", role, "line", lineNumber, "err", err)
			continue
		}
		resolved[role] = name
	}
	if len(resolved) == 0 && !b.keepEmptyActions {
		logger.Debug("[Graph] Dropping action without resolved roles", "verb", v.Verb, "line", lineNumber)
		return ActionResult{}, false
	}

	id := util.ActionID(documentID, lineNumber, seq)
	err := b.store.CreateAction(ctx, store.Action{
		ID:             id,
		Verb:           v.Verb,
		Lemma:          v.Lemma,
		LineNumber:     lineNumber,
		ActionSequence: seq,
		DocumentID:     documentID,
	})
	if err != nil {
		logger.Error("[Graph] Failed to create action", "action_id", id, "err", err)
		return ActionResult{}, false
	}

	karakas := make(map[karaka.Role]string, len(resolved))
	for _, role := range karaka.Roles {
		name, ok := resolved[role]
		if !ok {
			continue
		}
		err := b.store.CreateKarakaEdge(ctx, store.KarakaEdge{
			ActionID:   id,
			EntityName: name,
			Role:       role,
			Confidence: b.defaultConfidence,
			LineNumber: lineNumber,
			DocumentID: documentID,
		})
		if err != nil {
			logger.Warn("[Graph] Failed to create edge", "action_id", id, "role", role, "entity", name, "err", err)
			continue
		}
		karakas[role] = name
	}

	return ActionResult{ActionID: id, Verb: v.Verb, ActionSequence: seq, Karakas: karakas}, true
}

// DocumentInput is a document to ingest. Lines takes precedence over Text.
type DocumentInput struct {
	ID    string   `json:"document_id"`
	Name  string   `json:"document_name"`
	Text  string   `json:"text,omitempty"`
	Lines []string `json:"lines,omitempty"`
}

func (in DocumentInput) lines() []string {
	if in.Lines != nil {
		return in.Lines
	}
	split := extract.SplitLines(in.Text)
	out := make([]string, len(split))
	for i, l := range split {
		out[i] = l.Text
	}
	return out
}

// ProcessDocument processes every line in order and persists the document
// with its results. A document without an id gets a generated one.
func (b *Builder) ProcessDocument(ctx context.Context, in DocumentInput) (DocumentRecord, error) {
	if in.ID == "" {
		in.ID = util.NewDocumentID()
	}
	if in.Name == "" {
		in.Name = in.ID
	}
	lines := in.lines()

	logger.Info("[Graph] Processing document", "document_id", in.ID, "name", in.Name, "lines", len(lines))
	b.resolver.ClearCache()

	doc := DocumentRecord{
		DocumentID:   in.ID,
		DocumentName: in.Name,
		TotalLines:   len(lines),
		Lines:        lines,
		Results:      make([]LineResult, 0, len(lines)),
	}

	for i, text := range lines {
		if err := ctx.Err(); err != nil {
			return doc, err
		}
		res := b.ProcessLine(ctx, text, i+1, in.ID)
		doc.Results = append(doc.Results, res)

		switch res.Status {
		case StatusSuccess:
			doc.Stats.Success++
		case StatusSkipped:
			doc.Stats.Skipped++
		case StatusError:
			doc.Stats.Errors++
		}
		doc.Stats.Actions += len(res.Actions)
		for _, a := range res.Actions {
			doc.Stats.Relationships += len(a.Karakas)
		}

		if b.progress != nil {
			b.progress(i+1, len(lines))
		}
	}
	doc.ProcessedAt = time.Now().UTC()

	if b.documents != nil {
		if err := b.documents.PutDocument(ctx, doc); err != nil {
			return doc, fmt.Errorf("store document %s: %w", in.ID, err)
		}
	}

	logger.Info("[Graph] Document processed",
		"document_id", in.ID,
		"success", doc.Stats.Success,
		"skipped", doc.Stats.Skipped,
		"errors", doc.Stats.Errors,
		"actions", doc.Stats.Actions,
	)
	return doc, nil
}

// RetrieveLineText returns line lineNumber of a stored document.
func (b *Builder) RetrieveLineText(ctx context.Context, documentID string, lineNumber int) (string, error) {
	if b.documents == nil {
		return "", fmt.Errorf("%w: no document store configured", ErrDocumentNotFound)
	}
	doc, err := b.documents.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	text, err := doc.Line(lineNumber)
	if err != nil {
		return "", fmt.Errorf("%w: %s line %d", err, documentID, lineNumber)
	}
	return text, nil
}

// DeleteDocument removes a document's actions, edges and orphaned entities
// from the graph and then drops its stored record.
func (b *Builder) DeleteDocument(ctx context.Context, documentID string) (store.Stats, error) {
	removed, err := DeleteDocument(ctx, b.store, b.documents, documentID)
	if err == nil {
		b.resolver.ClearCache()
	}
	return removed, err
}

// DeleteDocument purges documentID from gs and, when docs is not nil, from
// docs. A record that is already gone is not an error so a retried delete
// can finish.
func DeleteDocument(ctx context.Context, gs store.GraphStore, docs DocumentStore, documentID string) (store.Stats, error) {
	removed, err := gs.DeleteDocument(ctx, documentID)
	if err != nil {
		return removed, fmt.Errorf("delete graph of %s: %w", documentID, err)
	}
	if docs != nil {
		if err := docs.DeleteDocument(ctx, documentID); err != nil && !errors.Is(err, ErrDocumentNotFound) {
			return removed, fmt.Errorf("delete document record %s: %w", documentID, err)
		}
	}

	logger.Info("[Graph] Document deleted",
		"document_id", documentID,
		"actions", removed.Actions,
		"relationships", removed.Relationships,
		"entities", removed.Entities,
	)
	return removed, nil
}
