package query

import (
	"context"
	"errors"
	"sync"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/graph"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	"golang.org/x/sync/errgroup"
)

// GenerateOptions tunes the pattern built for a decomposition.
type GenerateOptions struct {
	MinConfidence float64 `json:"min_confidence"`
	DocumentID    string  `json:"document_id,omitempty"`
	Limit         int     `json:"limit"`
}

func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MinConfidence: store.DefaultMinConfidence,
		Limit:         store.DefaultLimit,
	}
}

// Result is a pattern match together with the text of its line.
type Result struct {
	store.Match
	LineText     string `json:"line_text,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
}

// Generator builds store patterns and enriches their results with line
// text from the document side-store.
type Generator struct {
	documents   graph.DocumentStore
	parallelism int
}

// NewGenerator creates a generator. documents may be nil, in which case
// results are returned without line text.
func NewGenerator(documents graph.DocumentStore) *Generator {
	return &Generator{documents: documents, parallelism: 4}
}

// Generate builds the pattern for d. A zero limit uses store.DefaultLimit;
// MinConfidence is used as given.
func (g *Generator) Generate(d Decomposition, opts GenerateOptions) store.Pattern {
	p := store.Pattern{
		Target:        d.TargetKaraka,
		Verb:          d.Verb,
		MinConfidence: opts.MinConfidence,
		DocumentID:    opts.DocumentID,
		Limit:         opts.Limit,
	}
	if p.Limit <= 0 {
		p.Limit = store.DefaultLimit
	}
	for _, role := range karaka.Roles {
		if entity, ok := d.Constraints[role]; ok && role != d.TargetKaraka {
			p.Constraints = append(p.Constraints, store.Constraint{Role: role, Entity: entity})
		}
	}
	return p
}

// Enrich converts rows to results and attaches line text. Each document is
// fetched once; unknown documents or lines leave the text empty.
func (g *Generator) Enrich(ctx context.Context, rows []store.Row) ([]Result, error) {
	results := make([]Result, len(rows))
	docIDs := make([]string, 0)
	seen := map[string]bool{}
	for i, r := range rows {
		results[i] = Result{Match: store.MatchFromRow(r)}
		if id := results[i].DocumentID; id != "" && !seen[id] {
			seen[id] = true
			docIDs = append(docIDs, id)
		}
	}
	if g.documents == nil || len(rows) == 0 {
		return results, nil
	}

	var (
		mu   sync.Mutex
		docs = make(map[string]*graph.DocumentRecord, len(docIDs))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelism)
	for _, id := range docIDs {
		eg.Go(func() error {
			doc, err := g.documents.GetDocument(egCtx, id)
			if err != nil {
				if errors.Is(err, graph.ErrDocumentNotFound) {
					logger.Warn("[Query] Document missing from side-store", "document_id", id)
					return nil
				}
				return err
			}
			mu.Lock()
			docs[id] = doc
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i := range results {
		doc, ok := docs[results[i].DocumentID]
		if !ok {
			continue
		}
		results[i].DocumentName = doc.DocumentName
		if text, err := doc.Line(results[i].LineNumber); err == nil {
			results[i].LineText = text
		}
	}
	return results, nil
}
