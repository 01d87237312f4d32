package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/graph"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
)

// Engine answers questions against a graph store:
// decompose, generate a pattern, match it, enrich the rows with line text
// and synthesize the answer.
type Engine struct {
	decomposer  *Decomposer
	generator   *Generator
	synthesizer *Synthesizer
	store       store.GraphStore
	tracer      Tracer
}

type NewEngineParams struct {
	Client    ai.Completer
	Store     store.GraphStore
	Documents graph.DocumentStore
	Tracer    Tracer
}

func NewEngine(params NewEngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, errors.New("query engine needs a graph store")
	}
	return &Engine{
		decomposer:  NewDecomposer(params.Client),
		generator:   NewGenerator(params.Documents),
		synthesizer: NewSynthesizer(params.Client),
		store:       params.Store,
		tracer:      params.Tracer,
	}, nil
}

func (e *Engine) Ask(ctx context.Context, question string, opts GenerateOptions) (Answer, error) {
	d, err := e.decomposer.Decompose(ctx, question)
	if err != nil {
		return Answer{}, err
	}
	record(e.tracer, TraceEvent{Kind: TraceEventDecomposed, Decomposition: &d})
	logger.Debug("[Query] Decomposed", "target", d.TargetKaraka, "verb", d.Verb, "constraints", d.Constraints)

	p := e.generator.Generate(d, opts)
	record(e.tracer, TraceEvent{Kind: TraceEventPattern, Pattern: &p})

	rows, err := e.store.MatchPattern(ctx, p)
	if err != nil {
		return Answer{}, fmt.Errorf("match pattern: %w", err)
	}

	results, err := e.generator.Enrich(ctx, rows)
	if err != nil {
		return Answer{}, fmt.Errorf("enrich results: %w", err)
	}

	actionIDs := make([]string, 0, len(results))
	docIDs := make([]string, 0, len(results))
	for _, r := range results {
		actionIDs = append(actionIDs, r.ActionID)
		docIDs = append(docIDs, r.DocumentID)
	}
	record(e.tracer, TraceEvent{Kind: TraceEventMatchedActionIDs, ActionIDs: actionIDs})
	record(e.tracer, TraceEvent{Kind: TraceEventUsedDocumentIDs, DocumentIDs: docIDs})

	logger.Info("[Query] Answering", "question", question, "results", len(results))
	return e.synthesizer.Synthesize(ctx, question, d, results), nil
}
