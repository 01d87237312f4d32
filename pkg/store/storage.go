package store

import (
	"context"
	"errors"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
)

var (
	// ErrEntityNotFound is returned when no entity has the requested name or alias.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrActionNotFound is returned when an edge references an unknown action.
	ErrActionNotFound = errors.New("action not found")
	// ErrUnsupportedQuery is returned by stores that cannot run raw queries.
	ErrUnsupportedQuery = errors.New("query not supported by this store")
)

// Entity is a canonical real-world thing. The canonical name is its
// identity; aliases always include the canonical name.
type Entity struct {
	CanonicalName string    `json:"canonical_name"`
	Aliases       []string  `json:"aliases"`
	DocumentIDs   []string  `json:"document_ids"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

// Action is one verb occurrence in one line of one document. It never
// holds the line text.
type Action struct {
	ID             string `json:"id"`
	Verb           string `json:"verb"`
	Lemma          string `json:"lemma,omitempty"`
	LineNumber     int    `json:"line_number"`
	ActionSequence int    `json:"action_sequence"`
	DocumentID     string `json:"document_id"`
}

// KarakaEdge links an action to the entity filling one of its roles.
// Direction is always action to entity.
type KarakaEdge struct {
	ActionID   string      `json:"action_id"`
	EntityName string      `json:"entity_name"`
	Role       karaka.Role `json:"role"`
	Confidence float64     `json:"confidence"`
	LineNumber int         `json:"line_number"`
	DocumentID string      `json:"document_id"`
}

// Row is one record returned by a query.
type Row map[string]any

// Stats counts the graph objects in a store.
type Stats struct {
	Entities      int `json:"entities"`
	Actions       int `json:"actions"`
	Relationships int `json:"relationships"`
}

// GraphNode is an action or entity in a GraphData export.
type GraphNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphEdge is a karaka edge in a GraphData export.
type GraphEdge struct {
	Source     string      `json:"source"`
	Target     string      `json:"target"`
	Role       karaka.Role `json:"role"`
	Confidence float64     `json:"confidence"`
}

// GraphData is a node/edge export of the graph for interchange.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

const (
	NodeAction = "Action"
	NodeEntity = "Entity"
)

// GraphStore persists the action/entity graph. Implementations must make
// UpsertEntity and AddEntityAlias safe for concurrent writers.
type GraphStore interface {
	// UpsertEntity creates the entity or merges aliases and document ids
	// into an existing one. An existing embedding is kept.
	UpsertEntity(ctx context.Context, e Entity) error
	// AddEntityAlias records alias and documentID on the named entity.
	AddEntityAlias(ctx context.Context, name, alias, documentID string) error
	// FindEntityByNameOrAlias matches name exactly against canonical names
	// and aliases. It returns ErrEntityNotFound when nothing matches.
	FindEntityByNameOrAlias(ctx context.Context, name string) (*Entity, error)
	GetEntitiesWithEmbeddings(ctx context.Context) ([]Entity, error)

	// CreateAction is idempotent on the action id.
	CreateAction(ctx context.Context, a Action) error
	// CreateKarakaEdge keeps at most one edge per action and role.
	CreateKarakaEdge(ctx context.Context, e KarakaEdge) error

	MatchPattern(ctx context.Context, p Pattern) ([]Row, error)
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]Row, error)

	GraphData(ctx context.Context, limit int) (GraphData, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error

	// DeleteDocument removes the document's actions and edges, drops the
	// document from every entity and deletes entities no document mentions
	// any more. It returns what was removed.
	DeleteDocument(ctx context.Context, documentID string) (Stats, error)
}

// NearestEntityFinder is implemented by stores that can rank entity
// embeddings themselves. Resolvers use it to fetch a shortlist instead of
// every embedded entity.
type NearestEntityFinder interface {
	// NearestEntities returns up to k entities ordered by cosine distance
	// to vec, ties by canonical name. Entities whose embedding has another
	// dimension are skipped.
	NearestEntities(ctx context.Context, vec []float32, k int) ([]Entity, error)
}
