// Package memory is a mutex guarded in-process GraphStore used by tests and
// by the CLI when no database is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
)

type edgeKey struct {
	actionID string
	role     karaka.Role
}

// GraphMemoryStorage keeps the whole graph in maps.
type GraphMemoryStorage struct {
	mu sync.RWMutex

	entities map[string]*store.Entity
	// lowercased alias or name -> canonical names
	aliasIdx map[string]map[string]struct{}
	actions  map[string]store.Action
	edges    map[edgeKey]store.KarakaEdge
}

var _ store.GraphStore = (*GraphMemoryStorage)(nil)

// New returns an empty store.
func New() *GraphMemoryStorage {
	return &GraphMemoryStorage{
		entities: map[string]*store.Entity{},
		aliasIdx: map[string]map[string]struct{}{},
		actions:  map[string]store.Action{},
		edges:    map[edgeKey]store.KarakaEdge{},
	}
}

func (s *GraphMemoryStorage) index(alias, name string) {
	k := strings.ToLower(alias)
	if s.aliasIdx[k] == nil {
		s.aliasIdx[k] = map[string]struct{}{}
	}
	s.aliasIdx[k][name] = struct{}{}
}

func (s *GraphMemoryStorage) UpsertEntity(_ context.Context, e store.Entity) error {
	e = store.NormalizeEntity(e)
	if e.CanonicalName == "" {
		return fmt.Errorf("entity needs a canonical name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entities[e.CanonicalName]
	if !ok {
		cp := e
		cp.Aliases = slices.Clone(e.Aliases)
		cp.DocumentIDs = slices.Clone(e.DocumentIDs)
		cp.Embedding = slices.Clone(e.Embedding)
		s.entities[e.CanonicalName] = &cp
		for _, a := range cp.Aliases {
			s.index(a, cp.CanonicalName)
		}
		return nil
	}

	cur.Aliases = store.DedupeStrings(append(cur.Aliases, e.Aliases...))
	cur.DocumentIDs = store.DedupeStrings(append(cur.DocumentIDs, e.DocumentIDs...))
	if len(cur.Embedding) == 0 && len(e.Embedding) > 0 {
		cur.Embedding = slices.Clone(e.Embedding)
	}
	for _, a := range e.Aliases {
		s.index(a, cur.CanonicalName)
	}
	return nil
}

func (s *GraphMemoryStorage) AddEntityAlias(_ context.Context, name, alias, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entities[name]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrEntityNotFound, name)
	}
	if alias = strings.TrimSpace(alias); alias != "" {
		cur.Aliases = store.DedupeStrings(append(cur.Aliases, alias))
		s.index(alias, name)
	}
	if documentID != "" {
		cur.DocumentIDs = store.DedupeStrings(append(cur.DocumentIDs, documentID))
	}
	return nil
}

func copyEntity(e *store.Entity) *store.Entity {
	cp := *e
	cp.Aliases = slices.Clone(e.Aliases)
	cp.DocumentIDs = slices.Clone(e.DocumentIDs)
	cp.Embedding = slices.Clone(e.Embedding)
	return &cp
}

// FindEntityByNameOrAlias prefers an exact canonical name, then an exact
// alias. Several entities sharing an alias resolve to the smallest name.
func (s *GraphMemoryStorage) FindEntityByNameOrAlias(_ context.Context, name string) (*store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entities[name]; ok {
		return copyEntity(e), nil
	}
	var found *store.Entity
	for _, e := range s.entities {
		if !slices.Contains(e.Aliases, name) {
			continue
		}
		if found == nil || e.CanonicalName < found.CanonicalName {
			found = e
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrEntityNotFound, name)
	}
	return copyEntity(found), nil
}

func (s *GraphMemoryStorage) GetEntitiesWithEmbeddings(_ context.Context) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if len(e.Embedding) > 0 {
			out = append(out, *copyEntity(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out, nil
}

func (s *GraphMemoryStorage) CreateAction(_ context.Context, a store.Action) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("action needs an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[a.ID]; ok {
		return nil
	}
	s.actions[a.ID] = a
	return nil
}

func (s *GraphMemoryStorage) CreateKarakaEdge(_ context.Context, e store.KarakaEdge) error {
	if err := store.ValidateEdge(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actions[e.ActionID]; !ok {
		return fmt.Errorf("%w: %s", store.ErrActionNotFound, e.ActionID)
	}
	if _, ok := s.entities[e.EntityName]; !ok {
		return fmt.Errorf("%w: %s", store.ErrEntityNotFound, e.EntityName)
	}
	k := edgeKey{actionID: e.ActionID, role: e.Role}
	if _, ok := s.edges[k]; ok {
		return nil
	}
	s.edges[k] = e
	return nil
}

// namedAs reports whether the entity's name or an alias equals want,
// ignoring case. Caller holds the lock.
func (s *GraphMemoryStorage) namedAs(entity, want string) bool {
	names, ok := s.aliasIdx[strings.ToLower(strings.TrimSpace(want))]
	if !ok {
		return false
	}
	_, ok = names[entity]
	return ok
}

func (s *GraphMemoryStorage) MatchPattern(_ context.Context, p store.Pattern) ([]store.Row, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []store.Match
	for k, e := range s.edges {
		if k.role != p.Target || e.Confidence < p.MinConfidence {
			continue
		}
		a, ok := s.actions[e.ActionID]
		if !ok {
			continue
		}
		if p.DocumentID != "" && a.DocumentID != p.DocumentID {
			continue
		}
		if !store.VerbMatches(p.Verb, a.Verb, a.Lemma) {
			continue
		}
		if !s.satisfies(a.ID, p.Constraints) {
			continue
		}
		matches = append(matches, store.Match{
			Answer:     e.EntityName,
			Role:       e.Role,
			Confidence: e.Confidence,
			LineNumber: a.LineNumber,
			DocumentID: a.DocumentID,
			ActionID:   a.ID,
			Verb:       a.Verb,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].LineNumber != matches[j].LineNumber {
			return matches[i].LineNumber < matches[j].LineNumber
		}
		return matches[i].ActionID < matches[j].ActionID
	})
	if len(matches) > p.Limit {
		matches = matches[:p.Limit]
	}

	rows := make([]store.Row, len(matches))
	for i, m := range matches {
		rows[i] = m.Row()
	}
	return rows, nil
}

func (s *GraphMemoryStorage) satisfies(actionID string, cs []store.Constraint) bool {
	for _, c := range cs {
		e, ok := s.edges[edgeKey{actionID: actionID, role: c.Role}]
		if !ok || !s.namedAs(e.EntityName, c.Entity) {
			return false
		}
	}
	return true
}

// ExecuteQuery is not available without a query engine.
func (s *GraphMemoryStorage) ExecuteQuery(context.Context, string, map[string]any) ([]store.Row, error) {
	return nil, store.ErrUnsupportedQuery
}

// GraphData exports up to limit edges with their endpoints. limit <= 0
// exports everything.
func (s *GraphMemoryStorage) GraphData(_ context.Context, limit int) (store.GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]store.KarakaEdge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ActionID != edges[j].ActionID {
			return edges[i].ActionID < edges[j].ActionID
		}
		return edges[i].Role < edges[j].Role
	})
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}

	out := store.GraphData{Nodes: []store.GraphNode{}, Edges: make([]store.GraphEdge, 0, len(edges))}
	seen := map[string]bool{}
	for _, e := range edges {
		if a, ok := s.actions[e.ActionID]; ok && !seen["a:"+a.ID] {
			seen["a:"+a.ID] = true
			out.Nodes = append(out.Nodes, store.GraphNode{
				ID: a.ID, Label: a.Verb, Type: store.NodeAction,
				Properties: map[string]any{"line_number": a.LineNumber, "document_id": a.DocumentID},
			})
		}
		if en, ok := s.entities[e.EntityName]; ok && !seen["e:"+en.CanonicalName] {
			seen["e:"+en.CanonicalName] = true
			out.Nodes = append(out.Nodes, store.GraphNode{
				ID: en.CanonicalName, Label: en.CanonicalName, Type: store.NodeEntity,
				Properties: map[string]any{"aliases": slices.Clone(en.Aliases)},
			})
		}
		out.Edges = append(out.Edges, store.GraphEdge{
			Source: e.ActionID, Target: e.EntityName, Role: e.Role, Confidence: e.Confidence,
		})
	}
	return out, nil
}

func (s *GraphMemoryStorage) Stats(context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Stats{
		Entities:      len(s.entities),
		Actions:       len(s.actions),
		Relationships: len(s.edges),
	}, nil
}

func (s *GraphMemoryStorage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = map[string]*store.Entity{}
	s.aliasIdx = map[string]map[string]struct{}{}
	s.actions = map[string]store.Action{}
	s.edges = map[edgeKey]store.KarakaEdge{}
	return nil
}

func (s *GraphMemoryStorage) DeleteDocument(_ context.Context, documentID string) (store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed store.Stats
	for k, e := range s.edges {
		if e.DocumentID == documentID {
			delete(s.edges, k)
			removed.Relationships++
		}
	}
	for id, a := range s.actions {
		if a.DocumentID == documentID {
			delete(s.actions, id)
			removed.Actions++
		}
	}

	referenced := map[string]bool{}
	for _, e := range s.edges {
		referenced[e.EntityName] = true
	}
	for name, e := range s.entities {
		if !slices.Contains(e.DocumentIDs, documentID) {
			continue
		}
		e.DocumentIDs = slices.DeleteFunc(e.DocumentIDs, func(d string) bool { return d == documentID })
		if len(e.DocumentIDs) > 0 || referenced[name] {
			continue
		}
		for _, alias := range append([]string{name}, e.Aliases...) {
			k := strings.ToLower(alias)
			delete(s.aliasIdx[k], name)
			if len(s.aliasIdx[k]) == 0 {
				delete(s.aliasIdx, k)
			}
		}
		delete(s.entities, name)
		removed.Entities++
	}
	return removed, nil
}
