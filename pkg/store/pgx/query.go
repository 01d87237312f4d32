package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

// compilePattern renders p as SQL with positional arguments. Each
// constraint becomes an EXISTS over the action's other edges.
func compilePattern(p store.Pattern) (string, []any) {
	var (
		b     strings.Builder
		args  []any
		where []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	fmt.Fprintf(&b, `SELECT k.entity_name AS %s, k.role AS %s, k.confidence AS %s,
       a.line_number AS %s, a.document_id AS %s, a.id AS %s, a.verb AS %s
  FROM karaka_edges k
  JOIN actions a ON a.id = k.action_id
`, store.ColAnswer, store.ColRole, store.ColConfidence,
		store.ColLineNumber, store.ColDocumentID, store.ColActionID, store.ColVerb)

	where = append(where, "k.role = "+arg(string(p.Target)))
	where = append(where, "k.confidence >= "+arg(p.MinConfidence))

	if v := strings.ToLower(strings.TrimSpace(p.Verb)); v != "" {
		verb := arg(v)
		clause := fmt.Sprintf("(lower(a.verb) = %[1]s OR lower(a.lemma) = %[1]s", verb)
		if forms := store.VerbForms(v); len(forms) > 0 {
			clause += fmt.Sprintf(" OR (a.lemma = '' AND lower(a.verb) = ANY(%s))", arg(forms))
		}
		where = append(where, clause+")")
	}
	if p.DocumentID != "" {
		where = append(where, "a.document_id = "+arg(p.DocumentID))
	}

	for _, c := range p.Constraints {
		role := arg(string(c.Role))
		name := arg(strings.ToLower(strings.TrimSpace(c.Entity)))
		where = append(where, fmt.Sprintf(`EXISTS (
    SELECT 1 FROM karaka_edges c
     WHERE c.action_id = a.id AND c.role = %[1]s
       AND (lower(c.entity_name) = %[2]s
            OR EXISTS (SELECT 1 FROM entity_aliases x
                        WHERE x.entity_name = c.entity_name AND lower(x.alias) = %[2]s)))`,
			role, name))
	}

	fmt.Fprintf(&b, " WHERE %s\n", strings.Join(where, "\n   AND "))
	b.WriteString(" ORDER BY k.confidence DESC, a.line_number ASC, a.id ASC\n")
	b.WriteString(" LIMIT " + arg(p.Limit))
	return b.String(), args
}

func (s *GraphDBStorage) MatchPattern(ctx context.Context, p store.Pattern) ([]store.Row, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sql, args := compilePattern(p)

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("match pattern: %w", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var (
			m    store.Match
			role string
		)
		if err := rows.Scan(&m.Answer, &role, &m.Confidence, &m.LineNumber, &m.DocumentID, &m.ActionID, &m.Verb); err != nil {
			return nil, err
		}
		m.Role = karaka.Role(role)
		out = append(out, m.Row())
	}
	return out, rows.Err()
}

// ExecuteQuery runs a read-only SQL statement. Parameters are bound by
// name (@name) through pgx.NamedArgs.
func (s *GraphDBStorage) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]store.Row, error) {
	tx, err := s.conn.BeginTx(ctx, pgxv5.TxOptions{AccessMode: pgxv5.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var args []any
	if len(params) > 0 {
		args = append(args, pgxv5.NamedArgs(params))
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	maps, err := pgxv5.CollectRows(rows, pgxv5.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	out := make([]store.Row, len(maps))
	for i, m := range maps {
		out[i] = store.Row(m)
	}
	return out, tx.Commit(ctx)
}

func (s *GraphDBStorage) GraphData(ctx context.Context, limit int) (store.GraphData, error) {
	sql := `
SELECT k.action_id, a.verb, a.line_number, a.document_id,
       k.entity_name,
       COALESCE((SELECT array_agg(alias ORDER BY alias) FROM entity_aliases WHERE entity_name = k.entity_name), '{}'),
       k.role, k.confidence
  FROM karaka_edges k
  JOIN actions a ON a.id = k.action_id
 ORDER BY k.action_id, k.role`
	var args []any
	if limit > 0 {
		sql += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return store.GraphData{}, err
	}
	defer rows.Close()

	out := store.GraphData{Nodes: []store.GraphNode{}, Edges: []store.GraphEdge{}}
	seen := map[string]bool{}
	for rows.Next() {
		var (
			actionID, verb, docID, entity, role string
			line                                int
			aliases                             []string
			conf                                float64
		)
		if err := rows.Scan(&actionID, &verb, &line, &docID, &entity, &aliases, &role, &conf); err != nil {
			return store.GraphData{}, err
		}
		if !seen["a:"+actionID] {
			seen["a:"+actionID] = true
			out.Nodes = append(out.Nodes, store.GraphNode{
				ID: actionID, Label: verb, Type: store.NodeAction,
				Properties: map[string]any{"line_number": line, "document_id": docID},
			})
		}
		if !seen["e:"+entity] {
			seen["e:"+entity] = true
			out.Nodes = append(out.Nodes, store.GraphNode{
				ID: entity, Label: entity, Type: store.NodeEntity,
				Properties: map[string]any{"aliases": aliases},
			})
		}
		out.Edges = append(out.Edges, store.GraphEdge{
			Source: actionID, Target: entity, Role: karaka.Role(role), Confidence: conf,
		})
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.conn.QueryRow(ctx, `
SELECT (SELECT count(*) FROM entities),
       (SELECT count(*) FROM actions),
       (SELECT count(*) FROM karaka_edges)`).Scan(&st.Entities, &st.Actions, &st.Relationships)
	return st, err
}

func (s *GraphDBStorage) Clear(ctx context.Context) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	_, err := s.conn.Exec(ctx, "TRUNCATE karaka_edges, entity_aliases, actions, entities")
	return err
}
