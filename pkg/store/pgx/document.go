package pgx

import (
	"context"
	"fmt"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

// DeleteDocument purges one document inside a single transaction. Entities
// shared with other documents only lose the document id.
func (s *GraphDBStorage) DeleteDocument(ctx context.Context, documentID string) (store.Stats, error) {
	var removed store.Stats

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return removed, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM karaka_edges WHERE document_id = $1`, documentID)
	if err != nil {
		return removed, fmt.Errorf("delete edges of %s: %w", documentID, err)
	}
	removed.Relationships = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM actions WHERE document_id = $1`, documentID)
	if err != nil {
		return removed, fmt.Errorf("delete actions of %s: %w", documentID, err)
	}
	removed.Actions = int(tag.RowsAffected())

	rows, err := tx.Query(ctx, `
UPDATE entities SET document_ids = array_remove(document_ids, $1)
 WHERE $1 = ANY(document_ids)
RETURNING canonical_name`, documentID)
	if err != nil {
		return removed, fmt.Errorf("detach entities from %s: %w", documentID, err)
	}
	touched, err := pgxv5.CollectRows(rows, pgxv5.RowTo[string])
	if err != nil {
		return removed, fmt.Errorf("detach entities from %s: %w", documentID, err)
	}

	if len(touched) > 0 {
		tag, err = tx.Exec(ctx, `
DELETE FROM entities e
 WHERE e.canonical_name = ANY($1)
   AND cardinality(e.document_ids) = 0
   AND NOT EXISTS (SELECT 1 FROM karaka_edges k WHERE k.entity_name = e.canonical_name)`, touched)
		if err != nil {
			return removed, fmt.Errorf("delete orphaned entities of %s: %w", documentID, err)
		}
		removed.Entities = int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}
