package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const upsertEntitySQL = `
INSERT INTO entities (canonical_name, document_ids, embedding)
VALUES ($1, $2, $3)
ON CONFLICT (canonical_name) DO UPDATE SET
    document_ids = ARRAY(
        SELECT DISTINCT unnest(entities.document_ids || EXCLUDED.document_ids)
    ),
    embedding = COALESCE(entities.embedding, EXCLUDED.embedding)`

const insertAliasSQL = `
INSERT INTO entity_aliases (entity_name, alias)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`

func (s *GraphDBStorage) UpsertEntity(ctx context.Context, e store.Entity) error {
	e = store.NormalizeEntity(e)
	if e.CanonicalName == "" {
		return fmt.Errorf("entity needs a canonical name")
	}

	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}
	docs := e.DocumentIDs
	if docs == nil {
		docs = []string{}
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, upsertEntitySQL, e.CanonicalName, docs, embedding); err != nil {
		return fmt.Errorf("upsert entity %s: %w", e.CanonicalName, err)
	}
	for _, a := range e.Aliases {
		if _, err := tx.Exec(ctx, insertAliasSQL, e.CanonicalName, a); err != nil {
			return fmt.Errorf("insert alias %s: %w", a, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *GraphDBStorage) AddEntityAlias(ctx context.Context, name, alias, documentID string) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
UPDATE entities SET document_ids = CASE
    WHEN $2 = '' OR $2 = ANY(document_ids) THEN document_ids
    ELSE array_append(document_ids, $2)
END
WHERE canonical_name = $1`, name, documentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrEntityNotFound, name)
	}
	if alias != "" {
		if _, err := tx.Exec(ctx, insertAliasSQL, name, alias); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const selectEntitySQL = `
SELECT e.canonical_name,
       e.document_ids,
       e.embedding,
       COALESCE(
           (SELECT array_agg(alias ORDER BY alias = e.canonical_name DESC, alias)
              FROM entity_aliases WHERE entity_name = e.canonical_name),
           '{}'
       )
  FROM entities e`

func scanEntity(row pgxv5.Row) (store.Entity, error) {
	var (
		e         store.Entity
		embedding *pgvector.Vector
	)
	if err := row.Scan(&e.CanonicalName, &e.DocumentIDs, &embedding, &e.Aliases); err != nil {
		return store.Entity{}, err
	}
	if embedding != nil {
		e.Embedding = embedding.Slice()
	}
	return e, nil
}

// FindEntityByNameOrAlias prefers an exact canonical name, then the
// smallest canonical name carrying the alias.
func (s *GraphDBStorage) FindEntityByNameOrAlias(ctx context.Context, name string) (*store.Entity, error) {
	row := s.conn.QueryRow(ctx, selectEntitySQL+`
 WHERE e.canonical_name = $1
    OR EXISTS (SELECT 1 FROM entity_aliases a WHERE a.entity_name = e.canonical_name AND a.alias = $1)
 ORDER BY (e.canonical_name = $1) DESC, e.canonical_name
 LIMIT 1`, name)
	e, err := scanEntity(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrEntityNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *GraphDBStorage) GetEntitiesWithEmbeddings(ctx context.Context) ([]store.Entity, error) {
	rows, err := s.conn.Query(ctx, selectEntitySQL+`
 WHERE e.embedding IS NOT NULL
 ORDER BY e.canonical_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
