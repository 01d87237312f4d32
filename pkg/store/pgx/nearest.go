package pgx

import (
	"context"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	"github.com/pgvector/pgvector-go"
)

// DefaultNearestLimit is the shortlist size used when k is not positive.
const DefaultNearestLimit = 10

var _ store.NearestEntityFinder = (*GraphDBStorage)(nil)

// NearestEntities ranks embedded entities with pgvector's cosine distance
// operator so only a shortlist leaves the database. The embedding column
// has no fixed dimension, hence the vector_dims filter.
func (s *GraphDBStorage) NearestEntities(ctx context.Context, vec []float32, k int) ([]store.Entity, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultNearestLimit
	}
	q := pgvector.NewVector(vec)

	rows, err := s.conn.Query(ctx, selectEntitySQL+`
 WHERE e.embedding IS NOT NULL
   AND vector_dims(e.embedding) = vector_dims($1::vector)
 ORDER BY e.embedding <=> $1::vector, e.canonical_name
 LIMIT $2`, q, k)
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
