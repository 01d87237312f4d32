package pgx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	"github.com/jackc/pgx/v5/pgconn"
)

const fkViolation = "23503"

func (s *GraphDBStorage) CreateAction(ctx context.Context, a store.Action) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("action needs an id")
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err := s.conn.Exec(ctx, `
INSERT INTO actions (id, verb, lemma, line_number, action_sequence, document_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`,
		a.ID, util.SanitizePostgresText(a.Verb), util.SanitizePostgresText(a.Lemma), a.LineNumber, a.ActionSequence, a.DocumentID)
	if err != nil {
		return fmt.Errorf("create action %s: %w", a.ID, err)
	}
	return nil
}

func (s *GraphDBStorage) CreateKarakaEdge(ctx context.Context, e store.KarakaEdge) error {
	if err := store.ValidateEdge(e); err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err := s.conn.Exec(ctx, `
INSERT INTO karaka_edges (action_id, entity_name, role, confidence, line_number, document_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (action_id, role) DO NOTHING`,
		e.ActionID, e.EntityName, string(e.Role), e.Confidence, e.LineNumber, e.DocumentID)
	if err != nil {
		return edgeError(e, err)
	}
	return nil
}

// edgeError turns foreign key violations into the store sentinel errors.
func edgeError(e store.KarakaEdge, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
		if strings.Contains(pgErr.ConstraintName, "action") {
			return fmt.Errorf("%w: %s", store.ErrActionNotFound, e.ActionID)
		}
		return fmt.Errorf("%w: %s", store.ErrEntityNotFound, e.EntityName)
	}
	return fmt.Errorf("create edge %s/%s: %w", e.ActionID, e.Role, err)
}
