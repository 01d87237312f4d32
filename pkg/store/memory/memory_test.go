package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *GraphMemoryStorage) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []store.Entity{
		{CanonicalName: "Rama", DocumentIDs: []string{"d1"}, Embedding: []float32{1, 0}},
		{CanonicalName: "Sita", Aliases: []string{"Janaki"}, DocumentIDs: []string{"d1"}},
		{CanonicalName: "book", DocumentIDs: []string{"d1"}},
		{CanonicalName: "Lakshmana", DocumentIDs: []string{"d1"}},
	} {
		require.NoError(t, s.UpsertEntity(ctx, e))
	}
	actions := []store.Action{
		{ID: "d1:action_1_0", Verb: "gives", Lemma: "give", LineNumber: 1, DocumentID: "d1"},
		{ID: "d1:action_2_0", Verb: "gave", Lemma: "give", LineNumber: 2, DocumentID: "d1"},
		{ID: "d2:action_1_0", Verb: "gives", LineNumber: 1, DocumentID: "d2"},
	}
	for _, a := range actions {
		require.NoError(t, s.CreateAction(ctx, a))
	}
	edges := []store.KarakaEdge{
		{ActionID: "d1:action_1_0", EntityName: "Rama", Role: karaka.Karta, Confidence: 0.9, LineNumber: 1, DocumentID: "d1"},
		{ActionID: "d1:action_1_0", EntityName: "Sita", Role: karaka.Sampradana, Confidence: 0.9, LineNumber: 1, DocumentID: "d1"},
		{ActionID: "d1:action_1_0", EntityName: "book", Role: karaka.Karma, Confidence: 0.9, LineNumber: 1, DocumentID: "d1"},
		{ActionID: "d1:action_2_0", EntityName: "Lakshmana", Role: karaka.Karta, Confidence: 0.95, LineNumber: 2, DocumentID: "d1"},
		{ActionID: "d1:action_2_0", EntityName: "Rama", Role: karaka.Sampradana, Confidence: 0.9, LineNumber: 2, DocumentID: "d1"},
		{ActionID: "d2:action_1_0", EntityName: "Rama", Role: karaka.Karta, Confidence: 0.5, LineNumber: 1, DocumentID: "d2"},
		{ActionID: "d2:action_1_0", EntityName: "Sita", Role: karaka.Sampradana, Confidence: 0.9, LineNumber: 1, DocumentID: "d2"},
	}
	for _, e := range edges {
		require.NoError(t, s.CreateKarakaEdge(ctx, e))
	}
}

func TestUpsertEntity_MergesAndKeepsEmbedding(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertEntity(ctx, store.Entity{CanonicalName: "Rama", DocumentIDs: []string{"d1"}, Embedding: []float32{1}}))
	require.NoError(t, s.UpsertEntity(ctx, store.Entity{CanonicalName: "Rama", Aliases: []string{"Ram"}, DocumentIDs: []string{"d2", "d1"}, Embedding: []float32{2}}))

	e, err := s.FindEntityByNameOrAlias(ctx, "Ram")
	require.NoError(t, err)
	assert.Equal(t, "Rama", e.CanonicalName)
	assert.Equal(t, []string{"Rama", "Ram"}, e.Aliases)
	assert.Equal(t, []string{"d1", "d2"}, e.DocumentIDs)
	assert.Equal(t, []float32{1}, e.Embedding)

	st, _ := s.Stats(ctx)
	assert.Equal(t, 1, st.Entities)
}

func TestFindEntity_NotFoundAndCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	_, err := s.FindEntityByNameOrAlias(ctx, "Ravana")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)

	_, err = s.FindEntityByNameOrAlias(ctx, "rama")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)

	e, err := s.FindEntityByNameOrAlias(ctx, "Janaki")
	require.NoError(t, err)
	assert.Equal(t, "Sita", e.CanonicalName)
}

func TestAddEntityAlias(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	require.NoError(t, s.AddEntityAlias(ctx, "Rama", "he", "d3"))
	e, err := s.FindEntityByNameOrAlias(ctx, "he")
	require.NoError(t, err)
	assert.Contains(t, e.DocumentIDs, "d3")

	assert.ErrorIs(t, s.AddEntityAlias(ctx, "Nobody", "x", "d"), store.ErrEntityNotFound)
}

func TestCreateAction_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := store.Action{ID: "d:action_1_0", Verb: "runs", LineNumber: 1, DocumentID: "d"}
	require.NoError(t, s.CreateAction(ctx, a))
	require.NoError(t, s.CreateAction(ctx, a))
	st, _ := s.Stats(ctx)
	assert.Equal(t, 1, st.Actions)
}

func TestCreateKarakaEdge(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	err := s.CreateKarakaEdge(ctx, store.KarakaEdge{ActionID: "d1:action_1_0", EntityName: "Rama", Role: "WHO", Confidence: 0.9})
	assert.ErrorIs(t, err, karaka.ErrInvalidRole)

	err = s.CreateKarakaEdge(ctx, store.KarakaEdge{ActionID: "missing", EntityName: "Rama", Role: karaka.Karta, Confidence: 0.9})
	assert.ErrorIs(t, err, store.ErrActionNotFound)

	// second edge for the same (action, role) is ignored
	require.NoError(t, s.CreateKarakaEdge(ctx, store.KarakaEdge{ActionID: "d1:action_1_0", EntityName: "Lakshmana", Role: karaka.Karta, Confidence: 0.9}))
	rows, err := s.MatchPattern(ctx, store.Pattern{Target: karaka.Karta, DocumentID: "d1", Constraints: []store.Constraint{{Role: karaka.Karma, Entity: "book"}}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Rama", rows[0][store.ColAnswer])
}

func TestMatchPattern(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	tests := []struct {
		name    string
		pattern store.Pattern
		answers []string
	}{
		{
			name:    "who gave to Sita",
			pattern: store.Pattern{Target: karaka.Karta, Verb: "give", MinConfidence: 0.8, Constraints: []store.Constraint{{Role: karaka.Sampradana, Entity: "sita"}}},
			answers: []string{"Rama"},
		},
		{
			name:    "alias constraint",
			pattern: store.Pattern{Target: karaka.Karma, MinConfidence: 0.8, Constraints: []store.Constraint{{Role: karaka.Sampradana, Entity: "JANAKI"}}},
			answers: []string{"book"},
		},
		{
			name:    "low confidence included below threshold",
			pattern: store.Pattern{Target: karaka.Karta, MinConfidence: 0.4, Constraints: []store.Constraint{{Role: karaka.Sampradana, Entity: "Sita"}}},
			answers: []string{"Rama", "Rama"},
		},
		{
			name:    "ordered by confidence then line",
			pattern: store.Pattern{Target: karaka.Karta, MinConfidence: 0.8},
			answers: []string{"Lakshmana", "Rama"},
		},
		{
			name:    "document filter",
			pattern: store.Pattern{Target: karaka.Karta, DocumentID: "d2"},
			answers: []string{"Rama"},
		},
		{
			name:    "verb mismatch",
			pattern: store.Pattern{Target: karaka.Karta, Verb: "take"},
			answers: nil,
		},
		{
			name:    "limit",
			pattern: store.Pattern{Target: karaka.Karta, Limit: 1},
			answers: []string{"Lakshmana"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.MatchPattern(ctx, tt.pattern)
			require.NoError(t, err)
			var got []string
			for _, r := range rows {
				got = append(got, store.MatchFromRow(r).Answer)
			}
			assert.Equal(t, tt.answers, got)
		})
	}
}

func TestExecuteQueryUnsupported(t *testing.T) {
	_, err := New().ExecuteQuery(context.Background(), "MATCH (n) RETURN n", nil)
	assert.ErrorIs(t, err, store.ErrUnsupportedQuery)
}

func TestGraphDataAndClear(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	g, err := s.GraphData(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, g.Edges, 7)
	for _, e := range g.Edges {
		assert.Contains(t, e.Source, ":action_", "edges point from actions")
	}

	limited, err := s.GraphData(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited.Edges, 2)

	require.NoError(t, s.Clear(ctx))
	st, _ := s.Stats(ctx)
	assert.Equal(t, store.Stats{}, st)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	removed, err := s.DeleteDocument(ctx, "d1")
	require.NoError(t, err)
	// Rama is still the agent of a d2 action
	assert.Equal(t, store.Stats{Entities: 3, Actions: 2, Relationships: 5}, removed)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Stats{Entities: 1, Actions: 1, Relationships: 1}, st)

	_, err = s.FindEntityByNameOrAlias(ctx, "Janaki")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)
	rama, err := s.FindEntityByNameOrAlias(ctx, "Rama")
	require.NoError(t, err)
	assert.Empty(t, rama.DocumentIDs)

	rows, err := s.MatchPattern(ctx, store.Pattern{Target: karaka.Karta})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "d2", store.MatchFromRow(rows[0]).DocumentID)

	again, err := s.DeleteDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, store.Stats{}, again)
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.UpsertEntity(ctx, store.Entity{CanonicalName: "Rama", DocumentIDs: []string{fmt.Sprintf("d%d", i)}})
		}()
	}
	wg.Wait()
	e, err := s.FindEntityByNameOrAlias(ctx, "Rama")
	require.NoError(t, err)
	assert.Len(t, e.DocumentIDs, 20)
}
