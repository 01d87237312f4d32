package pgx

import (
	"context"
	"testing"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase("karaka"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "error starting postgres container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(url))

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seed(t *testing.T, s *GraphDBStorage) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []store.Entity{
		{CanonicalName: "Rama", Aliases: []string{"he"}, DocumentIDs: []string{"d1"}, Embedding: []float32{1, 0, 0}},
		{CanonicalName: "Sita", DocumentIDs: []string{"d1"}},
		{CanonicalName: "book", DocumentIDs: []string{"d1"}},
	} {
		require.NoError(t, s.UpsertEntity(ctx, e))
	}
	require.NoError(t, s.CreateAction(ctx, store.Action{
		ID: "d1:action_1_1", Verb: "gives", Lemma: "give", LineNumber: 1, ActionSequence: 1, DocumentID: "d1",
	}))
	for _, e := range []store.KarakaEdge{
		{ActionID: "d1:action_1_1", EntityName: "Rama", Role: karaka.Karta, Confidence: 0.9, LineNumber: 1, DocumentID: "d1"},
		{ActionID: "d1:action_1_1", EntityName: "book", Role: karaka.Karma, Confidence: 0.9, LineNumber: 1, DocumentID: "d1"},
		{ActionID: "d1:action_1_1", EntityName: "Sita", Role: karaka.Sampradana, Confidence: 0.9, LineNumber: 1, DocumentID: "d1"},
	} {
		require.NoError(t, s.CreateKarakaEdge(ctx, e))
	}
}

func TestGraphDBStorage(t *testing.T) {
	pool := startPostgres(t)
	s := NewGraphDBStorageWithConnection(pool)
	ctx := context.Background()
	seed(t, s)

	t.Run("find by alias", func(t *testing.T) {
		e, err := s.FindEntityByNameOrAlias(ctx, "he")
		require.NoError(t, err)
		assert.Equal(t, "Rama", e.CanonicalName)
		assert.Equal(t, []float32{1, 0, 0}, e.Embedding)
		assert.Equal(t, "Rama", e.Aliases[0])
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := s.FindEntityByNameOrAlias(ctx, "Ravana")
		assert.ErrorIs(t, err, store.ErrEntityNotFound)
	})

	t.Run("upsert keeps embedding and merges documents", func(t *testing.T) {
		require.NoError(t, s.UpsertEntity(ctx, store.Entity{
			CanonicalName: "Rama", DocumentIDs: []string{"d2"}, Embedding: []float32{0, 1, 0},
		}))
		e, err := s.FindEntityByNameOrAlias(ctx, "Rama")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, e.Embedding)
		assert.ElementsMatch(t, []string{"d1", "d2"}, e.DocumentIDs)
	})

	t.Run("duplicate edge ignored", func(t *testing.T) {
		require.NoError(t, s.CreateKarakaEdge(ctx, store.KarakaEdge{
			ActionID: "d1:action_1_1", EntityName: "Sita", Role: karaka.Karta, Confidence: 0.5, LineNumber: 1, DocumentID: "d1",
		}))
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.Stats{Entities: 3, Actions: 1, Relationships: 3}, st)
	})

	t.Run("edge to missing action", func(t *testing.T) {
		err := s.CreateKarakaEdge(ctx, store.KarakaEdge{
			ActionID: "nope", EntityName: "Rama", Role: karaka.Karta, Confidence: 0.9,
		})
		assert.ErrorIs(t, err, store.ErrActionNotFound)
	})

	t.Run("who gave the book to sita", func(t *testing.T) {
		rows, err := s.MatchPattern(ctx, store.Pattern{
			Target: karaka.Karta,
			Constraints: []store.Constraint{
				{Role: karaka.Karma, Entity: "Book"},
				{Role: karaka.Sampradana, Entity: "sita"},
			},
			Verb:          "give",
			MinConfidence: store.DefaultMinConfidence,
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		m := store.MatchFromRow(rows[0])
		assert.Equal(t, "Rama", m.Answer)
		assert.Equal(t, 1, m.LineNumber)
		assert.Equal(t, "d1", m.DocumentID)
	})

	t.Run("execute query named args", func(t *testing.T) {
		rows, err := s.ExecuteQuery(ctx,
			"SELECT canonical_name FROM entities WHERE canonical_name = @name",
			map[string]any{"name": "Sita"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Sita", rows[0]["canonical_name"])
	})

	t.Run("execute query is read only", func(t *testing.T) {
		_, err := s.ExecuteQuery(ctx, "DELETE FROM entities", nil)
		assert.Error(t, err)
	})

	t.Run("graph data", func(t *testing.T) {
		g, err := s.GraphData(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, g.Edges, 3)
		assert.Len(t, g.Nodes, 4)
	})

	t.Run("nearest entities", func(t *testing.T) {
		for _, e := range []store.Entity{
			{CanonicalName: "Ravana", DocumentIDs: []string{"d3"}, Embedding: []float32{0.9, 0.1, 0}},
			{CanonicalName: "Hanuman", DocumentIDs: []string{"d3"}, Embedding: []float32{0, 0, 1}},
			{CanonicalName: "flat", DocumentIDs: []string{"d3"}, Embedding: []float32{1, 0}},
		} {
			require.NoError(t, s.UpsertEntity(ctx, e))
		}
		got, err := s.NearestEntities(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Rama", got[0].CanonicalName)
		assert.Equal(t, "Ravana", got[1].CanonicalName)
	})

	t.Run("verb inflection only without lemma", func(t *testing.T) {
		require.NoError(t, s.CreateAction(ctx, store.Action{
			ID: "d3:action_1_0", Verb: "giving", LineNumber: 1, DocumentID: "d3",
		}))
		require.NoError(t, s.CreateKarakaEdge(ctx, store.KarakaEdge{
			ActionID: "d3:action_1_0", EntityName: "Hanuman", Role: karaka.Karta, Confidence: 0.9, LineNumber: 1, DocumentID: "d3",
		}))
		rows, err := s.MatchPattern(ctx, store.Pattern{Target: karaka.Karta, Verb: "give"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		rows, err = s.MatchPattern(ctx, store.Pattern{Target: karaka.Karta, Verb: "gi"})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("delete document", func(t *testing.T) {
		removed, err := s.DeleteDocument(ctx, "d1")
		require.NoError(t, err)
		// Rama stays because d2 still mentions it
		assert.Equal(t, store.Stats{Entities: 2, Actions: 1, Relationships: 3}, removed)

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.Stats{Entities: 4, Actions: 1, Relationships: 1}, st)

		rama, err := s.FindEntityByNameOrAlias(ctx, "he")
		require.NoError(t, err)
		assert.Equal(t, []string{"d2"}, rama.DocumentIDs)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, s.Clear(ctx))
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, store.Stats{}, st)
	})
}
