package store

import (
	"testing"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternCypher(t *testing.T) {
	p := Pattern{
		Target:        karaka.Karta,
		Constraints:   []Constraint{{Role: karaka.Sampradana, Entity: "Sita"}},
		Verb:          "Give",
		MinConfidence: 0.8,
		DocumentID:    "doc1",
		Limit:         20,
	}
	q, params := p.Cypher()

	assert.Contains(t, q, "MATCH (a:Action)-[r:KARTA]->(e:Entity)")
	assert.Contains(t, q, "MATCH (a)-[:SAMPRADANA]->(c0:Entity)")
	assert.Contains(t, q, "a.document_id = $document_id")
	assert.Contains(t, q, "ORDER BY r.confidence DESC, a.line_number ASC")
	assert.NotContains(t, q, "Sita", "values must be parameters")
	assert.Equal(t, "Sita", params["c0"])
	assert.Equal(t, "give", params["verb"])
	assert.Equal(t, []string{"gives", "gived", "giving"}, params["verb_forms"])
	assert.Contains(t, q, "coalesce(a.lemma, '') = '' AND toLower(a.verb) IN $verb_forms")
	assert.NotContains(t, q, "STARTS WITH")
	assert.Equal(t, 0.8, params["min_confidence"])
	assert.Equal(t, 20, params["limit"])
}

func TestPatternValidate(t *testing.T) {
	p := Pattern{Target: karaka.Karma}
	require.NoError(t, p.Validate())
	assert.Equal(t, DefaultLimit, p.Limit)

	bad := Pattern{Target: "WHO"}
	assert.ErrorIs(t, bad.Validate(), karaka.ErrInvalidRole)

	badC := Pattern{Target: karaka.Karma, Constraints: []Constraint{{Role: "X", Entity: "y"}}}
	assert.ErrorIs(t, badC.Validate(), karaka.ErrInvalidRole)
}

func TestVerbMatches(t *testing.T) {
	tests := []struct {
		want, verb, lemma string
		ok                bool
	}{
		{"", "anything", "", true},
		{"give", "gives", "", true},
		{"give", "gave", "give", true},
		{"give", "gave", "", false},
		{"shoot", "Shot", "shoot", true},
		{"take", "gives", "give", false},
		{"give", "giving", "", true},
		{"stop", "stopped", "", true},
		{"carry", "carried", "", true},
		{"watch", "watches", "", true},
		{"see", "seeing", "", true},
		// a stored lemma is authoritative
		{"see", "sent", "send", false},
		{"come", "completed", "complete", false},
		{"use", "ushered", "usher", false},
		{"give", "giving", "gift", false},
		// without a lemma only regular inflections match
		{"see", "sent", "", false},
		{"come", "completed", "", false},
		{"use", "ushered", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, VerbMatches(tt.want, tt.verb, tt.lemma), "%s vs %s/%s", tt.want, tt.verb, tt.lemma)
	}
}

func TestVerbForms(t *testing.T) {
	tests := []struct {
		base string
		want []string
	}{
		{"give", []string{"gives", "gived", "giving"}},
		{"see", []string{"sees", "seed", "seeing"}},
		{"carry", []string{"carries", "carried", "carrying"}},
		{"watch", []string{"watches", "watched", "watching"}},
		{"stop", []string{"stops", "stoped", "stoping", "stopped", "stopping"}},
		{"call", []string{"calls", "called", "calling"}},
		{"a", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbForms(tt.base), tt.base)
	}
}

func TestMatchFromRow(t *testing.T) {
	m := Match{Answer: "Rama", Role: karaka.Karta, Confidence: 0.9, LineNumber: 3, DocumentID: "d", ActionID: "d:action_3_0", Verb: "gives"}
	assert.Equal(t, m, MatchFromRow(m.Row()))

	// drivers return int64 / int32
	r := Row{ColAnswer: "Rama", ColConfidence: float32(0.5), ColLineNumber: int64(7)}
	got := MatchFromRow(r)
	assert.Equal(t, 7, got.LineNumber)
	assert.InDelta(t, 0.5, got.Confidence, 1e-6)
}

func TestNormalizeEntity(t *testing.T) {
	e := NormalizeEntity(Entity{CanonicalName: " Rama ", Aliases: []string{"Ram", "Rama", ""}, DocumentIDs: []string{"a", "a"}})
	assert.Equal(t, "Rama", e.CanonicalName)
	assert.Equal(t, []string{"Rama", "Ram"}, e.Aliases)
	assert.Equal(t, []string{"a"}, e.DocumentIDs)
}
