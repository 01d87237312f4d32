package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
)

// Result columns returned by MatchPattern.
const (
	ColAnswer     = "answer"
	ColRole       = "role"
	ColConfidence = "confidence"
	ColLineNumber = "line_number"
	ColDocumentID = "document_id"
	ColActionID   = "action_id"
	ColVerb       = "verb"
)

const (
	DefaultMinConfidence = 0.8
	DefaultLimit         = 20
)

// Constraint requires the matched action to also have an edge of Role to
// an entity named Entity (canonical name or alias, case-insensitive).
type Constraint struct {
	Role   karaka.Role `json:"role"`
	Entity string      `json:"entity"`
}

// Pattern selects the entities filling Target on actions that satisfy
// every constraint. Results are ordered by confidence descending, then
// line number ascending.
type Pattern struct {
	Target        karaka.Role  `json:"target"`
	Constraints   []Constraint `json:"constraints,omitempty"`
	Verb          string       `json:"verb,omitempty"`
	MinConfidence float64      `json:"min_confidence"`
	DocumentID    string       `json:"document_id,omitempty"`
	Limit         int          `json:"limit"`
}

// Validate checks roles and fills defaults for a zero limit.
func (p *Pattern) Validate() error {
	if !p.Target.Valid() {
		return fmt.Errorf("%w: target %q", karaka.ErrInvalidRole, p.Target)
	}
	for _, c := range p.Constraints {
		if !c.Role.Valid() {
			return fmt.Errorf("%w: constraint %q", karaka.ErrInvalidRole, c.Role)
		}
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return nil
}

// VerbMatches reports whether an action verb satisfies the pattern verb.
// The pattern verb matches the surface form or the lemma exactly. Actions
// stored without a lemma also match a regular inflection of the pattern
// verb ("give" matches "gives" and "giving"); with a lemma the lemma is
// authoritative, so "see" never matches "sent".
func VerbMatches(want, verb, lemma string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return true
	}
	verb = strings.ToLower(strings.TrimSpace(verb))
	lemma = strings.ToLower(strings.TrimSpace(lemma))
	if verb == want || lemma == want {
		return true
	}
	return lemma == "" && slices.Contains(VerbForms(want), verb)
}

// VerbForms returns the regular inflections of a base verb: third person
// singular, past tense and progressive, with the usual spelling changes
// (dropped final e, y to ie, doubled final consonant). Verbs shorter than
// two letters have none.
func VerbForms(base string) []string {
	base = strings.ToLower(strings.TrimSpace(base))
	n := len(base)
	if n < 2 {
		return nil
	}
	last, prev := base[n-1], base[n-2]
	stem := base[:n-1]
	switch {
	case last == 'e':
		ing := stem + "ing"
		if prev == 'e' || prev == 'o' || prev == 'y' {
			ing = base + "ing"
		}
		return []string{base + "s", base + "d", ing}
	case last == 'y' && !isVowel(prev):
		return []string{stem + "ies", stem + "ied", base + "ing"}
	case strings.HasSuffix(base, "ch") || strings.HasSuffix(base, "sh") || strings.ContainsRune("sxzo", rune(last)):
		return []string{base + "es", base + "ed", base + "ing"}
	case n >= 3 && !isVowel(last) && isVowel(prev) && !isVowel(base[n-3]) && !strings.ContainsRune("wxy", rune(last)):
		double := base + string(last)
		return []string{base + "s", base + "ed", base + "ing", double + "ed", double + "ing"}
	}
	return []string{base + "s", base + "ed", base + "ing"}
}

func isVowel(c byte) bool {
	return strings.IndexByte("aeiou", c) >= 0
}

// Cypher renders the pattern as the equivalent Cypher query with $params.
// Stores that speak Cypher can run it through ExecuteQuery.
func (p Pattern) Cypher() (string, map[string]any) {
	params := map[string]any{
		"min_confidence": p.MinConfidence,
		"limit":          p.Limit,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (a:Action)-[r:%s]->(e:Entity)\n", p.Target)
	where := []string{"r.confidence >= $min_confidence"}
	if v := strings.ToLower(strings.TrimSpace(p.Verb)); v != "" {
		params["verb"] = v
		params["verb_forms"] = VerbForms(v)
		where = append(where, "(toLower(a.verb) = $verb OR toLower(a.lemma) = $verb OR (coalesce(a.lemma, '') = '' AND toLower(a.verb) IN $verb_forms))")
	}
	if p.DocumentID != "" {
		params["document_id"] = p.DocumentID
		where = append(where, "a.document_id = $document_id")
	}
	fmt.Fprintf(&b, "WHERE %s\n", strings.Join(where, " AND "))

	for i, c := range p.Constraints {
		key := fmt.Sprintf("c%d", i)
		params[key] = c.Entity
		fmt.Fprintf(&b, "MATCH (a)-[:%s]->(%s:Entity)\n", c.Role, key)
		fmt.Fprintf(&b,
			"WHERE toLower(%[1]s.canonical_name) = toLower($%[1]s) OR any(x IN %[1]s.aliases WHERE toLower(x) = toLower($%[1]s))\n",
			key)
	}

	fmt.Fprintf(&b, "RETURN e.canonical_name AS %s, type(r) AS %s, r.confidence AS %s, a.line_number AS %s, a.document_id AS %s, a.id AS %s, a.verb AS %s\n",
		ColAnswer, ColRole, ColConfidence, ColLineNumber, ColDocumentID, ColActionID, ColVerb)
	b.WriteString("ORDER BY r.confidence DESC, a.line_number ASC\n")
	b.WriteString("LIMIT $limit")
	return b.String(), params
}

// Match is the typed form of a MatchPattern row.
type Match struct {
	Answer     string      `json:"answer"`
	Role       karaka.Role `json:"role"`
	Confidence float64     `json:"confidence"`
	LineNumber int         `json:"line_number"`
	DocumentID string      `json:"document_id"`
	ActionID   string      `json:"action_id"`
	Verb       string      `json:"verb"`
}

// Row converts m to a result row.
func (m Match) Row() Row {
	return Row{
		ColAnswer:     m.Answer,
		ColRole:       string(m.Role),
		ColConfidence: m.Confidence,
		ColLineNumber: m.LineNumber,
		ColDocumentID: m.DocumentID,
		ColActionID:   m.ActionID,
		ColVerb:       m.Verb,
	}
}

// MatchFromRow reads a result row, tolerating the numeric types different
// drivers produce.
func MatchFromRow(r Row) Match {
	m := Match{
		Answer:     asString(r[ColAnswer]),
		Role:       karaka.Role(asString(r[ColRole])),
		Confidence: asFloat(r[ColConfidence]),
		LineNumber: int(asFloat(r[ColLineNumber])),
		DocumentID: asString(r[ColDocumentID]),
		ActionID:   asString(r[ColActionID]),
		Verb:       asString(r[ColVerb]),
	}
	return m
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}
