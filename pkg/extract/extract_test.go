package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeParser struct {
	parse    Parse
	err      error
	readyErr error
	calls    int
}

func (f *fakeParser) Parse(context.Context, string) (Parse, error) {
	f.calls++
	return f.parse, f.err
}

func (f *fakeParser) Ready(context.Context) error { return f.readyErr }

// fakeCompleter answers prompts by the first matching substring.
type fakeCompleter struct {
	replies map[string]string
	err     error
	prompts []string
}

func (f *fakeCompleter) GenerateCompletion(_ context.Context, prompt string, _ ...ai.GenerateOption) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	for k, v := range f.replies {
		if strings.Contains(prompt, k) {
			return v, nil
		}
	}
	return "", nil
}

func (f *fakeCompleter) GenerateCompletionWithFormat(ctx context.Context, _, _, prompt string, out any, opts ...ai.GenerateOption) error {
	resp, err := f.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(resp, out)
}

// "Rama gives the book to Sita in the library ." in the spaCy dative shape
func givesParse() Parse {
	return Parse{Tokens: []Token{
		{ID: 1, Text: "Rama", Lemma: "Rama", POS: "PROPN", Dep: "nsubj", Head: 2},
		{ID: 2, Text: "gives", Lemma: "give", POS: "VERB", Dep: "root", Head: 0},
		{ID: 3, Text: "the", POS: "DET", Dep: "det", Head: 4},
		{ID: 4, Text: "book", POS: "NOUN", Dep: "obj", Head: 2},
		{ID: 5, Text: "to", POS: "ADP", Dep: "dative", Head: 2},
		{ID: 6, Text: "Sita", POS: "PROPN", Dep: "pobj", Head: 5},
		{ID: 7, Text: "in", POS: "ADP", Dep: "case", Head: 9},
		{ID: 8, Text: "the", POS: "DET", Dep: "det", Head: 9},
		{ID: 9, Text: "library", POS: "NOUN", Dep: "obl", Head: 2},
		{ID: 10, Text: ".", POS: "PUNCT", Dep: "punct", Head: 2},
	}}
}

// UD shape: the recipient is an obl with a case child.
// "Rama gives the book to Sita in the library ."
func givesParseUD() Parse {
	return Parse{Tokens: []Token{
		{ID: 1, Text: "Rama", Lemma: "Rama", POS: "PROPN", Dep: "nsubj", Head: 2},
		{ID: 2, Text: "gives", Lemma: "give", POS: "VERB", Dep: "root", Head: 0},
		{ID: 3, Text: "the", POS: "DET", Dep: "det", Head: 4},
		{ID: 4, Text: "book", POS: "NOUN", Dep: "obj", Head: 2},
		{ID: 5, Text: "to", POS: "ADP", Dep: "case", Head: 6},
		{ID: 6, Text: "Sita", POS: "PROPN", Dep: "obl", Head: 2},
		{ID: 7, Text: "in", POS: "ADP", Dep: "case", Head: 9},
		{ID: 8, Text: "the", POS: "DET", Dep: "det", Head: 9},
		{ID: 9, Text: "library", POS: "NOUN", Dep: "obl", Head: 2},
		{ID: 10, Text: ".", POS: "PUNCT", Dep: "punct", Head: 2},
	}}
}

// "Lakshmana took the mighty bow of Rama from the temple ."
func bowParse() Parse {
	return Parse{Tokens: []Token{
		{ID: 1, Text: "Lakshmana", POS: "PROPN", Dep: "nsubj", Head: 2},
		{ID: 2, Text: "took", Lemma: "take", POS: "VERB", Dep: "root", Head: 0},
		{ID: 3, Text: "the", POS: "DET", Dep: "det", Head: 5},
		{ID: 4, Text: "mighty", POS: "ADJ", Dep: "amod", Head: 5},
		{ID: 5, Text: "bow", POS: "NOUN", Dep: "obj", Head: 2},
		{ID: 6, Text: "of", POS: "ADP", Dep: "case", Head: 7},
		{ID: 7, Text: "Rama", POS: "PROPN", Dep: "nmod", Head: 5},
		{ID: 8, Text: "from", POS: "ADP", Dep: "case", Head: 10},
		{ID: 9, Text: "the", POS: "DET", Dep: "det", Head: 10},
		{ID: 10, Text: "temple", POS: "NOUN", Dep: "obl", Head: 2},
		{ID: 11, Text: ".", POS: "PUNCT", Dep: "punct", Head: 2},
	}}
}

func TestCollectPhrase(t *testing.T) {
	p := bowParse()

	tests := []struct {
		name string
		head int
		ids  []int
		text string
	}{
		{"object with nested nmod", 5, []int{3, 4, 5, 6, 7}, "the mighty bow of Rama"},
		{"oblique drops own case", 10, []int{9, 10}, "the temple"},
		{"bare proper noun", 1, []int{1}, "Lakshmana"},
		{"unknown head", 99, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := CollectPhrase(p, tt.head)
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.text, PhraseText(p, ids))
		})
	}
}

func TestCollectPhrase_DoesNotMutateParse(t *testing.T) {
	p := bowParse()
	before := append([]Token(nil), p.Tokens...)
	_ = CollectPhrase(p, 5)
	_ = CollectPhrase(p, 5)
	assert.Equal(t, before, p.Tokens)
}

func TestVerbsFromParse_Gives(t *testing.T) {
	verbs := VerbsFromParse(givesParse())
	require.Len(t, verbs, 1)
	assert.Equal(t, "gives", verbs[0].Verb)
	assert.Equal(t, "give", verbs[0].Lemma)
	assert.Equal(t, map[karaka.SyntacticLabel]string{
		karaka.Subject:        "Rama",
		karaka.DirectObject:   "the book",
		karaka.IndirectObject: "Sita",
		karaka.ObliqueIn:      "the library",
	}, verbs[0].Roles)

	mapped := karaka.MapToKarakas(verbs[0].Roles)
	assert.Equal(t, map[karaka.Role]string{
		karaka.Karta:      "Rama",
		karaka.Karma:      "the book",
		karaka.Sampradana: "Sita",
		karaka.Adhikarana: "the library",
	}, mapped)
}

func TestVerbsFromParse_UDRecipient(t *testing.T) {
	verbs := VerbsFromParse(givesParseUD())
	require.Len(t, verbs, 1)
	assert.Equal(t, map[karaka.SyntacticLabel]string{
		karaka.Subject:        "Rama",
		karaka.DirectObject:   "the book",
		karaka.IndirectObject: "Sita",
		karaka.ObliqueIn:      "the library",
	}, verbs[0].Roles)

	mapped := karaka.MapToKarakas(verbs[0].Roles)
	assert.Equal(t, "Sita", mapped[karaka.Sampradana])
	assert.Equal(t, "the library", mapped[karaka.Adhikarana])
}

func TestPromoteRecipient(t *testing.T) {
	tests := []struct {
		name string
		in   map[karaka.SyntacticLabel]string
		want map[karaka.SyntacticLabel]string
	}{
		{
			name: "to with object",
			in:   map[karaka.SyntacticLabel]string{karaka.DirectObject: "book", karaka.ObliqueTo: "Sita"},
			want: map[karaka.SyntacticLabel]string{karaka.DirectObject: "book", karaka.IndirectObject: "Sita"},
		},
		{
			name: "for with object",
			in:   map[karaka.SyntacticLabel]string{karaka.DirectObject: "cake", karaka.ObliqueForPrep: "Ravi"},
			want: map[karaka.SyntacticLabel]string{karaka.DirectObject: "cake", karaka.IndirectObject: "Ravi"},
		},
		{
			name: "to without object is a direction",
			in:   map[karaka.SyntacticLabel]string{karaka.Subject: "Rama", karaka.ObliqueTo: "the forest"},
			want: map[karaka.SyntacticLabel]string{karaka.Subject: "Rama", karaka.ObliqueTo: "the forest"},
		},
		{
			name: "existing indirect object wins",
			in:   map[karaka.SyntacticLabel]string{karaka.DirectObject: "book", karaka.IndirectObject: "Sita", karaka.ObliqueTo: "Lanka"},
			want: map[karaka.SyntacticLabel]string{karaka.DirectObject: "book", karaka.IndirectObject: "Sita", karaka.ObliqueTo: "Lanka"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promoteRecipient(tt.in)
			assert.Equal(t, tt.want, tt.in)
		})
	}
}

func TestVerbsFromParse_TwoVerbsAndAux(t *testing.T) {
	p := Parse{Tokens: []Token{
		{ID: 1, Text: "She", POS: "PRON", Dep: "nsubj", Head: 3},
		{ID: 2, Text: "has", POS: "AUX", Dep: "aux", Head: 3},
		{ID: 3, Text: "called", POS: "VERB", Dep: "root", Head: 0},
		{ID: 4, Text: "the", POS: "DET", Dep: "det", Head: 5},
		{ID: 5, Text: "team", POS: "NOUN", Dep: "obj", Head: 3},
		{ID: 6, Text: "and", POS: "CCONJ", Dep: "cc", Head: 7},
		{ID: 7, Text: "scheduled", POS: "VERB", Dep: "conj", Head: 3},
		{ID: 8, Text: "a", POS: "DET", Dep: "det", Head: 9},
		{ID: 9, Text: "meeting", POS: "NOUN", Dep: "obj", Head: 7},
		{ID: 10, Text: "quickly", POS: "ADV", Dep: "advmod", Head: 7},
	}}

	verbs := VerbsFromParse(p)
	require.Len(t, verbs, 2)
	assert.Equal(t, "called", verbs[0].Verb)
	assert.Equal(t, "She", verbs[0].Roles[karaka.Subject])
	assert.Equal(t, "the team", verbs[0].Roles[karaka.DirectObject])
	assert.Equal(t, "scheduled", verbs[1].Verb)
	assert.Equal(t, "a meeting", verbs[1].Roles[karaka.DirectObject])
}

func TestVerbsFromParse_VerbWithoutRolesDropped(t *testing.T) {
	p := Parse{Tokens: []Token{
		{ID: 1, Text: "Run", POS: "VERB", Dep: "root", Head: 0},
		{ID: 2, Text: "!", POS: "PUNCT", Dep: "punct", Head: 1},
	}}
	assert.Empty(t, VerbsFromParse(p))
}

func TestNewExtractor(t *testing.T) {
	ctx := context.Background()

	_, err := NewExtractor(ctx, nil)
	assert.ErrorIs(t, err, ErrParserUnavailable)

	_, err = NewExtractor(ctx, &fakeParser{readyErr: errors.New("model missing")})
	assert.ErrorIs(t, err, ErrParserUnavailable)

	e, err := NewExtractor(ctx, &fakeParser{})
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestExtractor_ParseLine(t *testing.T) {
	ctx := context.Background()
	fp := &fakeParser{parse: givesParse()}
	e, err := NewExtractor(ctx, fp)
	require.NoError(t, err)

	verbs, err := e.ParseLine(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, verbs)
	assert.Equal(t, 0, fp.calls)

	verbs, err = e.ParseLine(ctx, "Rama gives the book to Sita in the library.")
	require.NoError(t, err)
	assert.Len(t, verbs, 1)

	fp.err = errors.New("backend down")
	_, err = e.ParseLine(ctx, "Rama gives the book.")
	assert.Error(t, err)
}

func TestParseValidate(t *testing.T) {
	assert.NoError(t, givesParse().Validate())

	bad := givesParse()
	bad.Tokens[0].Head = 42
	assert.Error(t, bad.Validate())

	dup := givesParse()
	dup.Tokens[1].ID = 1
	assert.Error(t, dup.Validate())
}

func TestOracleParser(t *testing.T) {
	fc := &fakeCompleter{replies: map[string]string{
		"Universal Dependencies": `{"tokens":[{"id":1,"text":"Rama","lemma":"Rama","pos":"PROPN","dep":"nsubj","head":2},{"id":2,"text":"smiled","lemma":"smile","pos":"VERB","dep":"root","head":0}]}`,
	}}
	p := NewOracleParser(fc)
	require.NoError(t, p.Ready(context.Background()))

	parse, err := p.Parse(context.Background(), "Rama smiled")
	require.NoError(t, err)
	assert.Len(t, parse.Tokens, 2)
	assert.Contains(t, fc.prompts[0], `"Rama smiled"`)
}

func TestSRLParser_ParseLine(t *testing.T) {
	reply := "Here you go:\n```json\n" +
		`[{"verb": "called", "roles": {"nsubj": "She", "obj": "the team"}},` +
		` {"verb": "scheduled", "roles": {"nsubj": "She", "obj": "a meeting", "obl:loc": ""}},` +
		` {"verb": "is", "roles": {}}]` + "\n```"
	fc := &fakeCompleter{replies: map[string]string{"dependency parser": reply}}

	p, err := NewSRLParser(context.Background(), fc)
	require.NoError(t, err)

	verbs, err := p.ParseLine(context.Background(), "She called the team and scheduled a meeting.")
	require.NoError(t, err)
	require.Len(t, verbs, 2)
	assert.Equal(t, "scheduled", verbs[1].Verb)
	assert.Equal(t, map[karaka.SyntacticLabel]string{"nsubj": "She", "obj": "a meeting"}, verbs[1].Roles)
}

func TestSRLParser_Errors(t *testing.T) {
	_, err := NewSRLParser(context.Background(), nil)
	assert.ErrorIs(t, err, ErrParserUnavailable)

	fc := &fakeCompleter{replies: map[string]string{"dependency parser": "I cannot help with that."}}
	p, err := NewSRLParser(context.Background(), fc)
	require.NoError(t, err)
	verbs, err := p.ParseLine(context.Background(), "Rama smiled.")
	require.NoError(t, err)
	assert.Empty(t, verbs)

	fc.err = errors.New("timeout")
	_, err = p.ParseLine(context.Background(), "Rama smiled.")
	assert.Error(t, err)
}
