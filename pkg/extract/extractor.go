package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
)

// Extractor derives verb roles from a dependency parse.
type Extractor struct {
	parser DependencyParser
}

var _ LineParser = (*Extractor)(nil)

// NewExtractor returns an Extractor using parser. A nil parser or one that
// fails Ready is an initialization error wrapping ErrParserUnavailable.
func NewExtractor(ctx context.Context, parser DependencyParser) (*Extractor, error) {
	if parser == nil {
		return nil, ErrParserUnavailable
	}
	if err := parser.Ready(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParserUnavailable, err)
	}
	return &Extractor{parser: parser}, nil
}

// ParseLine returns every verb in line that has at least one role. Blank
// lines return nothing without calling the parser.
func (e *Extractor) ParseLine(ctx context.Context, line string) ([]VerbRoles, error) {
	if strings.TrimSpace(line) == "" {
		return []VerbRoles{}, nil
	}
	parse, err := e.parser.Parse(ctx, line)
	if err != nil {
		return nil, fmt.Errorf("parse line: %w", err)
	}
	return VerbsFromParse(parse), nil
}

// VerbsFromParse collects the roles of each VERB token. Auxiliaries are
// ignored. The first dependent wins when a label repeats.
func VerbsFromParse(p Parse) []VerbRoles {
	out := []VerbRoles{}
	for _, tok := range p.Tokens {
		if !strings.EqualFold(tok.POS, "VERB") {
			continue
		}
		roles := map[karaka.SyntacticLabel]string{}
		for _, child := range p.Children(tok.ID) {
			label, head, ok := labelFor(p, child)
			if !ok {
				continue
			}
			if _, exists := roles[label]; exists {
				continue
			}
			phrase := PhraseText(p, CollectPhrase(p, head))
			if phrase != "" {
				roles[label] = phrase
			}
		}
		if len(roles) == 0 {
			continue
		}
		promoteRecipient(roles)
		lemma := strings.ToLower(strings.TrimSpace(tok.Lemma))
		if lemma == "" {
			lemma = strings.ToLower(tok.Text)
		}
		out = append(out, VerbRoles{Verb: tok.Text, Lemma: lemma, Roles: roles})
	}
	return out
}

// recipientMarkers are the prepositions that introduce a recipient in the
// UD shape of a ditransitive ("gave the book to Sita"), in preference order.
var recipientMarkers = []karaka.SyntacticLabel{karaka.ObliqueTo, karaka.ObliqueForPrep}

// promoteRecipient relabels a "to"/"for" oblique as the indirect object when
// the verb also has a direct object and no indirect object of its own. This
// is the UD counterpart of the dative branch in labelFor.
func promoteRecipient(roles map[karaka.SyntacticLabel]string) {
	if _, ok := roles[karaka.DirectObject]; !ok {
		return
	}
	if _, ok := roles[karaka.IndirectObject]; ok {
		return
	}
	for _, label := range recipientMarkers {
		if phrase, ok := roles[label]; ok {
			roles[karaka.IndirectObject] = phrase
			delete(roles, label)
			return
		}
	}
}

// labelFor maps a verb dependent to its syntactic label and the id of the
// phrase head. Prepositional phrases come in two shapes: UD style where
// the noun carries a case child, and the older prep->pobj chain.
func labelFor(p Parse, child Token) (karaka.SyntacticLabel, int, bool) {
	switch strings.ToLower(child.Dep) {
	case "nsubj", "nsubj:pass", "nsubjpass":
		return karaka.Subject, child.ID, true
	case "obj", "dobj":
		return karaka.DirectObject, child.ID, true
	case "iobj":
		return karaka.IndirectObject, child.ID, true
	case "dative":
		// "gave the book to Sita": the preposition is the dative, Sita its pobj
		for _, c := range p.Children(child.ID) {
			if strings.EqualFold(c.Dep, "pobj") {
				return karaka.IndirectObject, c.ID, true
			}
		}
		return karaka.IndirectObject, child.ID, true
	case "obl", "nmod", "pobj", "obl:tmod", "obl:npmod":
		for _, c := range p.Children(child.ID) {
			if strings.EqualFold(c.Dep, "case") {
				return karaka.ObliqueFor(c.Text), child.ID, true
			}
		}
		return karaka.Oblique, child.ID, true
	case "prep":
		for _, c := range p.Children(child.ID) {
			if strings.EqualFold(c.Dep, "pobj") {
				return karaka.ObliqueFor(child.Text), c.ID, true
			}
		}
	}
	return "", 0, false
}
