package extract

import (
	"fmt"
	"slices"
	"strings"
)

// Token is one word of a dependency parse. Ids are 1-based; Head 0 marks the
// root.
type Token struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos"`
	Dep   string `json:"dep"`
	Head  int    `json:"head"`
}

// Parse is the ordered token list of one line.
type Parse struct {
	Tokens []Token `json:"tokens"`
}

// Token returns the token with id.
func (p Parse) Token(id int) (Token, bool) {
	// tokens are normally dense and ordered
	if id >= 1 && id <= len(p.Tokens) && p.Tokens[id-1].ID == id {
		return p.Tokens[id-1], true
	}
	for _, t := range p.Tokens {
		if t.ID == id {
			return t, true
		}
	}
	return Token{}, false
}

// Children returns the direct dependents of id in sentence order.
func (p Parse) Children(id int) []Token {
	var out []Token
	for _, t := range p.Tokens {
		if t.Head == id && t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks that ids are unique and positive and that every head
// points at an existing token or the root.
func (p Parse) Validate() error {
	ids := make(map[int]struct{}, len(p.Tokens))
	for _, t := range p.Tokens {
		if t.ID <= 0 {
			return fmt.Errorf("token %q has invalid id %d", t.Text, t.ID)
		}
		if _, dup := ids[t.ID]; dup {
			return fmt.Errorf("duplicate token id %d", t.ID)
		}
		ids[t.ID] = struct{}{}
	}
	roots := 0
	for _, t := range p.Tokens {
		if t.Head == 0 {
			roots++
			continue
		}
		if _, ok := ids[t.Head]; !ok {
			return fmt.Errorf("token %d has unknown head %d", t.ID, t.Head)
		}
	}
	if len(p.Tokens) > 0 && roots == 0 {
		return fmt.Errorf("parse has no root")
	}
	return nil
}

// modifiers that stay attached to the noun they modify
var phraseDeps = map[string]bool{
	"det":        true,
	"det:poss":   true,
	"amod":       true,
	"compound":   true,
	"nmod:poss":  true,
	"poss":       true,
	"nummod":     true,
	"flat":       true,
	"flat:name":  true,
	"fixed":      true,
	"nmod":       true,
	"appos":      true,
	"conj":       true,
	"cc":         true,
	"case":       true,
	"acl":        true,
	"acl:relcl":  true,
	"relcl":      true,
	"nmod:tmod":  true,
	"nmod:npmod": true,
}

// clausal modifiers whose whole subtree belongs to the phrase
var clausalDeps = map[string]bool{
	"acl":       true,
	"acl:relcl": true,
	"relcl":     true,
}

// CollectPhrase returns the sorted token ids of the noun phrase headed by
// headID: the head, its modifiers and nested attachments. The case marker
// of the head itself is left out so "in the library" yields "the library".
// The parse is not modified.
func CollectPhrase(p Parse, headID int) []int {
	if _, ok := p.Token(headID); !ok {
		return nil
	}
	seen := map[int]bool{headID: true}
	out := []int{headID}

	var walk func(id int, full bool)
	walk = func(id int, full bool) {
		for _, c := range p.Children(id) {
			if seen[c.ID] {
				continue
			}
			dep := strings.ToLower(c.Dep)
			if id == headID && dep == "case" {
				continue
			}
			if !full && !phraseDeps[dep] {
				continue
			}
			if full && dep == "punct" {
				continue
			}
			seen[c.ID] = true
			out = append(out, c.ID)
			walk(c.ID, full || clausalDeps[dep])
		}
	}
	walk(headID, false)

	slices.Sort(out)
	return out
}

// PhraseText joins the tokens with ids in sentence order.
func PhraseText(p Parse, ids []int) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := p.Token(id); ok {
			words = append(words, t.Text)
		}
	}
	return strings.Join(words, " ")
}
