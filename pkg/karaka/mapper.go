package karaka

import (
	"slices"
	"strings"
)

// SyntacticLabel is a dependency role as produced by the role extractor.
// Oblique complements carry their preposition, e.g. "obl:with".
type SyntacticLabel string

const (
	Subject        SyntacticLabel = "nsubj"
	DirectObject   SyntacticLabel = "obj"
	IndirectObject SyntacticLabel = "iobj"
	Oblique        SyntacticLabel = "obl"
	ObliqueWith    SyntacticLabel = "obl:with"
	ObliqueLoc     SyntacticLabel = "obl:loc"
	ObliqueIn      SyntacticLabel = "obl:in"
	ObliqueAt      SyntacticLabel = "obl:at"
	ObliqueOn      SyntacticLabel = "obl:on"
	ObliqueFrom    SyntacticLabel = "obl:from"
	ObliqueTo      SyntacticLabel = "obl:to"
	ObliqueForPrep SyntacticLabel = "obl:for"
)

// ObliqueFor returns the oblique label for a preposition.
func ObliqueFor(preposition string) SyntacticLabel {
	p := strings.ToLower(strings.TrimSpace(preposition))
	if p == "" {
		return Oblique
	}
	return SyntacticLabel("obl:" + p)
}

var syntacticToKaraka = map[SyntacticLabel]Role{
	Subject:        Karta,
	DirectObject:   Karma,
	IndirectObject: Sampradana,
	ObliqueWith:    Karana,
	ObliqueLoc:     Adhikarana,
	ObliqueIn:      Adhikarana,
	ObliqueAt:      Adhikarana,
	ObliqueOn:      Adhikarana,
	ObliqueFrom:    Apadana,
}

// RoleFor returns the role a syntactic label maps to.
func RoleFor(label SyntacticLabel) (Role, bool) {
	r, ok := syntacticToKaraka[SyntacticLabel(strings.ToLower(string(label)))]
	return r, ok
}

// MapToKarakas converts syntactic roles to Kāraka roles. Unknown labels and
// empty phrases are dropped. When two labels map to the same role the first
// in label order wins so the result does not depend on map iteration.
func MapToKarakas(roles map[SyntacticLabel]string) map[Role]string {
	out := make(map[Role]string, len(roles))
	labels := make([]SyntacticLabel, 0, len(roles))
	for l := range roles {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	for _, label := range labels {
		phrase := strings.TrimSpace(roles[label])
		if phrase == "" {
			continue
		}
		role, ok := RoleFor(label)
		if !ok {
			continue
		}
		if _, taken := out[role]; taken {
			continue
		}
		out[role] = phrase
	}
	return out
}
