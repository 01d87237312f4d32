package store

import (
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
)

// DedupeStrings drops empty and repeated values, keeping first-seen order.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ValidateEdge checks the fields every store requires of an edge.
func ValidateEdge(e KarakaEdge) error {
	if !e.Role.Valid() {
		return fmt.Errorf("%w: %q", karaka.ErrInvalidRole, e.Role)
	}
	if strings.TrimSpace(e.ActionID) == "" || strings.TrimSpace(e.EntityName) == "" {
		return fmt.Errorf("edge needs an action id and an entity name")
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("edge confidence %v out of range", e.Confidence)
	}
	return nil
}

// NormalizeEntity trims the name, ensures it is among the aliases and
// dedupes aliases and document ids.
func NormalizeEntity(e Entity) Entity {
	e.CanonicalName = strings.TrimSpace(e.CanonicalName)
	e.Aliases = DedupeStrings(append([]string{e.CanonicalName}, e.Aliases...))
	e.DocumentIDs = DedupeStrings(e.DocumentIDs)
	return e
}
