package extract

import (
	"context"
	"errors"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
)

// ErrParserUnavailable is returned when no parser is configured or the
// parser fails its readiness probe.
var ErrParserUnavailable = errors.New("role parser unavailable")

// VerbRoles is one verb of a line together with the phrases filling its
// syntactic roles.
type VerbRoles struct {
	Verb  string                          `json:"verb"`
	Lemma string                          `json:"lemma"`
	Roles map[karaka.SyntacticLabel]string `json:"roles"`
}

// DependencyParser produces a token level parse of one line.
type DependencyParser interface {
	Parse(ctx context.Context, line string) (Parse, error)
	Ready(ctx context.Context) error
}

// LineParser turns a line into its verbs and role phrases.
type LineParser interface {
	ParseLine(ctx context.Context, line string) ([]VerbRoles, error)
}

// healther is implemented by oracle clients that can probe their backend.
type healther interface {
	Health(ctx context.Context) error
}
