package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
)

// OracleParser asks the completion oracle for a Universal Dependencies
// parse constrained by a JSON schema.
type OracleParser struct {
	client ai.Completer
	opts   []ai.GenerateOption
}

var _ DependencyParser = (*OracleParser)(nil)

// NewOracleParser returns a parser backed by client.
func NewOracleParser(client ai.Completer, opts ...ai.GenerateOption) *OracleParser {
	return &OracleParser{client: client, opts: opts}
}

// Parse returns the validated token parse of line.
func (p *OracleParser) Parse(ctx context.Context, line string) (Parse, error) {
	var out Parse
	err := p.client.GenerateCompletionWithFormat(
		ctx,
		"dependency_parse",
		"Universal Dependencies parse of one English sentence",
		fmt.Sprintf(ai.DependencyParsePrompt, line),
		&out,
		p.opts...,
	)
	if err != nil {
		return Parse{}, err
	}
	if err := out.Validate(); err != nil {
		return Parse{}, fmt.Errorf("invalid parse from oracle: %w", err)
	}
	return out, nil
}

// Ready probes the oracle when it supports health checks.
func (p *OracleParser) Ready(ctx context.Context) error {
	if p.client == nil {
		return ErrParserUnavailable
	}
	if h, ok := p.client.(healther); ok {
		return h.Health(ctx)
	}
	return nil
}

// SRLParser asks the oracle directly for verbs and role phrases, skipping
// the token level parse.
type SRLParser struct {
	client ai.Completer
	opts   []ai.GenerateOption
}

var _ LineParser = (*SRLParser)(nil)

// NewSRLParser returns a parser backed by client after probing it.
func NewSRLParser(ctx context.Context, client ai.Completer, opts ...ai.GenerateOption) (*SRLParser, error) {
	if client == nil {
		return nil, ErrParserUnavailable
	}
	if h, ok := client.(healther); ok {
		if err := h.Health(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParserUnavailable, err)
		}
	}
	return &SRLParser{client: client, opts: opts}, nil
}

type srlItem struct {
	Verb  string            `json:"verb"`
	Roles map[string]string `json:"roles"`
}

var srlStrategies = []ai.JSONStrategy{
	ai.FencedStrategy,
	ai.TaggedStrategy,
	ai.WholeStrategy,
	ai.ArraySpanStrategy,
}

// ParseLine returns the verbs the oracle found in line. An unreadable reply
// is logged and treated as a line without verbs; oracle errors are returned.
func (p *SRLParser) ParseLine(ctx context.Context, line string) ([]VerbRoles, error) {
	if strings.TrimSpace(line) == "" {
		return []VerbRoles{}, nil
	}

	opts := append([]ai.GenerateOption{ai.WithTemperature(0.1)}, p.opts...)
	resp, err := p.client.GenerateCompletion(ctx, fmt.Sprintf(ai.SRLPrompt, line), opts...)
	if err != nil {
		return nil, fmt.Errorf("srl completion: %w", err)
	}

	var items []srlItem
	if err := ai.ExtractJSON(resp, &items, srlStrategies...); err != nil {
		logger.Warn("[Extract] Unreadable SRL response", "line", line, "err", err)
		return []VerbRoles{}, nil
	}

	out := make([]VerbRoles, 0, len(items))
	for _, it := range items {
		verb := strings.TrimSpace(it.Verb)
		if verb == "" {
			continue
		}
		roles := make(map[karaka.SyntacticLabel]string, len(it.Roles))
		for label, phrase := range it.Roles {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" || strings.EqualFold(phrase, "null") {
				continue
			}
			roles[karaka.SyntacticLabel(strings.ToLower(strings.TrimSpace(label)))] = phrase
		}
		if len(roles) == 0 {
			continue
		}
		out = append(out, VerbRoles{Verb: verb, Lemma: strings.ToLower(verb), Roles: roles})
	}
	return out, nil
}
