// Package query answers natural language questions from the Kāraka graph.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
)

var ErrEmptyQuestion = errors.New("question is empty")

// Decomposition is a question broken into the role it asks for, the verb
// and the roles it already names.
type Decomposition struct {
	TargetKaraka karaka.Role            `json:"target_karaka"`
	Verb         string                 `json:"verb,omitempty"`
	Constraints  map[karaka.Role]string `json:"constraints"`
}

type rawDecomposition struct {
	TargetKaraka string            `json:"target_karaka"`
	Constraints  map[string]string `json:"constraints"`
	Verb         *string           `json:"verb"`
}

// Decomposer maps questions to decompositions with the completion oracle,
// falling back to interrogative heuristics.
type Decomposer struct {
	client ai.Completer
}

// NewDecomposer creates a decomposer. A nil client always uses the
// heuristics.
func NewDecomposer(client ai.Completer) *Decomposer {
	return &Decomposer{client: client}
}

func (d *Decomposer) Decompose(ctx context.Context, question string) (Decomposition, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Decomposition{}, ErrEmptyQuestion
	}
	if d.client == nil {
		return HeuristicDecompose(question), nil
	}

	prompt := fmt.Sprintf(ai.DecomposePrompt, question)
	res, err := d.client.GenerateCompletion(ctx, prompt, ai.WithTemperature(0.1))
	if err != nil {
		if ctx.Err() != nil {
			return Decomposition{}, ctx.Err()
		}
		logger.Warn("[Query] Decomposition failed, using heuristics", "err", err)
		return HeuristicDecompose(question), nil
	}

	dec, err := parseDecomposition(res)
	if err != nil {
		logger.Warn("[Query] Unusable decomposition, using heuristics", "err", err, "response", res)
		return HeuristicDecompose(question), nil
	}
	return dec, nil
}

func parseDecomposition(response string) (Decomposition, error) {
	var raw rawDecomposition
	if err := ai.ExtractJSON(response, &raw); err != nil {
		return Decomposition{}, err
	}
	target, err := karaka.ParseRole(raw.TargetKaraka)
	if err != nil {
		return Decomposition{}, err
	}

	dec := Decomposition{TargetKaraka: target, Constraints: map[karaka.Role]string{}}
	if raw.Verb != nil {
		dec.Verb = strings.ToLower(strings.TrimSpace(*raw.Verb))
	}
	for k, v := range raw.Constraints {
		role, err := karaka.ParseRole(k)
		if err != nil {
			logger.Debug("[Query] Ignoring constraint with unknown role", "role", k)
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" || role == target {
			continue
		}
		dec.Constraints[role] = v
	}
	return dec, nil
}

type interrogative struct {
	re   *regexp.Regexp
	role karaka.Role
}

// checked in order; multi-word forms first so "to whom" wins over "whom"
var interrogatives = []interrogative{
	{regexp.MustCompile(`\bby whom\b`), karaka.Karta},
	{regexp.MustCompile(`\b(to|for) whom\b`), karaka.Sampradana},
	{regexp.MustCompile(`\bfrom (where|whom)\b`), karaka.Apadana},
	{regexp.MustCompile(`\b(with|by) what\b`), karaka.Karana},
	{regexp.MustCompile(`\bhow\b`), karaka.Karana},
	{regexp.MustCompile(`\b(where|when)\b`), karaka.Adhikarana},
	{regexp.MustCompile(`\bwhom\b`), karaka.Karma},
	{regexp.MustCompile(`\bwho\b`), karaka.Karta},
	{regexp.MustCompile(`\bwhat\b`), karaka.Karma},
}

// HeuristicDecompose picks the target role from the question's
// interrogative. It finds no verb or constraints. Questions without a
// known interrogative ask for the KARMA.
func HeuristicDecompose(question string) Decomposition {
	q := strings.ToLower(question)
	target := karaka.Karma
	for _, it := range interrogatives {
		if it.re.MatchString(q) {
			target = it.role
			break
		}
	}
	return Decomposition{TargetKaraka: target, Constraints: map[karaka.Role]string{}}
}
