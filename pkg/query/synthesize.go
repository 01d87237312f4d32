package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
)

const (
	NoAnswerText       = "I couldn't find an answer in the knowledge graph."
	DefaultEvidenceTop = 5
)

// Source cites the line an answer came from.
type Source struct {
	LineNumber   int     `json:"line_number"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
}

type Answer struct {
	Text          string        `json:"answer"`
	Confidence    float64       `json:"confidence"`
	Sources       []Source      `json:"sources"`
	TargetKaraka  karaka.Role   `json:"target_karaka"`
	Decomposition Decomposition `json:"decomposition"`
}

// Synthesizer phrases answers from results. Without a client, or when the
// client fails, answers are listed as "answer (ROLE)".
type Synthesizer struct {
	client ai.Completer
	top    int
}

func NewSynthesizer(client ai.Completer) *Synthesizer {
	return &Synthesizer{client: client, top: DefaultEvidenceTop}
}

// Synthesize builds the answer. results must be ordered best first.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, d Decomposition, results []Result) Answer {
	ans := Answer{
		TargetKaraka:  d.TargetKaraka,
		Decomposition: d,
		Sources:       []Source{},
	}
	if len(results) == 0 {
		ans.Text = NoAnswerText
		return ans
	}
	ans.Confidence = results[0].Confidence

	withText := make([]Result, 0, len(results))
	for _, r := range results {
		if r.LineText != "" {
			withText = append(withText, r)
		}
	}
	for _, r := range withText {
		ans.Sources = append(ans.Sources, sourceFor(r))
	}

	top := results
	if len(withText) > 0 {
		top = withText
	}
	if len(top) > s.top {
		top = top[:s.top]
	}

	if len(withText) == 0 || s.client == nil {
		ans.Text = listAnswers(top)
		return ans
	}

	prompt := fmt.Sprintf(ai.SynthesisPrompt, question, d.TargetKaraka.English(), evidence(top))
	text, err := s.client.GenerateCompletion(ctx, prompt, ai.WithTemperature(0.3))
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("[Query] Synthesis failed, listing answers", "err", err)
		ans.Text = listAnswers(top)
		return ans
	}
	ans.Text = strings.TrimSpace(text)
	return ans
}

func sourceFor(r Result) Source {
	name := r.DocumentName
	if name == "" {
		name = r.DocumentID
	}
	return Source{
		LineNumber:   r.LineNumber,
		Text:         r.LineText,
		Confidence:   r.Confidence,
		DocumentID:   r.DocumentID,
		DocumentName: name,
	}
}

func evidence(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s, %.2f): %q\n", r.Answer, r.Role, r.Confidence, r.LineText)
	}
	return b.String()
}

// listAnswers renders distinct answers as "Rama (KARTA), Lakshmana (KARTA)".
func listAnswers(results []Result) string {
	seen := map[string]bool{}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		key := strings.ToLower(r.Answer)
		if seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Answer, r.Role))
	}
	return strings.Join(parts, ", ")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}
