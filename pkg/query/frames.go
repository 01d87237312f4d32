package query

import (
	"context"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
)

const (
	NoFramesText  = "No events have been extracted yet."
	FrameDocument = "frames"
)

// FrameAnswerer answers questions from a FrameStore. Frames matching the
// question's verb and constraints are searched for the target role; when
// none has it, frames one causal hop away are tried.
type FrameAnswerer struct {
	frames      *karaka.FrameStore
	decomposer  *Decomposer
	synthesizer *Synthesizer
}

func NewFrameAnswerer(frames *karaka.FrameStore, client ai.Completer) *FrameAnswerer {
	return &FrameAnswerer{
		frames:      frames,
		decomposer:  NewDecomposer(client),
		synthesizer: NewSynthesizer(client),
	}
}

// slotsFor lists the frame slots a role can occupy. ADHIKARANA covers every
// locus.
func slotsFor(r karaka.Role) []karaka.FrameSlot {
	if r == karaka.Adhikarana {
		return []karaka.FrameSlot{karaka.SlotLocusSpace, karaka.SlotLocusTime, karaka.SlotLocusTopic}
	}
	return []karaka.FrameSlot{karaka.SlotForRole(r)}
}

func frameHas(f karaka.Frame, r karaka.Role, value string) bool {
	for _, slot := range slotsFor(r) {
		if v, ok := f.Get(slot); ok && containsFold(v, value) {
			return true
		}
	}
	return false
}

func frameMatches(f karaka.Frame, d Decomposition) bool {
	if !store.VerbMatches(d.Verb, f.KriyaSurface, f.Kriya) {
		return false
	}
	for role, value := range d.Constraints {
		if !frameHas(f, role, value) {
			return false
		}
	}
	return true
}

func frameResults(frames []karaka.Frame, target karaka.Role) []Result {
	var out []Result
	for _, f := range frames {
		for _, slot := range slotsFor(target) {
			v, ok := f.Get(slot)
			if !ok {
				continue
			}
			out = append(out, Result{
				Match: store.Match{
					Answer:     v,
					Role:       target,
					Confidence: 1,
					LineNumber: f.SentenceID,
					DocumentID: FrameDocument,
					ActionID:   f.FrameID,
					Verb:       f.Kriya,
				},
				LineText:     f.SentenceText,
				DocumentName: FrameDocument,
			})
			break
		}
	}
	return out
}

func (a *FrameAnswerer) Answer(ctx context.Context, question string) (Answer, error) {
	all := a.frames.All()
	if len(all) == 0 {
		return Answer{Text: NoFramesText, Sources: []Source{}}, nil
	}

	d, err := a.decomposer.Decompose(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	var candidates []karaka.Frame
	for _, f := range all {
		if frameMatches(f, d) {
			candidates = append(candidates, f)
		}
	}

	results := frameResults(candidates, d.TargetKaraka)
	if len(results) == 0 {
		seen := map[string]bool{}
		var hop []karaka.Frame
		for _, c := range candidates {
			for _, n := range a.frames.CausalNeighbors(c.FrameID) {
				if !seen[n.FrameID] {
					seen[n.FrameID] = true
					hop = append(hop, n)
				}
			}
		}
		results = frameResults(hop, d.TargetKaraka)
	}

	return a.synthesizer.Synthesize(ctx, question, d, results), nil
}
