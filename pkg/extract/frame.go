package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
)

// Eventiveness is the outcome of the quick stative check.
type Eventiveness int

const (
	Uncertain Eventiveness = iota
	Eventive
	Stative
)

var stativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bis\s+an?\b`),
	regexp.MustCompile(`\bwas\s+a\b`),
	regexp.MustCompile(`\bare\s+the\b`),
	regexp.MustCompile(`\bwere\s+the\b`),
	regexp.MustCompile(`\bhas\s+been\b`),
}

var commonActionVerbs = map[string]bool{
	"ate": true, "ran": true, "went": true, "said": true, "made": true, "gave": true,
	"took": true, "came": true, "saw": true, "got": true, "put": true, "found": true,
	"told": true, "asked": true, "used": true, "tried": true, "left": true, "called": true,
}

// QuickEventiveCheck classifies obvious copular sentences as stative
// without an oracle call. Anything else is Uncertain.
func QuickEventiveCheck(sentence string) Eventiveness {
	lower := strings.ToLower(strings.TrimSpace(sentence))
	for _, re := range stativePatterns {
		if !re.MatchString(lower) {
			continue
		}
		for _, w := range strings.Fields(lower) {
			if commonActionVerbs[strings.Trim(w, ".,;:!?")] {
				return Uncertain
			}
		}
		return Stative
	}
	return Uncertain
}

type eventiveReply struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type frameReply struct {
	Kriya        string  `json:"kriya"`
	KriyaSurface string  `json:"kriya_surface"`
	Prayoga      string  `json:"prayoga"`
	Karta        *string `json:"karta"`
	Karma        *string `json:"karma"`
	Karana       *string `json:"karana"`
	Sampradana   *string `json:"sampradana"`
	Apadana      *string `json:"apadana"`
	LocusTime    *string `json:"locus_time"`
	LocusSpace   *string `json:"locus_space"`
	LocusTopic   *string `json:"locus_topic"`
}

// FrameExtractor turns eventive sentences into karaka.Frame records.
type FrameExtractor struct {
	client ai.Completer
	opts   []ai.GenerateOption
}

// NewFrameExtractor returns a FrameExtractor backed by client.
func NewFrameExtractor(client ai.Completer, opts ...ai.GenerateOption) *FrameExtractor {
	return &FrameExtractor{client: client, opts: opts}
}

// IsEventive decides whether sentence describes an action. Oracle failures
// default to eventive so no sentence is lost.
func (e *FrameExtractor) IsEventive(ctx context.Context, sentence string) (bool, string) {
	if QuickEventiveCheck(sentence) == Stative {
		return false, "stative pattern detected"
	}
	resp, err := e.client.GenerateCompletion(ctx, fmt.Sprintf(ai.EventivePrompt, sentence), e.opts...)
	if err != nil {
		return true, fmt.Sprintf("classification error, defaulting to eventive: %v", err)
	}
	var r eventiveReply
	if err := ai.ExtractJSON(resp, &r); err != nil {
		return true, "unreadable classification, defaulting to eventive"
	}
	return strings.EqualFold(strings.TrimSpace(r.Type), "EVENTIVE"), r.Reason
}

// Extract produces the frame of one sentence. The frame id is "F<id>".
func (e *FrameExtractor) Extract(ctx context.Context, sentenceID int, sentence string) (karaka.Frame, error) {
	resp, err := e.client.GenerateCompletion(ctx, fmt.Sprintf(ai.FramePrompt, sentence), e.opts...)
	if err != nil {
		return karaka.Frame{}, fmt.Errorf("frame completion: %w", err)
	}
	var r frameReply
	if err := ai.ExtractJSON(resp, &r); err != nil {
		return karaka.Frame{}, fmt.Errorf("frame reply: %w", err)
	}

	f := karaka.Frame{
		FrameID:      fmt.Sprintf("F%d", sentenceID),
		SentenceID:   sentenceID,
		SentenceText: sentence,
		Kriya:        strings.ToLower(strings.TrimSpace(r.Kriya)),
		KriyaSurface: strings.TrimSpace(r.KriyaSurface),
	}
	if f.Kriya == "" {
		f.Kriya = "unknown"
	}
	for slot, v := range map[karaka.FrameSlot]*string{
		karaka.SlotKarta:      r.Karta,
		karaka.SlotKarma:      r.Karma,
		karaka.SlotKarana:     r.Karana,
		karaka.SlotSampradana: r.Sampradana,
		karaka.SlotApadana:    r.Apadana,
		karaka.SlotLocusTime:  r.LocusTime,
		karaka.SlotLocusSpace: r.LocusSpace,
		karaka.SlotLocusTopic: r.LocusTopic,
	} {
		if v != nil {
			f.Set(slot, *v)
		}
	}
	return f, nil
}

// FrameResult reports what happened to one sentence.
type FrameResult struct {
	SentenceID int
	Sentence   string
	Eventive   bool
	Reason     string
	Frame      *karaka.Frame
	Err        error
}

// ExtractText splits text into sentences, drops stative ones and adds a
// frame per remaining sentence to store. Sentence ids start at 1.
func (e *FrameExtractor) ExtractText(ctx context.Context, text string, store *karaka.FrameStore) ([]FrameResult, error) {
	sentences := SplitSentences(text)
	results := make([]FrameResult, 0, len(sentences))
	for i, s := range sentences {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := FrameResult{SentenceID: i + 1, Sentence: s}
		res.Eventive, res.Reason = e.IsEventive(ctx, s)
		if !res.Eventive {
			logger.Debug("[Frame] Skipping stative sentence", "sentence_id", res.SentenceID, "reason", res.Reason)
			results = append(results, res)
			continue
		}

		f, err := e.Extract(ctx, res.SentenceID, s)
		if err != nil {
			logger.Warn("[Frame] Extraction failed", "sentence_id", res.SentenceID, "err", err)
			res.Err = err
			results = append(results, res)
			continue
		}
		if store != nil {
			if err := store.Add(f); err != nil {
				res.Err = err
				results = append(results, res)
				continue
			}
		}
		res.Frame = &f
		results = append(results, res)
	}
	return results, nil
}
