package karaka

import (
	"errors"
	"fmt"
	"strings"
)

// CausalLink connects two frames where the first caused the second.
type CausalLink struct {
	CauseFrame  string `json:"cause_frame"`
	EffectFrame string `json:"effect_frame"`
}

// Frame is a self-contained event record: one kriya and the text filling each
// role. Unlike the graph model it keeps the sentence text and is exchanged as
// JSON as a whole.
type Frame struct {
	FrameID      string  `json:"frame_id"`
	SentenceID   int     `json:"sentence_id"`
	SentenceText string  `json:"sentence_text"`
	Kriya        string  `json:"kriya"`
	KriyaSurface string  `json:"kriya_surface"`
	Karta        *string `json:"karta"`
	Karma        *string `json:"karma"`
	Karana       *string `json:"karana"`
	Sampradana   *string `json:"sampradana"`
	Apadana      *string `json:"apadana"`
	LocusTime    *string `json:"locus_time"`
	LocusSpace   *string `json:"locus_space"`
	LocusTopic   *string `json:"locus_topic"`

	CausalLinks []CausalLink `json:"causal_links,omitempty"`
}

// FrameSlot names one nullable role field of a Frame.
type FrameSlot string

const (
	SlotKarta      FrameSlot = "karta"
	SlotKarma      FrameSlot = "karma"
	SlotKarana     FrameSlot = "karana"
	SlotSampradana FrameSlot = "sampradana"
	SlotApadana    FrameSlot = "apadana"
	SlotLocusTime  FrameSlot = "locus_time"
	SlotLocusSpace FrameSlot = "locus_space"
	SlotLocusTopic FrameSlot = "locus_topic"
)

// FrameSlots lists the slots in display order.
var FrameSlots = []FrameSlot{
	SlotKarta, SlotKarma, SlotKarana, SlotSampradana,
	SlotApadana, SlotLocusTime, SlotLocusSpace, SlotLocusTopic,
}

var slotLabels = map[FrameSlot]string{
	SlotKarta:      "Kartā (Agent)",
	SlotKarma:      "Karma (Object)",
	SlotKarana:     "Karaṇa (Instrument)",
	SlotSampradana: "Sampradāna (Recipient)",
	SlotApadana:    "Apādāna (Source)",
	SlotLocusTime:  "Locus_Time",
	SlotLocusSpace: "Locus_Space",
	SlotLocusTopic: "Locus_Topic",
}

var slotAliases = map[string]FrameSlot{
	"agent":      SlotKarta,
	"kartā":      SlotKarta,
	"object":     SlotKarma,
	"karaṇa":     SlotKarana,
	"sampradāna": SlotSampradana,
	"apādāna":    SlotApadana,
	"instrument": SlotKarana,
	"recipient":  SlotSampradana,
	"source":     SlotApadana,
	"time":       SlotLocusTime,
	"when":       SlotLocusTime,
	"space":      SlotLocusSpace,
	"place":      SlotLocusSpace,
	"location":   SlotLocusSpace,
	"where":      SlotLocusSpace,
	"topic":      SlotLocusTopic,
}

// ParseFrameSlot accepts a slot name or an English alias such as "agent".
func ParseFrameSlot(s string) (FrameSlot, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if slot, ok := slotAliases[key]; ok {
		return slot, nil
	}
	for _, slot := range FrameSlots {
		if string(slot) == key {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown frame slot %q", s)
}

// SlotForRole maps a graph role to the frame slot holding the same participant.
// ADHIKARANA maps to the spatial locus.
func SlotForRole(r Role) FrameSlot {
	switch r {
	case Karta:
		return SlotKarta
	case Karma:
		return SlotKarma
	case Karana:
		return SlotKarana
	case Sampradana:
		return SlotSampradana
	case Apadana:
		return SlotApadana
	}
	return SlotLocusSpace
}

func (f *Frame) slot(s FrameSlot) **string {
	switch s {
	case SlotKarta:
		return &f.Karta
	case SlotKarma:
		return &f.Karma
	case SlotKarana:
		return &f.Karana
	case SlotSampradana:
		return &f.Sampradana
	case SlotApadana:
		return &f.Apadana
	case SlotLocusTime:
		return &f.LocusTime
	case SlotLocusSpace:
		return &f.LocusSpace
	case SlotLocusTopic:
		return &f.LocusTopic
	}
	return nil
}

// Get returns the value of a slot and whether it is set.
func (f *Frame) Get(s FrameSlot) (string, bool) {
	p := f.slot(s)
	if p == nil || *p == nil {
		return "", false
	}
	v := strings.TrimSpace(**p)
	return v, v != ""
}

// Set assigns a slot; an empty value clears it.
func (f *Frame) Set(s FrameSlot, value string) {
	p := f.slot(s)
	if p == nil {
		return
	}
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "null") {
		*p = nil
		return
	}
	*p = &value
}

// Roles returns the non-empty slots.
func (f *Frame) Roles() map[FrameSlot]string {
	out := make(map[FrameSlot]string)
	for _, s := range FrameSlots {
		if v, ok := f.Get(s); ok {
			out[s] = v
		}
	}
	return out
}

// Display renders the frame on one line, listing only filled roles.
func (f *Frame) Display() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", f.FrameID, f.Kriya)
	for _, s := range FrameSlots {
		if v, ok := f.Get(s); ok {
			fmt.Fprintf(&b, " | %s=%s", slotLabels[s], v)
		}
	}
	return b.String()
}

// Validate checks the fields a stored frame must carry.
func (f *Frame) Validate() error {
	var errs []error
	if strings.TrimSpace(f.FrameID) == "" {
		errs = append(errs, errors.New("frame_id is required"))
	}
	if strings.TrimSpace(f.Kriya) == "" {
		errs = append(errs, errors.New("kriya is required"))
	}
	for i, l := range f.CausalLinks {
		if l.CauseFrame == "" || l.EffectFrame == "" {
			errs = append(errs, fmt.Errorf("causal link %d is incomplete", i))
		}
	}
	return errors.Join(errs...)
}
