package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/karaka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuickEventiveCheck(t *testing.T) {
	assert.Equal(t, Stative, QuickEventiveCheck("Paris is the capital. It is a city."))
	assert.Equal(t, Stative, QuickEventiveCheck("Ram is a teacher."))
	assert.Equal(t, Uncertain, QuickEventiveCheck("Ram is a teacher who gave lessons."))
	assert.Equal(t, Uncertain, QuickEventiveCheck("Ram ate the mango."))
}

const frameReplyText = `<reasoning>active voice, Arjuna is the agent</reasoning>
<json>
{"kriya": "Shoot", "kriya_surface": "shot", "prayoga": "active", "karta": "Arjuna", "karma": "the arrow",
 "karana": "the mighty bow", "sampradana": null, "apadana": null, "locus_time": "at dawn",
 "locus_space": null, "locus_topic": "null"}
</json>`

func TestFrameExtractor_Extract(t *testing.T) {
	fc := &fakeCompleter{replies: map[string]string{"Pāṇinian": frameReplyText}}
	fe := NewFrameExtractor(fc)

	f, err := fe.Extract(context.Background(), 2, "Arjuna shot the arrow with the mighty bow at dawn.")
	require.NoError(t, err)
	assert.Equal(t, "F2", f.FrameID)
	assert.Equal(t, "shoot", f.Kriya)
	assert.Equal(t, map[karaka.FrameSlot]string{
		karaka.SlotKarta:     "Arjuna",
		karaka.SlotKarma:     "the arrow",
		karaka.SlotKarana:    "the mighty bow",
		karaka.SlotLocusTime: "at dawn",
	}, f.Roles())
}

func TestFrameExtractor_ExtractText(t *testing.T) {
	fc := &fakeCompleter{replies: map[string]string{
		"EVENTIVE or STATIVE": `{"type": "EVENTIVE", "reason": "shooting is an action"}`,
		"Pāṇinian":            frameReplyText,
	}}
	fe := NewFrameExtractor(fc)
	store := karaka.NewFrameStore()

	results, err := fe.ExtractText(context.Background(), "Arjuna is a prince. Arjuna shot the arrow.", store)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Eventive)
	assert.True(t, results[1].Eventive)
	require.NotNil(t, results[1].Frame)
	assert.Equal(t, "F2", results[1].Frame.FrameID)

	assert.Len(t, store.FindByKriya("shoot"), 1)
}

func TestFrameExtractor_OracleErrorDefaultsEventive(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("offline")}
	fe := NewFrameExtractor(fc)
	ok, reason := fe.IsEventive(context.Background(), "Ram ate the mango.")
	assert.True(t, ok)
	assert.Contains(t, reason, "defaulting")
}
