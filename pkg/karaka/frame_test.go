package karaka

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrame(id, kriya string, slots map[FrameSlot]string) Frame {
	f := Frame{FrameID: id, Kriya: kriya, KriyaSurface: kriya}
	for s, v := range slots {
		f.Set(s, v)
	}
	return f
}

func TestFrameJSON(t *testing.T) {
	f := newFrame("F1", "give", map[FrameSlot]string{SlotKarta: "Rama", SlotSampradana: "Sita"})
	f.CausalLinks = []CausalLink{{CauseFrame: "F0", EffectFrame: "F1"}}

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"karma":null`)
	assert.Contains(t, string(data), `"cause_frame":"F0"`)

	var back Frame
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f.Roles(), back.Roles())
	assert.Equal(t, f.CausalLinks, back.CausalLinks)
}

func TestFrameSetAndDisplay(t *testing.T) {
	f := newFrame("F2", "shoot", nil)
	f.Set(SlotKarana, "the mighty bow")
	f.Set(SlotKarma, "null")

	_, ok := f.Get(SlotKarma)
	assert.False(t, ok)
	assert.Equal(t, "F2: shoot | Karaṇa (Instrument)=the mighty bow", f.Display())
}

func TestFrameValidate(t *testing.T) {
	assert.NoError(t, (&Frame{FrameID: "F1", Kriya: "go"}).Validate())
	err := (&Frame{CausalLinks: []CausalLink{{CauseFrame: "F1"}}}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kriya is required")
	assert.Contains(t, err.Error(), "causal link 0")
}

func TestFrameStore(t *testing.T) {
	s := NewFrameStore()
	require.NoError(t, s.Add(newFrame("F1", "Give", map[FrameSlot]string{
		SlotKarta: "Rama", SlotKarma: "book", SlotSampradana: "Sita",
	})))
	f2 := newFrame("F2", "read", map[FrameSlot]string{SlotKarta: "Sita", SlotKarma: "book"})
	f2.CausalLinks = []CausalLink{{CauseFrame: "F1", EffectFrame: "F2"}}
	require.NoError(t, s.Add(f2))
	require.Error(t, s.Add(Frame{FrameID: "F3"}))

	assert.Len(t, s.FindByKriya("give"), 1)
	assert.Len(t, s.FindByEntity("BOOK"), 2)
	assert.Len(t, s.FindByRole("agent", "sit"), 1)
	assert.Len(t, s.FindByRole("KARTA", "rama"), 1)
	assert.Empty(t, s.FindByRole("nonsense", "rama"))

	neighbors := s.CausalNeighbors("F1")
	require.Len(t, neighbors, 1)
	assert.Equal(t, "F2", neighbors[0].FrameID)

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalFrames)
	assert.Equal(t, []string{"give", "read"}, stats.Kriyas)
	assert.Equal(t, 3, stats.UniqueEntities)
	assert.Equal(t, 1, stats.CausalLinks)

	t.Run("replacing a frame reindexes it", func(t *testing.T) {
		require.NoError(t, s.Add(newFrame("F1", "offer", map[FrameSlot]string{SlotKarta: "Rama"})))
		assert.Empty(t, s.FindByKriya("give"))
		assert.Len(t, s.FindByEntity("book"), 1)
		assert.Len(t, s.All(), 2)
	})

	t.Run("save and load", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Save(&buf))

		loaded := NewFrameStore()
		require.NoError(t, loaded.Load(&buf))
		assert.Equal(t, s.Stats(), loaded.Stats())
	})

	s.Clear()
	assert.Equal(t, 0, s.Stats().TotalFrames)
}
