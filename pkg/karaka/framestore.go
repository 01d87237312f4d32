package karaka

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// FrameStore keeps frames in memory with lowercase indexes by kriya and by
// role filler.
type FrameStore struct {
	mu       sync.RWMutex
	frames   map[string]*Frame
	order    []string
	kriyas   map[string]map[string]struct{}
	entities map[string]map[string]struct{}
}

// FrameStoreStats summarizes the store contents.
type FrameStoreStats struct {
	TotalFrames    int      `json:"total_frames"`
	UniqueEntities int      `json:"unique_entities"`
	UniqueKriyas   int      `json:"unique_kriyas"`
	Kriyas         []string `json:"kriyas"`
	CausalLinks    int      `json:"causal_links"`
}

func NewFrameStore() *FrameStore {
	return &FrameStore{
		frames:   make(map[string]*Frame),
		kriyas:   make(map[string]map[string]struct{}),
		entities: make(map[string]map[string]struct{}),
	}
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func addIndex(idx map[string]map[string]struct{}, key, id string) {
	if key == "" {
		return
	}
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeIndex(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

// Add validates and stores a frame, replacing any frame with the same id.
func (s *FrameStore) Add(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.frames[f.FrameID]; ok {
		s.unindex(old)
	} else {
		s.order = append(s.order, f.FrameID)
	}
	cp := f
	s.frames[f.FrameID] = &cp
	addIndex(s.kriyas, normKey(f.Kriya), f.FrameID)
	for _, v := range cp.Roles() {
		addIndex(s.entities, normKey(v), f.FrameID)
	}
	return nil
}

func (s *FrameStore) unindex(f *Frame) {
	removeIndex(s.kriyas, normKey(f.Kriya), f.FrameID)
	for _, v := range f.Roles() {
		removeIndex(s.entities, normKey(v), f.FrameID)
	}
}

// Get returns a copy of the frame with the given id.
func (s *FrameStore) Get(id string) (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[id]
	if !ok {
		return Frame{}, false
	}
	return *f, true
}

// All returns every frame in insertion order.
func (s *FrameStore) All() []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Frame, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.frames[id])
	}
	return out
}

func (s *FrameStore) collect(ids map[string]struct{}) []Frame {
	out := make([]Frame, 0, len(ids))
	for _, id := range s.order {
		if _, ok := ids[id]; ok {
			out = append(out, *s.frames[id])
		}
	}
	return out
}

// FindByKriya returns frames whose kriya matches, ignoring case.
func (s *FrameStore) FindByKriya(kriya string) []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.kriyas[normKey(kriya)])
}

// FindByEntity returns frames in which any role is filled exactly by entity.
func (s *FrameStore) FindByEntity(entity string) []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.entities[normKey(entity)])
}

// FindByRole returns frames where the slot named by role contains value as a
// case-insensitive substring. Unknown role names match nothing.
func (s *FrameStore) FindByRole(role, value string) []Frame {
	slot, err := ParseFrameSlot(role)
	if err != nil {
		if r, rerr := ParseRole(role); rerr == nil {
			slot = SlotForRole(r)
		} else {
			return nil
		}
	}
	needle := normKey(value)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Frame
	for _, id := range s.order {
		f := s.frames[id]
		v, ok := f.Get(slot)
		if ok && strings.Contains(strings.ToLower(v), needle) {
			out = append(out, *f)
		}
	}
	return out
}

// CausalNeighbors returns the frames one causal hop away from id, in either
// direction.
func (s *FrameStore) CausalNeighbors(id string) []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{})
	for _, fid := range s.order {
		for _, l := range s.frames[fid].CausalLinks {
			switch id {
			case l.CauseFrame:
				ids[l.EffectFrame] = struct{}{}
			case l.EffectFrame:
				ids[l.CauseFrame] = struct{}{}
			}
		}
	}
	delete(ids, id)
	return s.collect(ids)
}

// Clear removes every frame.
func (s *FrameStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = make(map[string]*Frame)
	s.order = nil
	s.kriyas = make(map[string]map[string]struct{})
	s.entities = make(map[string]map[string]struct{})
}

func (s *FrameStore) Stats() FrameStoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kriyas := make([]string, 0, len(s.kriyas))
	for k := range s.kriyas {
		kriyas = append(kriyas, k)
	}
	slices.Sort(kriyas)
	links := 0
	for _, f := range s.frames {
		links += len(f.CausalLinks)
	}
	return FrameStoreStats{
		TotalFrames:    len(s.frames),
		UniqueEntities: len(s.entities),
		UniqueKriyas:   len(s.kriyas),
		Kriyas:         kriyas,
		CausalLinks:    links,
	}
}

// Save writes all frames as an indented JSON array.
func (s *FrameStore) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.All())
}

// Load reads a JSON array written by Save and adds every frame.
func (s *FrameStore) Load(r io.Reader) error {
	var frames []Frame
	if err := json.NewDecoder(r).Decode(&frames); err != nil {
		return fmt.Errorf("decode frames: %w", err)
	}
	for _, f := range frames {
		if err := s.Add(f); err != nil {
			return fmt.Errorf("frame %q: %w", f.FrameID, err)
		}
	}
	return nil
}
