package wrap

import "sync"

// CacheSlot holds at most one memoized result for a single (instance, method)
// pair. The computed flag is distinct from the value so a legitimately nil,
// zero, or empty result is never mistaken for "not yet computed". Slots are
// one-shot: once computed the value is immutable.
type CacheSlot struct {
	mu       sync.Mutex
	computed bool
	value    any
}

// Computed reports whether the slot holds a memoized value.
func (s *CacheSlot) Computed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computed
}

type slotID struct {
	recv   any
	method string
}

// slotTable maps instance identity to its cache slots. It is owned by the
// per-type wrapper table, never by a wrapper entry, so wrappers stay stateless
// and shareable across instances.
type slotTable struct {
	mu    sync.Mutex
	slots map[slotID]*CacheSlot
}

func newSlotTable() *slotTable {
	return &slotTable{slots: make(map[slotID]*CacheSlot)}
}

// acquire returns the slot for (recv, method), creating it on first use.
// recv must be comparable; pointer receivers always are.
func (t *slotTable) acquire(recv any, method string) *CacheSlot {
	id := slotID{recv: recv, method: method}
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot, ok := t.slots[id]; ok {
		return slot
	}
	slot := &CacheSlot{}
	t.slots[id] = slot
	return slot
}

func (t *slotTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
