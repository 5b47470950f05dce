package agent

import "strings"

// DefaultHistoryCapacity is the number of recent planner actions kept for
// loop detection.
const DefaultHistoryCapacity = 3

// ActionHistory is a bounded ring of recent action strings. The oldest entry
// is evicted first once capacity is reached.
type ActionHistory struct {
	items    []string
	capacity int
}

func NewActionHistory(capacity int) *ActionHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &ActionHistory{items: make([]string, 0, capacity), capacity: capacity}
}

func (h *ActionHistory) Push(action string) {
	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items = h.items[:len(h.items)-1]
	}
	h.items = append(h.items, action)
}

// Items returns a copy, oldest first.
func (h *ActionHistory) Items() []string {
	return append([]string(nil), h.items...)
}

func (h *ActionHistory) Len() int {
	return len(h.items)
}

func (h *ActionHistory) Cap() int {
	return h.capacity
}

func (h *ActionHistory) Clear() {
	h.items = h.items[:0]
}

// IsLooping reports whether the history is full and every entry is the same
// action, ignoring case and surrounding whitespace.
func (h *ActionHistory) IsLooping() bool {
	if len(h.items) < h.capacity {
		return false
	}
	first := normalizeAction(h.items[0])
	for _, item := range h.items[1:] {
		if normalizeAction(item) != first {
			return false
		}
	}
	return true
}

func normalizeAction(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
