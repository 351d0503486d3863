package browser

import (
	"github.com/objectdesk/objectdesk/internal/models"
)

// Modifiers are the keyboard modifiers held during a click. Platform is Ctrl,
// or Cmd on macOS; front ends map their native modifier onto it.
type Modifiers struct {
	Shift    bool
	Platform bool
}

// Selection is the primary entry, the ordered multi-select set and the range
// anchor. It is not safe for concurrent use; Controller guards it.
type Selection struct {
	primary string
	keys    []string
	members map[string]struct{}
	anchor  int
}

// NewSelection returns an empty selection with no anchor.
func NewSelection() *Selection {
	return &Selection{members: make(map[string]struct{}), anchor: -1}
}

// Click applies a click on the displayed row at index. Out-of-range indexes
// are ignored. Returns true when the selection changed.
func (s *Selection) Click(view []models.Entry, index int, mods Modifiers) bool {
	if index < 0 || index >= len(view) {
		return false
	}

	switch {
	case mods.Shift && s.anchor >= 0 && s.anchor < len(view):
		s.selectRange(view, index, mods.Platform)
	case mods.Platform && !mods.Shift:
		s.toggle(view[index].Key)
		s.anchor = index
	default:
		s.SelectOnly(view[index].Key, index)
	}
	return true
}

// SelectOnly makes key the sole member and primary and moves the anchor.
func (s *Selection) SelectOnly(key string, anchor int) {
	s.keys = []string{key}
	s.members = map[string]struct{}{key: {}}
	s.primary = key
	s.anchor = anchor
}

func (s *Selection) toggle(key string) {
	if _, ok := s.members[key]; !ok {
		s.add(key)
		s.primary = key
		return
	}

	delete(s.members, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	if s.primary == key {
		s.primary = ""
		if n := len(s.keys); n > 0 {
			s.primary = s.keys[n-1]
		}
	}
}

func (s *Selection) selectRange(view []models.Entry, index int, union bool) {
	lo, hi := s.anchor, index
	if lo > hi {
		lo, hi = hi, lo
	}
	if !union {
		s.keys = nil
		s.members = make(map[string]struct{})
	}
	for i := lo; i <= hi; i++ {
		s.add(view[i].Key)
	}
	s.primary = view[index].Key
}

func (s *Selection) add(key string) {
	if _, ok := s.members[key]; ok {
		return
	}
	s.members[key] = struct{}{}
	s.keys = append(s.keys, key)
}

// Clear drops every member and the anchor.
func (s *Selection) Clear() {
	s.primary = ""
	s.keys = nil
	s.members = make(map[string]struct{})
	s.anchor = -1
}

// Retain drops members for which keep returns false, promoting a new primary
// the same way a toggle-off does.
func (s *Selection) Retain(keep func(key string) bool) bool {
	changed := false
	for _, k := range append([]string(nil), s.keys...) {
		if !keep(k) {
			s.toggle(k)
			changed = true
		}
	}
	return changed
}

// Primary returns the primary key, or "" when nothing is selected.
func (s *Selection) Primary() string { return s.primary }

// Keys returns the members in the order they were added.
func (s *Selection) Keys() []string { return append([]string(nil), s.keys...) }

// Len returns the number of selected entries.
func (s *Selection) Len() int { return len(s.keys) }

// Contains reports membership.
func (s *Selection) Contains(key string) bool {
	_, ok := s.members[key]
	return ok
}

// Anchor returns the displayed index used for shift ranges, -1 when unset.
func (s *Selection) Anchor() int { return s.anchor }
