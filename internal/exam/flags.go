package exam

import "sort"

// FlagSet is the set of question ids marked for later review.
type FlagSet struct {
	ids map[string]struct{}
}

func NewFlagSet() *FlagSet {
	return &FlagSet{ids: make(map[string]struct{})}
}

// Toggle flips membership and reports whether id is now flagged.
func (f *FlagSet) Toggle(id string) bool {
	if _, ok := f.ids[id]; ok {
		delete(f.ids, id)
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *FlagSet) IsFlagged(id string) bool {
	_, ok := f.ids[id]
	return ok
}

// IDs returns flagged ids in sorted order.
func (f *FlagSet) IDs() []string {
	out := make([]string, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
