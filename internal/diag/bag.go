package diag

import "sort"

// Bag collects the markers produced by one build.
type Bag struct {
	items []Marker
}

func NewBag() *Bag {
	return &Bag{}
}

// Add appends m.
func (b *Bag) Add(m Marker) {
	b.items = append(b.items, m)
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Items returns the markers in insertion order. Do not modify the result.
func (b *Bag) Items() []Marker {
	if b == nil {
		return nil
	}
	return b.items
}

// HasErrors reports whether any marker has error severity.
func (b *Bag) HasErrors() bool {
	if b == nil {
		return false
	}
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// ByResource groups markers by resource path, preserving insertion order
// within each group.
func (b *Bag) ByResource() map[string][]Marker {
	out := make(map[string][]Marker)
	for _, m := range b.items {
		out[m.Resource] = append(out[m.Resource], m)
	}
	return out
}

// Sort orders markers by resource, then line, then severity (desc).
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		mi, mj := b.items[i], b.items[j]
		if mi.Resource != mj.Resource {
			return mi.Resource < mj.Resource
		}
		if mi.Line != mj.Line {
			return mi.Line < mj.Line
		}
		return mi.Severity > mj.Severity
	})
}
