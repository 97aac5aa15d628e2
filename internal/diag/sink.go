package diag

import "xbuild/internal/workspace"

// Sink is where markers are recorded. Implementations may reject a marker,
// for example when its resource has been deleted; callers treat that as a
// per-marker failure.
type Sink interface {
	// Clear removes the markers of type typ from res.
	Clear(res workspace.Resource, typ string) error
	// Add attaches m to res.
	Add(res workspace.Resource, m Marker) error
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Clear(workspace.Resource, string) error { return nil }

func (NopSink) Add(workspace.Resource, Marker) error { return nil }

// BagSink records added markers into Bag and ignores clears.
type BagSink struct{ Bag *Bag }

func (s BagSink) Clear(workspace.Resource, string) error { return nil }

func (s BagSink) Add(_ workspace.Resource, m Marker) error {
	if s.Bag != nil {
		s.Bag.Add(m)
	}
	return nil
}
