package changeset

import (
	"iter"
	"strings"

	"xbuild/internal/workspace"
)

// SourceSuffix is the case-sensitive suffix of files handed to the tool.
const SourceSuffix = ".java"

// ChangeSet yields the resources a build should consider. Candidates may be
// ranged over any number of times and always yields the same sequence.
type ChangeSet interface {
	Candidates() iter.Seq[workspace.Resource]
}

// FullSnapshot is every resource of the project, in traversal order.
type FullSnapshot struct {
	Resources []workspace.Resource
}

// Candidates yields all resources of the snapshot.
func (s FullSnapshot) Candidates() iter.Seq[workspace.Resource] {
	return func(yield func(workspace.Resource) bool) {
		for _, res := range s.Resources {
			if !yield(res) {
				return
			}
		}
	}
}

// DeltaKind describes how a resource changed since the previous build.
type DeltaKind uint8

const (
	// DeltaAdded marks a new resource.
	DeltaAdded DeltaKind = iota + 1
	// DeltaChanged marks a modified resource.
	DeltaChanged
	// DeltaRemoved marks a deleted resource.
	DeltaRemoved
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaAdded:
		return "added"
	case DeltaChanged:
		return "changed"
	case DeltaRemoved:
		return "removed"
	}
	return "unknown"
}

// Delta is one entry of a DeltaSnapshot.
type Delta struct {
	Resource workspace.Resource
	Kind     DeltaKind
}

// DeltaSnapshot lists the resources touched since the previous build.
type DeltaSnapshot struct {
	Entries []Delta
}

// Candidates yields added and changed resources. Removed entries are
// skipped and their markers are left untouched.
func (s DeltaSnapshot) Candidates() iter.Seq[workspace.Resource] {
	return func(yield func(workspace.Resource) bool) {
		for _, entry := range s.Entries {
			switch entry.Kind {
			case DeltaAdded, DeltaChanged:
				if !yield(entry.Resource) {
					return
				}
			}
		}
	}
}

// Removed returns the resources the delta reports as deleted.
func (s DeltaSnapshot) Removed() []workspace.Resource {
	var out []workspace.Resource
	for _, entry := range s.Entries {
		if entry.Kind == DeltaRemoved {
			out = append(out, entry.Resource)
		}
	}
	return out
}

// For picks the change set for a build of the given kind. The full snapshot
// is only requested for full builds.
func For(kind BuildKind, delta *DeltaSnapshot, full func() (FullSnapshot, error)) (ChangeSet, error) {
	switch kind {
	case KindFull:
		snap, err := full()
		if err != nil {
			return nil, err
		}
		return snap, nil
	case KindIncremental:
		if delta == nil {
			return nil, ErrMissingDelta
		}
		return *delta, nil
	case KindClean:
		return nil, ErrUnsupportedKind
	}
	return nil, ErrUnsupportedKind
}

// IsSource reports whether res is a file the external tool compiles.
func IsSource(res workspace.Resource) bool {
	return res.IsFile() && strings.HasSuffix(res.Name(), SourceSuffix)
}

// Sources returns the source files of cs in candidate order. A resource
// reported more than once is kept at its first position.
func Sources(cs ChangeSet) []workspace.Resource {
	var out []workspace.Resource
	seen := make(map[string]struct{})
	for res := range cs.Candidates() {
		if !IsSource(res) {
			continue
		}
		if _, ok := seen[res.FullPath]; ok {
			continue
		}
		seen[res.FullPath] = struct{}{}
		out = append(out, res)
	}
	return out
}
