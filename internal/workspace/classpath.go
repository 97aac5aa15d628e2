package workspace

import (
	"fmt"
	"strings"
)

// EntryKind tags a resolved classpath entry.
type EntryKind string

const (
	// EntryLibrary is a jar or class folder on the classpath.
	EntryLibrary EntryKind = "library"
	// EntryProject is a dependency on another workspace project.
	EntryProject EntryKind = "project"
	// EntrySource is a source folder of the project itself.
	EntrySource EntryKind = "source"
	// EntryContainer is an unresolved container reference.
	EntryContainer EntryKind = "container"
	// EntryVariable is an unresolved variable reference.
	EntryVariable EntryKind = "variable"
)

// ParseEntryKind converts a manifest value into an EntryKind.
func ParseEntryKind(s string) (EntryKind, error) {
	switch k := EntryKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EntryLibrary, EntryProject, EntrySource, EntryContainer, EntryVariable:
		return k, nil
	}
	return "", fmt.Errorf("invalid classpath kind %q (expected library|project|source|container|variable)", s)
}

// ClasspathEntry is one resolved dependency of a project.
type ClasspathEntry struct {
	Kind EntryKind
	Path string
}

// ResolveClasspath keeps library entries only, normalised and in iteration
// order. Project-to-project dependencies are not followed.
func ResolveClasspath(entries []ClasspathEntry, n Normalizer) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Kind != EntryLibrary {
			continue
		}
		out = append(out, n.Absolute(entry.Path))
	}
	return out
}
