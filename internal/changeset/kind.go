// Package changeset produces the candidate source files of a build from a
// full project snapshot or from an incremental delta.
package changeset

import (
	"errors"
	"fmt"
	"strings"
)

// BuildKind selects how candidate files are discovered.
type BuildKind uint8

const (
	// KindFull rebuilds every file of the project.
	KindFull BuildKind = iota + 1
	// KindIncremental rebuilds files added or changed since the previous build.
	KindIncremental
	// KindClean is recognised but not supported.
	KindClean
)

var (
	// ErrUnsupportedKind is returned for clean builds.
	ErrUnsupportedKind = errors.New("clean build is not supported")
	// ErrMissingDelta is returned when an incremental build has no delta.
	ErrMissingDelta = errors.New("incremental build without delta")
)

func (k BuildKind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindIncremental:
		return "incremental"
	case KindClean:
		return "clean"
	}
	return "unknown"
}

// ParseBuildKind converts a flag value into a BuildKind.
func ParseBuildKind(s string) (BuildKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return KindFull, nil
	case "incremental", "inc":
		return KindIncremental, nil
	case "clean":
		return KindClean, nil
	}
	return 0, fmt.Errorf("invalid build kind %q (expected full|incremental|clean)", s)
}
