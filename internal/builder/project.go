package builder

import (
	"xbuild/internal/changeset"
	"xbuild/internal/workspace"
)

// Project is the host's view of the project being built.
type Project interface {
	// Name is the project folder name.
	Name() string
	// Location is the absolute project root.
	Location() string
	// WorkspaceRoot is the absolute workspace root.
	WorkspaceRoot() string
	// IsJavaProject reports whether the project has the java nature.
	IsJavaProject() bool
	// ResolvedClasspath lists the project's resolved dependencies.
	ResolvedClasspath() ([]workspace.ClasspathEntry, error)
	// OutputLocation is where compiled output goes; it may be project-relative.
	OutputLocation() (string, error)
	// Snapshot lists every resource of the project.
	Snapshot() (changeset.FullSnapshot, error)
}
