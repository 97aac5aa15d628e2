package workspace

import (
	"path/filepath"
	"strings"
)

// Normalizer rewrites project-relative paths into workspace-absolute ones.
//
// A path whose first segment equals the project folder name is treated as
// relative to the workspace root; any other path is returned unchanged.
type Normalizer struct {
	WorkspaceRoot string
	ProjectFolder string
}

// NewNormalizer builds a Normalizer for the project located at projectRoot.
// The project folder name is the last segment of projectRoot.
func NewNormalizer(workspaceRoot, projectRoot string) Normalizer {
	return Normalizer{
		WorkspaceRoot: workspaceRoot,
		ProjectFolder: filepath.Base(filepath.Clean(projectRoot)),
	}
}

// Absolute returns p rewritten against the workspace root when it is
// project-relative, or p itself otherwise.
func (n Normalizer) Absolute(p string) string {
	if p == "" || n.ProjectFolder == "" {
		return p
	}
	slashed := strings.TrimPrefix(filepath.ToSlash(p), "/")
	first, _, _ := strings.Cut(slashed, "/")
	if first != n.ProjectFolder {
		return p
	}
	return filepath.Join(n.WorkspaceRoot, filepath.FromSlash(slashed))
}

// IsProjectRelative reports whether p would be rewritten by Absolute.
func (n Normalizer) IsProjectRelative(p string) bool {
	if p == "" || n.ProjectFolder == "" {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(filepath.ToSlash(p), "/"), "/")
	return first == n.ProjectFolder
}
