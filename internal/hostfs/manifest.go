// Package hostfs is a filesystem-backed host for the builder: it reads the
// project description from project.toml, walks the project tree for full
// builds, derives deltas from a digest snapshot and persists markers.
package hostfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"xbuild/internal/workspace"
)

// ManifestName is the per-project description file.
const ManifestName = "project.toml"

// JavaNature marks a project the builder handles.
const JavaNature = "java"

// DefaultOutput is used when [project].output is omitted.
const DefaultOutput = "bin"

// ErrNoManifest is returned when a directory has no project.toml.
var ErrNoManifest = errors.New("no " + ManifestName + " found")

// Manifest is the decoded project.toml.
type Manifest struct {
	Project   projectSection  `toml:"project"`
	Classpath []classpathItem `toml:"classpath"`
}

type projectSection struct {
	Natures []string `toml:"natures"`
	Output  string   `toml:"output"`
	Exclude []string `toml:"exclude"`
}

type classpathItem struct {
	Kind string `toml:"kind"`
	Path string `toml:"path"`
}

// LoadManifest reads dir/project.toml.
func LoadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, fmt.Errorf("%s: %w", dir, ErrNoManifest)
		}
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return Manifest{}, fmt.Errorf("%s: missing [project]", path)
	}
	for i, item := range m.Classpath {
		if _, err := workspace.ParseEntryKind(item.Kind); err != nil {
			return Manifest{}, fmt.Errorf("%s: classpath[%d]: %w", path, i, err)
		}
		if strings.TrimSpace(item.Path) == "" {
			return Manifest{}, fmt.Errorf("%s: classpath[%d]: missing path", path, i)
		}
	}
	return m, nil
}

// HasNature reports whether the manifest declares nature.
func (m Manifest) HasNature(nature string) bool {
	return slices.ContainsFunc(m.Project.Natures, func(n string) bool {
		return strings.EqualFold(strings.TrimSpace(n), nature)
	})
}

// Entries converts the [[classpath]] tables.
func (m Manifest) Entries() ([]workspace.ClasspathEntry, error) {
	out := make([]workspace.ClasspathEntry, 0, len(m.Classpath))
	for _, item := range m.Classpath {
		kind, err := workspace.ParseEntryKind(item.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, workspace.ClasspathEntry{Kind: kind, Path: strings.TrimSpace(item.Path)})
	}
	return out, nil
}

const skeleton = `[project]
natures = ["java"]
# Compiled classes; project-relative or absolute.
output = "bin"
# Directories skipped by full builds, relative to the project root.
exclude = []

# Resolved dependencies passed to the build tool. Paths that start with
# /<project>/ are resolved against the workspace root.
#
# [[classpath]]
# kind = "library"
# path = "/%s/lib/example.jar"
`

// WriteSkeleton creates dir/project.toml unless one already exists.
func WriteSkeleton(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(abs, ManifestName)
	// #nosec G304 -- path is built from the user-supplied project directory
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s already exists", path)
		}
		return "", err
	}
	if _, err := fmt.Fprintf(f, skeleton, filepath.Base(abs)); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
