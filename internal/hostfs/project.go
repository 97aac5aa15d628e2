package hostfs

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"xbuild/internal/changeset"
	"xbuild/internal/workspace"
)

// Project is a project directory described by project.toml.
type Project struct {
	dir      string
	name     string
	ws       string
	manifest Manifest
	skip     map[string]struct{}
}

// OpenProject loads the project rooted at dir. The workspace root is the
// parent of dir.
func OpenProject(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	m, err := LoadManifest(abs)
	if err != nil {
		return nil, err
	}
	p := &Project{
		dir:      abs,
		name:     filepath.Base(abs),
		ws:       filepath.Dir(abs),
		manifest: m,
		skip:     map[string]struct{}{".git": {}, ".xbuild": {}},
	}
	for _, ex := range m.Project.Exclude {
		if ex = strings.Trim(filepath.ToSlash(strings.TrimSpace(ex)), "/"); ex != "" {
			p.skip[ex] = struct{}{}
		}
	}
	return p, nil
}

// Exclude adds a project-relative directory to skip during Snapshot.
func (p *Project) Exclude(rel string) {
	if rel = strings.Trim(filepath.ToSlash(rel), "/"); rel != "" && rel != "." {
		p.skip[rel] = struct{}{}
	}
}

func (p *Project) Name() string          { return p.name }
func (p *Project) Location() string      { return p.dir }
func (p *Project) WorkspaceRoot() string { return p.ws }
func (p *Project) IsJavaProject() bool   { return p.manifest.HasNature(JavaNature) }

// Manifest returns the decoded project.toml.
func (p *Project) Manifest() Manifest { return p.manifest }

// ResolvedClasspath returns the [[classpath]] entries.
func (p *Project) ResolvedClasspath() ([]workspace.ClasspathEntry, error) {
	return p.manifest.Entries()
}

// OutputLocation returns [project].output. A relative value is expressed as
// a project-relative path so that the normalizer resolves it.
func (p *Project) OutputLocation() (string, error) {
	out := strings.TrimSpace(p.manifest.Project.Output)
	if out == "" {
		out = DefaultOutput
	}
	if filepath.IsAbs(out) || strings.HasPrefix(filepath.ToSlash(out), "/") {
		return out, nil
	}
	return p.FullPath(out), nil
}

// FullPath converts a project-relative file path into a resource path.
func (p *Project) FullPath(rel string) string {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	return path.Join("/", p.name, rel)
}

// Snapshot walks the project tree in lexical order. Folders and all files
// are reported; excluded directories are pruned.
func (p *Project) Snapshot() (changeset.FullSnapshot, error) {
	var out []workspace.Resource
	err := filepath.WalkDir(p.dir, func(fsPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.dir, fsPath)
		if err != nil {
			return err
		}
		if rel == "." {
			out = append(out, workspace.Resource{FullPath: "/" + p.name, Type: workspace.TypeProject})
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if _, ok := p.skip[rel]; ok {
				return filepath.SkipDir
			}
			out = append(out, workspace.Resource{FullPath: p.FullPath(rel), Type: workspace.TypeFolder})
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		out = append(out, workspace.Resource{FullPath: p.FullPath(rel), Type: workspace.TypeFile})
		return nil
	})
	if err != nil {
		return changeset.FullSnapshot{}, fmt.Errorf("snapshot %s: %w", p.name, err)
	}
	return changeset.FullSnapshot{Resources: out}, nil
}

// Path maps a resource back to the filesystem.
func (p *Project) Path(res workspace.Resource) string {
	return workspace.NewNormalizer(p.ws, p.dir).Absolute(res.FullPath)
}
