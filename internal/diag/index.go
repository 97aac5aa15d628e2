package diag

import (
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"xbuild/internal/workspace"
)

// Index maps absolute file paths, as the tool reports them, to the
// resources of the current build. It is built once per build and never
// modified.
type Index struct {
	byPath map[string]workspace.Resource
}

// NewIndex indexes files by their normalised absolute path. When two files
// share a path the first one wins.
func NewIndex(files []workspace.Resource, n workspace.Normalizer) *Index {
	idx := &Index{byPath: make(map[string]workspace.Resource, len(files))}
	for _, res := range files {
		key := indexKey(n.Absolute(res.FullPath))
		if _, ok := idx.byPath[key]; ok {
			continue
		}
		idx.byPath[key] = res
	}
	return idx
}

// Lookup resolves a reported file name.
func (idx *Index) Lookup(file string) (workspace.Resource, bool) {
	if idx == nil || file == "" {
		return workspace.Resource{}, false
	}
	res, ok := idx.byPath[indexKey(file)]
	return res, ok
}

// Len returns the number of indexed files.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byPath)
}

// indexKey folds paths that differ only in Unicode composition or in
// redundant separators.
func indexKey(p string) string {
	return norm.NFC.String(filepath.Clean(p))
}
