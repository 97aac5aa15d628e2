package hostfs

import (
	"errors"
	"fmt"
	"os"

	"xbuild/internal/diag"
	"xbuild/internal/workspace"
)

// ErrResourceGone is returned when a marker targets a file that no longer
// exists on disk.
var ErrResourceGone = errors.New("resource no longer exists")

// MarkerSink records markers into a diag.Store, refusing files that have
// disappeared since the snapshot.
type MarkerSink struct {
	Project *Project
	Store   *diag.Store
}

func (s MarkerSink) Clear(res workspace.Resource, typ string) error {
	return s.Store.Clear(res, typ)
}

func (s MarkerSink) Add(res workspace.Resource, m diag.Marker) error {
	if _, err := os.Stat(s.Project.Path(res)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", res.FullPath, ErrResourceGone)
		}
		return err
	}
	return s.Store.Add(res, m)
}
