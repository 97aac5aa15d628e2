package hostfs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"xbuild/internal/changeset"
	"xbuild/internal/workspace"
)

const stateSchemaVersion uint16 = 1

// State is the digest of every file seen by the last build, keyed by
// resource full path.
type State struct {
	Schema  uint16            `msgpack:"schema"`
	Project string            `msgpack:"project"`
	Digests map[string]string `msgpack:"digests"`
}

// StatePath is where the state of project lives inside dir.
func StatePath(dir, project string) string {
	return filepath.Join(dir, project+".state.mp")
}

// LoadState reads the state file. A missing file or a schema mismatch
// yields nil with no error: the caller has no baseline.
func LoadState(path string) (*State, error) {
	// #nosec G304 -- path comes from the workspace configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read build state: %w", err)
	}
	var st State
	if err := msgpack.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode build state %q: %w", path, err)
	}
	if st.Schema != stateSchemaVersion {
		return nil, nil
	}
	if st.Digests == nil {
		st.Digests = make(map[string]string)
	}
	return &st, nil
}

// Save writes st atomically to path.
func (st *State) Save(path string) error {
	st.Schema = stateSchemaVersion
	data, err := msgpack.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode build state: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "state-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Capture digests every file of snap.
func (p *Project) Capture(snap changeset.FullSnapshot) (*State, error) {
	st := &State{Schema: stateSchemaVersion, Project: p.name, Digests: make(map[string]string)}
	for _, res := range snap.Resources {
		if !res.IsFile() {
			continue
		}
		sum, err := digestFile(p.Path(res))
		if err != nil {
			return nil, fmt.Errorf("digest %s: %w", res.FullPath, err)
		}
		st.Digests[res.FullPath] = sum
	}
	return st, nil
}

// Diff returns the changes from prev to cur, ordered by path. A nil prev
// means there is no baseline and the result is nil.
func Diff(prev, cur *State) *changeset.DeltaSnapshot {
	if prev == nil || cur == nil {
		return nil
	}
	var entries []changeset.Delta
	for fullPath, sum := range cur.Digests {
		old, ok := prev.Digests[fullPath]
		switch {
		case !ok:
			entries = append(entries, changeset.Delta{Resource: workspace.File(fullPath), Kind: changeset.DeltaAdded})
		case old != sum:
			entries = append(entries, changeset.Delta{Resource: workspace.File(fullPath), Kind: changeset.DeltaChanged})
		}
	}
	for fullPath := range prev.Digests {
		if _, ok := cur.Digests[fullPath]; !ok {
			entries = append(entries, changeset.Delta{Resource: workspace.File(fullPath), Kind: changeset.DeltaRemoved})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource.FullPath < entries[j].Resource.FullPath
	})
	return &changeset.DeltaSnapshot{Entries: entries}
}

func digestFile(path string) (string, error) {
	// #nosec G304 -- path is inside the project tree
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
