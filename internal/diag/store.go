package diag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"xbuild/internal/workspace"
)

// Current schema version - increment when storePayload format changes
const storeSchemaVersion uint16 = 1

// Store keeps markers per resource and persists them as msgpack.
// Thread-safe for concurrent access.
type Store struct {
	mu      sync.RWMutex
	path    string
	markers map[string][]Marker
}

type storePayload struct {
	Schema  uint16              `msgpack:"schema"`
	Markers map[string][]Marker `msgpack:"markers"`
}

// NewStore returns an empty in-memory store. Save is a no-op unless path
// is set.
func NewStore(path string) *Store {
	return &Store{path: path, markers: make(map[string][]Marker)}
}

// OpenStore loads the store at path. A missing file yields an empty store;
// a file written with another schema is discarded.
func OpenStore(path string) (*Store, error) {
	s := NewStore(path)
	// #nosec G304 -- path comes from the workspace configuration
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("open marker store: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	var payload storePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode marker store %q: %w", path, err)
	}
	if payload.Schema != storeSchemaVersion {
		return s, nil
	}
	for res, ms := range payload.Markers {
		s.markers[res] = ms
	}
	return s, nil
}

// Clear removes markers of type typ from res.
func (s *Store) Clear(res workspace.Resource, typ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.markers[res.FullPath]
	kept := existing[:0]
	for _, m := range existing {
		if m.Type != typ {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		delete(s.markers, res.FullPath)
		return nil
	}
	s.markers[res.FullPath] = kept
	return nil
}

// Add attaches m to res.
func (s *Store) Add(res workspace.Resource, m Marker) error {
	if res.FullPath == "" {
		return fmt.Errorf("marker without resource")
	}
	m.Resource = res.FullPath
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[res.FullPath] = append(s.markers[res.FullPath], m)
	return nil
}

// Markers returns a copy of the markers attached to resource.
func (s *Store) Markers(resource string) []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Marker(nil), s.markers[resource]...)
}

// All returns every marker, grouped by resource path in sorted order.
func (s *Store) All() []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.markers))
	for k := range s.markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []Marker
	for _, k := range keys {
		out = append(out, s.markers[k]...)
	}
	return out
}

// Save writes the store atomically to its path.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	payload := storePayload{Schema: storeSchemaVersion, Markers: s.markers}
	data, err := msgpack.Marshal(&payload)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode marker store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create marker store dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "markers-*")
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
	// Атомарная замена
	return os.Rename(tmp, s.path)
}
