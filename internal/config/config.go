// Package config loads xbuild.toml, the workspace-level configuration of the
// external build tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"xbuild/internal/diag"
)

// FileName is the configuration file searched for.
const FileName = "xbuild.toml"

// Environment overrides.
const (
	EnvTool    = "XBUILD_TOOL"
	EnvTimeout = "XBUILD_TIMEOUT"
)

// DefaultTimeout bounds a tool run when nothing else is configured.
const DefaultTimeout = 10 * time.Minute

// Config is the effective configuration.
type Config struct {
	// Path is the loaded file, empty when defaults are used.
	Path string
	// Root is the directory holding the file, or the search start.
	Root string

	ToolPath    string
	Timeout     time.Duration
	MarkerType  string
	MarkerStore string
	StateDir    string
}

type fileConfig struct {
	Tool    toolConfig    `toml:"tool"`
	Markers markersConfig `toml:"markers"`
	State   stateConfig   `toml:"state"`
}

type toolConfig struct {
	Path    string `toml:"path"`
	Timeout string `toml:"timeout"`
}

type markersConfig struct {
	Type  string `toml:"type"`
	Store string `toml:"store"`
}

type stateConfig struct {
	Dir string `toml:"dir"`
}

// Default returns the configuration used without a file, rooted at root.
func Default(root string) Config {
	return Config{
		Root:        root,
		Timeout:     DefaultTimeout,
		MarkerType:  diag.DefaultMarkerType,
		MarkerStore: filepath.Join(root, ".xbuild", "markers.mp"),
		StateDir:    filepath.Join(root, ".xbuild"),
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the configuration for startDir. Without a file
// the defaults are rooted at startDir.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return Config{}, err
		}
		return Default(root), nil
	}
	return Load(path)
}

// Load parses the file at path. Relative marker and state paths are
// resolved against the file's directory.
func Load(path string) (Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default(filepath.Dir(abs))
	cfg.Path = abs

	var fc fileConfig
	meta, err := toml.DecodeFile(abs, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", abs, undecoded[0].String())
	}
	if meta.IsDefined("tool", "path") {
		cfg.ToolPath = strings.TrimSpace(fc.Tool.Path)
	}
	if meta.IsDefined("tool", "timeout") {
		d, err := parseTimeout(fc.Tool.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("%s: [tool].timeout: %w", abs, err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("markers", "type") {
		if strings.TrimSpace(fc.Markers.Type) == "" {
			return Config{}, fmt.Errorf("%s: [markers].type must not be empty", abs)
		}
		cfg.MarkerType = strings.TrimSpace(fc.Markers.Type)
	}
	if meta.IsDefined("markers", "store") {
		cfg.MarkerStore = cfg.resolve(fc.Markers.Store)
	}
	if meta.IsDefined("state", "dir") {
		cfg.StateDir = cfg.resolve(fc.State.Dir)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment lookup function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvTool); ok && strings.TrimSpace(v) != "" {
		c.ToolPath = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTimeout); ok && strings.TrimSpace(v) != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks that a build can run with c.
func (c Config) Validate() error {
	if c.ToolPath == "" {
		where := "set [tool].path in " + FileName
		if c.Path != "" {
			where = "set [tool].path in " + c.Path
		}
		return fmt.Errorf("build tool not configured; %s, export %s or pass --tool", where, EnvTool)
	}
	if !filepath.IsAbs(c.ToolPath) {
		return fmt.Errorf("build tool path %q must be absolute", c.ToolPath)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func (c Config) resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
