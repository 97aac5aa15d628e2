package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xbuild/internal/builder"
	"xbuild/internal/config"
	"xbuild/internal/diag"
	"xbuild/internal/hostfs"
	"xbuild/internal/workspace"
)

// session is everything a command needs to work on one project.
type session struct {
	cfg       config.Config
	project   *hostfs.Project
	store     *diag.Store
	statePath string
	skipped   []string
}

// openSession resolves the project at dir and the configuration that
// applies to it. Tool settings are validated only when needTool is set.
func openSession(cmd *cobra.Command, dir string, needTool bool) (*session, error) {
	if dir == "" {
		dir = "."
	}
	project, err := hostfs.OpenProject(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd, project.Location())
	if err != nil {
		return nil, err
	}
	if needTool {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	skip := []string{cfg.StateDir, filepath.Dir(cfg.MarkerStore)}
	if out, err := project.OutputLocation(); err == nil {
		skip = append(skip, project.Path(workspace.File(out)))
	}
	var skipped []string
	for _, p := range skip {
		if rel, ok := within(project.Location(), p); ok {
			project.Exclude(rel)
			skipped = append(skipped, filepath.Clean(p))
		}
	}
	store, err := diag.OpenStore(cfg.MarkerStore)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:       cfg,
		project:   project,
		store:     store,
		statePath: hostfs.StatePath(cfg.StateDir, project.Name()),
		skipped:   skipped,
	}, nil
}

func loadConfig(cmd *cobra.Command, projectDir string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	explicit, _ := cmd.Root().PersistentFlags().GetString("config")
	if explicit != "" {
		cfg, err = config.Load(explicit)
	} else {
		cfg, err = config.Discover(projectDir)
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}
	if f := cmd.Flags().Lookup("tool"); f != nil && f.Changed {
		cfg.ToolPath = strings.TrimSpace(f.Value.String())
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		d, err := time.ParseDuration(f.Value.String())
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func (s *session) newBuilder() (*builder.Builder, error) {
	return builder.New(builder.Options{
		ToolPath:   s.cfg.ToolPath,
		Timeout:    s.cfg.Timeout,
		MarkerType: s.cfg.MarkerType,
	})
}

// within reports p relative to root when p lies strictly inside root.
func within(root, p string) (string, bool) {
	if p == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func addToolFlags(cmd *cobra.Command) {
	cmd.Flags().String("tool", "", "absolute path of the build tool (overrides "+config.FileName+" and "+config.EnvTool+")")
	cmd.Flags().String("timeout", "", "bound on one tool run, e.g. 90s or 10m; 0 disables it")
}
