// Package main implements the xbuild CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xbuild/internal/builder"
	"xbuild/internal/changeset"
	"xbuild/internal/hostfs"
	"xbuild/internal/logging"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [project-dir]",
	Short: "Build a project with the external build tool",
	Long: `Build a project described by project.toml. The build tool is taken from
xbuild.toml, XBUILD_TOOL or --tool. With --kind auto an incremental build is
run when a previous build state exists, a full build otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: buildExecution,
}

// errReported signals that the build ran but the tool reported errors.
var errReported = errors.New("build reported errors")

func buildExecution(cmd *cobra.Command, args []string) error {
	kindValue, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	s, err := openSession(cmd, dir, true)
	if err != nil {
		return err
	}
	b, err := s.newBuilder()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res, err := s.build(cmd.Context(), b, buildOptions{
		kind:  kindValue,
		useUI: useProgressUI(uiModeValue, quiet, os.Getenv("TERM")),
		quiet: quiet,
		out:   out,
	})
	printSummary(out, s.project.Name(), res, err, quiet)
	if err != nil {
		return err
	}
	if res.Markers.HasErrors() {
		return fmt.Errorf("%s: %w", s.project.Name(), errReported)
	}
	return nil
}

type buildOptions struct {
	kind  string
	useUI bool
	quiet bool
	out   io.Writer
}

// resolveKind maps the --kind flag onto a build kind. auto picks an
// incremental build when a baseline exists.
func resolveKind(value string, hasBaseline bool) (changeset.BuildKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		if hasBaseline {
			return changeset.KindIncremental, nil
		}
		return changeset.KindFull, nil
	}
	return changeset.ParseBuildKind(value)
}

// build runs one build and persists markers and, on success, the new
// baseline.
func (s *session) build(ctx context.Context, b *builder.Builder, opts buildOptions) (builder.Result, error) {
	logger := logging.FromContext(ctx)
	snap, err := s.project.Snapshot()
	if err != nil {
		return builder.Result{}, err
	}
	cur, err := s.project.Capture(snap)
	if err != nil {
		return builder.Result{}, err
	}
	prev, err := hostfs.LoadState(s.statePath)
	if err != nil {
		logger.Warn("ignoring unreadable build state", slog.String("path", s.statePath), slog.Any("err", err))
		prev = nil
	}
	kind, err := resolveKind(opts.kind, prev != nil)
	if err != nil {
		return builder.Result{}, err
	}

	req := &builder.Request{
		Kind:    kind,
		Project: s.project,
		Sink:    hostfs.MarkerSink{Project: s.project, Store: s.store},
	}
	if kind == changeset.KindIncremental {
		req.Delta = hostfs.Diff(prev, cur)
		if req.Delta != nil {
			for _, gone := range req.Delta.Removed() {
				if err := s.store.Clear(gone, s.cfg.MarkerType); err != nil {
					logger.Warn("failed to clear markers of removed file", slog.String("file", gone.FullPath), slog.Any("err", err))
				}
			}
		}
	}
	if !opts.useUI && !opts.quiet {
		req.Stdout = opts.out
	}

	var res builder.Result
	if opts.useUI {
		res, err = runBuildWithUI(ctx, "xbuild "+s.project.Name(), b, req)
	} else {
		res, err = b.Build(ctx, req)
	}

	if saveErr := s.store.Save(); saveErr != nil {
		logger.Error("failed to save markers", slog.Any("err", saveErr))
		if err == nil {
			err = saveErr
		}
	}
	if err == nil && res.Status == builder.StatusSucceeded {
		if saveErr := cur.Save(s.statePath); saveErr != nil {
			logger.Error("failed to save build state", slog.Any("err", saveErr))
			err = saveErr
		}
	}
	return res, err
}

func init() {
	buildCmd.Flags().String("kind", "auto", "build kind (auto|full|incremental|clean)")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	addToolFlags(buildCmd)
}
