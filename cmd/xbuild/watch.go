package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"xbuild/internal/builder"
	"xbuild/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [project-dir]",
	Short: "Rebuild a project whenever its files change",
	Long: `Run a build, then watch the project tree and run an incremental build
after every burst of changes. Stops on interrupt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: watchExecution,
}

func watchExecution(cmd *cobra.Command, args []string) error {
	debounce, err := cmd.Flags().GetDuration("debounce")
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

	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	out := cmd.OutOrStdout()
	rebuild := func() {
		res, err := s.build(ctx, b, buildOptions{kind: "auto", quiet: quiet, out: out})
		printSummary(out, s.project.Name(), res, err, quiet)
		if err != nil && !errors.Is(err, builder.ErrCanceled) {
			logger.Warn("build failed", slog.Any("err", err))
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()
	w := &projectWatcher{watcher: watcher, root: s.project.Location(), skipped: s.skipped, logger: logger}
	if err := w.addDirs(w.root); err != nil {
		return err
	}

	rebuild()
	requests, trigger, stop := debouncer(debounce)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-requests:
				logger.Info("change detected, rebuilding", slog.String("project", s.project.Name()))
				rebuild()
			}
		}
	}()
	err = w.run(ctx, trigger)
	wg.Wait()
	return err
}

type projectWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	skipped []string
	logger  *slog.Logger
}

func (w *projectWatcher) run(ctx context.Context, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addDirs(ev.Name)
				}
			}
			w.logger.Debug("file change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("err", err))
		}
	}
}

func (w *projectWatcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("watch add failed", slog.String("dir", path), slog.Any("err", err))
		}
		return nil
	})
}

// ignored reports paths under skipped directories and hidden entries such
// as editor swap files.
func (w *projectWatcher) ignored(path string) bool {
	path = filepath.Clean(path)
	for _, dir := range w.skipped {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(seg, ".") || strings.HasSuffix(seg, "~") {
			return true
		}
	}
	return false
}

// debouncer coalesces bursts of triggers into one request delivered after
// delay of quiet. At most one request is pending at a time.
func debouncer(delay time.Duration) (<-chan struct{}, func(), func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	requests := make(chan struct{}, 1)
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case requests <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return requests, trigger, stop
}

func init() {
	watchCmd.Flags().Duration("debounce", 300*time.Millisecond, "quiet period before a rebuild")
	addToolFlags(watchCmd)
}
