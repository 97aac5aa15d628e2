// Package builder runs one build of a project through the external tool:
// it collects changed sources, encodes the request, runs the tool and turns
// its error records into markers.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"xbuild/internal/buildpipeline"
	"xbuild/internal/changeset"
	"xbuild/internal/diag"
	"xbuild/internal/errstream"
	"xbuild/internal/logging"
	"xbuild/internal/request"
	"xbuild/internal/workspace"
)

// Options configures a Builder.
type Options struct {
	// ToolPath is the absolute path of the external build tool.
	ToolPath string
	// Timeout bounds a tool run; zero disables it.
	Timeout time.Duration
	// MarkerType is the marker kind this builder owns.
	MarkerType string
	// Env is appended to the tool's inherited environment.
	Env []string
}

// Builder runs builds. One Builder may serve many projects, but builds of
// the same project must not overlap.
type Builder struct {
	opts Options
}

// New validates opts and returns a Builder.
func New(opts Options) (*Builder, error) {
	if opts.ToolPath == "" {
		return nil, fmt.Errorf("build tool path is not configured")
	}
	if !filepath.IsAbs(opts.ToolPath) {
		return nil, fmt.Errorf("build tool path %q is not absolute", opts.ToolPath)
	}
	if opts.MarkerType == "" {
		opts.MarkerType = diag.DefaultMarkerType
	}
	return &Builder{opts: opts}, nil
}

// Options returns the effective options.
func (b *Builder) Options() Options {
	return b.opts
}

// Request describes one build invocation.
type Request struct {
	Kind     changeset.BuildKind
	Project  Project
	Delta    *changeset.DeltaSnapshot
	Sink     diag.Sink
	Progress buildpipeline.ProgressSink
	// Stdout receives the tool's plain output; nil discards it.
	Stdout io.Writer
}

// Status is the overall outcome of a build.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCanceled  Status = "canceled"
)

// Result captures what a build did.
type Result struct {
	BuildID  string
	Status   Status
	Request  *request.BuildRequest
	Files    []workspace.Resource
	Markers  *diag.Bag
	Warnings []Warning
	ExitCode int
	Timings  buildpipeline.Timings
}

// Build runs req. Fatal failures are returned as *Error with Result.Status
// set to failed or canceled; recoverable problems end up in Result.Warnings.
// Markers created before a fatal failure are kept.
func (b *Builder) Build(ctx context.Context, req *Request) (Result, error) {
	result := Result{
		BuildID:  uuid.NewString(),
		Status:   StatusFailed,
		Markers:  diag.NewBag(),
		ExitCode: -1,
	}
	if req == nil || req.Project == nil {
		return result, &Error{Kind: KindProjectModel, Err: errors.New("missing build request")}
	}
	proj := req.Project
	fail := func(kind Kind, err error) (Result, error) {
		if kind == KindCanceled {
			result.Status = StatusCanceled
		}
		return result, &Error{Kind: kind, Project: proj.Name(), Err: err}
	}
	logger := logging.FromContext(ctx).With(
		slog.String("build_id", result.BuildID),
		slog.String("project", proj.Name()),
		slog.String("kind", req.Kind.String()),
	)

	switch req.Kind {
	case changeset.KindFull:
	case changeset.KindIncremental:
		if req.Delta == nil {
			logger.Error("incremental build without delta")
			return fail(KindMissingDelta, changeset.ErrMissingDelta)
		}
	default:
		logger.Error("unsupported build kind")
		return fail(KindUnsupportedBuildKind, changeset.ErrUnsupportedKind)
	}

	if !proj.IsJavaProject() {
		logger.Info("not a java project, skipping build")
		result.Status = StatusSkipped
		return result, nil
	}

	sink := req.Sink
	if sink == nil {
		sink = diag.NopSink{}
	}

	collectStart := time.Now()
	n := workspace.NewNormalizer(proj.WorkspaceRoot(), proj.Location())
	entries, err := proj.ResolvedClasspath()
	if err != nil {
		return fail(KindProjectModel, fmt.Errorf("resolve classpath: %w", err))
	}
	output, err := proj.OutputLocation()
	if err != nil {
		return fail(KindProjectModel, fmt.Errorf("output location: %w", err))
	}
	cs, err := changeset.For(req.Kind, req.Delta, proj.Snapshot)
	if err != nil {
		return fail(KindProjectModel, fmt.Errorf("project snapshot: %w", err))
	}
	files := changeset.Sources(cs)
	result.Files = files
	for _, res := range files {
		if err := sink.Clear(res, b.opts.MarkerType); err != nil {
			result.Warnings = append(result.Warnings, Warning{Kind: KindAnnotationWrite, File: res.FullPath, Err: err})
			logger.Warn("failed to clear markers", slog.String("file", res.FullPath), slog.Any("err", err))
		}
	}
	result.Timings.Set(buildpipeline.StageCollect, time.Since(collectStart))

	encodeStart := time.Now()
	br := &request.BuildRequest{
		WorkspacePath: proj.WorkspaceRoot(),
		ProjectPath:   proj.Location(),
		OutputPath:    n.Absolute(output),
		Classpath:     workspace.ResolveClasspath(entries, n),
		Resources:     make([]string, 0, len(files)),
	}
	for _, res := range files {
		br.Resources = append(br.Resources, n.Absolute(res.FullPath))
	}
	result.Request = br
	if err := br.Validate(); err != nil {
		return fail(KindProjectModel, err)
	}
	doc, err := request.Bytes(br)
	if err != nil {
		return fail(KindProjectModel, err)
	}
	result.Timings.Set(buildpipeline.StageEncode, time.Since(encodeStart))
	logger.Debug("build request", slog.Int("files", len(files)), slog.Int("classpath", len(br.Classpath)), slog.String("document", string(doc)))

	display := make([]string, 0, len(files))
	for _, res := range files {
		display = append(display, res.FullPath)
	}
	buildpipeline.EmitQueued(req.Progress, display)
	buildpipeline.EmitStage(req.Progress, display, buildpipeline.StageCompile, buildpipeline.StatusWorking, nil, 0)

	idx := diag.NewIndex(files, n)
	ann := &annotator{
		markerType: b.opts.MarkerType,
		index:      idx,
		sink:       sink,
		bag:        result.Markers,
		progress:   req.Progress,
		logger:     logger,
		touched:    make(map[string]struct{}),
	}
	cfg := buildpipeline.ProcessConfig{
		Path:    b.opts.ToolPath,
		Dir:     proj.Location(),
		Env:     b.opts.Env,
		Timeout: b.opts.Timeout,
		Stdout:  req.Stdout,
	}
	logger.Info("running build tool", slog.String("tool", cfg.Path), slog.Int("files", len(files)))
	procRes, err := buildpipeline.RunProcess(ctx, cfg, bytes.NewReader(doc), func(r io.Reader) error {
		return errstream.Decode(r, ann.handle)
	})
	result.ExitCode = procRes.ExitCode
	result.Warnings = append(result.Warnings, ann.warnings...)
	result.Timings.Set(buildpipeline.StageCompile, procRes.Elapsed)
	if procRes.OutputErr != nil {
		logger.Warn("tool output could not be forwarded", slog.Any("err", procRes.OutputErr))
	}
	if err != nil {
		kind := classify(err)
		buildpipeline.EmitStage(req.Progress, nil, buildpipeline.StageCompile, buildpipeline.StatusError, err, procRes.Elapsed)
		logger.Error("build failed", slog.String("reason", kind.String()), slog.Any("err", err), slog.Int("markers", result.Markers.Len()))
		return fail(kind, err)
	}

	for _, file := range display {
		if _, ok := ann.touched[file]; !ok {
			buildpipeline.EmitFile(req.Progress, file, buildpipeline.StageCompile, buildpipeline.StatusDone, nil)
		}
	}
	buildpipeline.EmitStage(req.Progress, nil, buildpipeline.StageCompile, buildpipeline.StatusDone, nil, procRes.Elapsed)
	result.Status = StatusSucceeded
	logger.Info("build finished",
		slog.Int("markers", result.Markers.Len()),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("elapsed", procRes.Elapsed),
	)
	return result, nil
}

func classify(err error) Kind {
	var exitErr *buildpipeline.ExitError
	switch {
	case errors.Is(err, buildpipeline.ErrCanceled):
		return KindCanceled
	case errors.Is(err, buildpipeline.ErrTimeout):
		return KindProcessTimeout
	case errors.Is(err, buildpipeline.ErrLaunch):
		return KindProcessLaunch
	case errors.Is(err, errstream.ErrMalformed):
		return KindProtocolDecode
	case errors.As(err, &exitErr):
		return KindProcessExit
	}
	return KindProcessIO
}
