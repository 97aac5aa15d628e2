package builder

import (
	"log/slog"

	"xbuild/internal/buildpipeline"
	"xbuild/internal/diag"
	"xbuild/internal/errstream"
)

// annotator turns decoded records into markers. It is only used from the
// goroutine reading the diagnostic stream.
type annotator struct {
	markerType string
	index      *diag.Index
	sink       diag.Sink
	bag        *diag.Bag
	progress   buildpipeline.ProgressSink
	logger     *slog.Logger
	warnings   []Warning
	touched    map[string]struct{}
}

func (a *annotator) handle(rec errstream.Record) error {
	res, ok := a.index.Lookup(rec.File)
	if !ok {
		a.warn(Warning{Kind: KindUnresolvedTarget, File: rec.File, Line: rec.Line, Message: rec.Message})
		return nil
	}
	m, err := diag.NewError(a.markerType, res, rec.Line, rec.Message)
	if err != nil {
		a.warn(Warning{Kind: KindAnnotationWrite, File: res.FullPath, Line: rec.Line, Message: rec.Message, Err: err})
		return nil
	}
	if err := a.sink.Add(res, m); err != nil {
		a.warn(Warning{Kind: KindAnnotationWrite, File: res.FullPath, Line: rec.Line, Message: rec.Message, Err: err})
		return nil
	}
	a.bag.Add(m)
	if _, seen := a.touched[res.FullPath]; !seen {
		a.touched[res.FullPath] = struct{}{}
		buildpipeline.EmitFile(a.progress, res.FullPath, buildpipeline.StageAnnotate, buildpipeline.StatusError, nil)
	}
	return nil
}

func (a *annotator) warn(w Warning) {
	a.warnings = append(a.warnings, w)
	attrs := []any{slog.String("reason", w.Kind.String()), slog.String("file", w.File), slog.Int("line", w.Line)}
	if w.Err != nil {
		attrs = append(attrs, slog.Any("err", w.Err))
	}
	a.logger.Warn("diagnostic dropped", attrs...)
}
