package builder

import (
	"errors"
	"fmt"
)

// Kind classifies build failures and per-item warnings.
type Kind uint8

const (
	// KindUnsupportedBuildKind: a clean build was requested.
	KindUnsupportedBuildKind Kind = iota + 1
	// KindMissingDelta: an incremental build came without a delta.
	KindMissingDelta
	// KindNotAJavaProject: the project lacks the java nature; the build is skipped.
	KindNotAJavaProject
	// KindProjectModel: the host could not describe the project.
	KindProjectModel
	// KindProcessLaunch: the tool is missing or could not be started.
	KindProcessLaunch
	// KindProcessIO: a pipe to or from the tool failed.
	KindProcessIO
	// KindProtocolDecode: the diagnostic stream was malformed.
	KindProtocolDecode
	// KindProcessExit: the tool exited with a non-zero status.
	KindProcessExit
	// KindProcessTimeout: the tool ran past the configured timeout.
	KindProcessTimeout
	// KindCanceled: the host canceled the build.
	KindCanceled
	// KindUnresolvedTarget: a record named a file outside the build.
	KindUnresolvedTarget
	// KindAnnotationWrite: the host rejected a marker change.
	KindAnnotationWrite
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedBuildKind:
		return "unsupported build kind"
	case KindMissingDelta:
		return "missing delta"
	case KindNotAJavaProject:
		return "not a java project"
	case KindProjectModel:
		return "project model"
	case KindProcessLaunch:
		return "process launch failure"
	case KindProcessIO:
		return "process i/o failure"
	case KindProtocolDecode:
		return "protocol decode failure"
	case KindProcessExit:
		return "process exit failure"
	case KindProcessTimeout:
		return "process timeout"
	case KindCanceled:
		return "canceled"
	case KindUnresolvedTarget:
		return "unresolved diagnostic target"
	case KindAnnotationWrite:
		return "annotation write failure"
	}
	return "unknown"
}

// Fatal reports whether k aborts the whole build.
func (k Kind) Fatal() bool {
	switch k {
	case KindNotAJavaProject, KindUnresolvedTarget, KindAnnotationWrite:
		return false
	}
	return k != 0
}

// Error is the typed failure returned by Builder.Build.
type Error struct {
	Kind    Kind
	Project string
	Err     error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrUnsupportedBuildKind = &Error{Kind: KindUnsupportedBuildKind}
	ErrMissingDelta         = &Error{Kind: KindMissingDelta}
	ErrProjectModel         = &Error{Kind: KindProjectModel}
	ErrProcessLaunch        = &Error{Kind: KindProcessLaunch}
	ErrProcessIO            = &Error{Kind: KindProcessIO}
	ErrProtocolDecode       = &Error{Kind: KindProtocolDecode}
	ErrProcessExit          = &Error{Kind: KindProcessExit}
	ErrProcessTimeout       = &Error{Kind: KindProcessTimeout}
	ErrCanceled             = &Error{Kind: KindCanceled}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Project != "" {
		msg = fmt.Sprintf("build %s: %s", e.Project, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil || t.Project != "" {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// Warning is a recoverable per-item problem recorded in Result.
type Warning struct {
	Kind    Kind
	File    string
	Line    int
	Message string
	Err     error
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s: %s", w.Kind, w.File)
	if w.Line > 0 {
		s = fmt.Sprintf("%s:%d", s, w.Line)
	}
	if w.Message != "" {
		s += ": " + w.Message
	}
	if w.Err != nil {
		s = fmt.Sprintf("%s (%v)", s, w.Err)
	}
	return s
}
