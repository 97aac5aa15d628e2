package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrLaunch is returned when the tool cannot be started.
	ErrLaunch = errors.New("failed to launch build tool")
	// ErrTimeout is returned when the tool outlives ProcessConfig.Timeout.
	ErrTimeout = errors.New("build tool timed out")
	// ErrCanceled is returned when the caller's context ends first.
	ErrCanceled = errors.New("build canceled")
)

// ExitError reports a non-zero exit status of the tool.
type ExitError struct {
	Path string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Path, e.Code)
}

// ProcessConfig describes how the external tool is run.
type ProcessConfig struct {
	// Path is the absolute path of the executable; it gets no arguments.
	Path string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
	// Timeout bounds the whole run; zero disables it.
	Timeout time.Duration
	// Stdout receives the tool's plain output verbatim; nil discards it.
	Stdout io.Writer
	// WaitDelay bounds Wait after the process has been told to stop.
	WaitDelay time.Duration
}

// ProcessResult describes a finished run.
type ProcessResult struct {
	ExitCode    int
	Elapsed     time.Duration
	InputBytes  int64
	OutputBytes int64
	// OutputErr is the first failure writing plain output. It does not fail
	// the run.
	OutputErr error
}

// DiagnosticReader consumes the tool's structured error channel. It must
// read until EOF or return an error.
type DiagnosticReader func(io.Reader) error

// RunProcess starts the tool, streams input to its stdin and closes it,
// copies its stdout to cfg.Stdout and hands its stderr to diagnostics.
//
// The writer and both readers run concurrently: the tool may fill its output
// pipes before it has read all of its input. RunProcess returns only after
// all three have finished and the process has been reaped. A failing task
// stops the process; a timeout or cancellation stops it as well.
func RunProcess(ctx context.Context, cfg ProcessConfig, input io.Reader, diagnostics DiagnosticReader) (ProcessResult, error) {
	var res ProcessResult
	res.ExitCode = -1
	if cfg.Path == "" {
		return res, fmt.Errorf("%w: no tool configured", ErrLaunch)
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	if input == nil {
		input = eofReader{}
	}
	out := &passthrough{w: cfg.Stdout}
	if out.w == nil {
		out.w = io.Discard
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	procCtx, abort := context.WithCancel(runCtx)
	defer abort()

	// #nosec G204 -- the tool path is explicit user configuration
	cmd := exec.CommandContext(procCtx, cfg.Path)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	cmd.WaitDelay = cfg.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrLaunch, cfg.Path, err)
	}

	// Descendants of the tool may keep the pipes open after it is killed.
	stopUnblock := context.AfterFunc(procCtx, func() {
		_ = stdin.Close()
		_ = stdout.Close()
		_ = stderr.Close()
	})
	defer stopUnblock()

	var g errgroup.Group
	g.Go(func() error {
		n, err := io.Copy(stdin, input)
		res.InputBytes = n
		closeErr := stdin.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil && !benignPipeError(err) {
			abort()
			return fmt.Errorf("write build request: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		n, err := io.Copy(out, stdout)
		res.OutputBytes = n
		if err != nil && !benignPipeError(err) {
			abort()
			return fmt.Errorf("copy tool output: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := diagnostics(stderr); err != nil {
			abort()
			return err
		}
		// keep the channel drained so the tool never blocks on it
		_, _ = io.Copy(io.Discard, stderr)
		return nil
	})

	taskErr := g.Wait()
	waitErr := cmd.Wait()
	res.Elapsed = time.Since(start)
	res.OutputErr = out.err
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err := interruption(ctx, runCtx, cfg.Timeout); err != nil {
		return res, err
	}
	if taskErr != nil {
		return res, taskErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return res, &ExitError{Path: cfg.Path, Code: exitErr.ExitCode()}
		}
		return res, fmt.Errorf("wait for %s: %w", cfg.Path, waitErr)
	}
	return res, nil
}

func interruption(parent, run context.Context, timeout time.Duration) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	if errors.Is(run.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return nil
}

// benignPipeError reports errors caused by the other side going away, which
// the exit status or the context already explains.
func benignPipeError(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// passthrough forwards plain output until the destination fails, then keeps
// accepting bytes so the tool's stdout never backs up.
type passthrough struct {
	w   io.Writer
	err error
}

func (p *passthrough) Write(b []byte) (int, error) {
	if p.err == nil {
		if _, err := p.w.Write(b); err != nil {
			p.err = err
		}
	}
	return len(b), nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
