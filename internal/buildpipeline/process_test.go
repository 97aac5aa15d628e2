package buildpipeline_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbuild/internal/buildpipeline"
	"xbuild/internal/errstream"
)

const fakeToolEnv = "XBUILD_FAKE_TOOL"

// floodSize exceeds the pipe buffer of every supported platform.
const floodSize = 2 << 20

func TestMain(m *testing.M) {
	if mode := os.Getenv(fakeToolEnv); mode != "" {
		os.Exit(runFakeTool(mode))
	}
	os.Exit(m.Run())
}

// runFakeTool stands in for the external build tool when the test binary
// is re-executed with fakeToolEnv set.
func runFakeTool(mode string) int {
	switch mode {
	case "echo":
		var resources []string
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := sc.Text()
			if rest, ok := strings.CutPrefix(line, "<resource>"); ok {
				resources = append(resources, strings.TrimSuffix(rest, "</resource>"))
			}
		}
		fmt.Fprintf(os.Stdout, "compiled %d files\n", len(resources))
		fmt.Fprint(os.Stderr, "<errors>")
		for i, res := range resources {
			fmt.Fprintf(os.Stderr, "<error><file>%s</file><line>%d</line><message>problem %d</message></error>", res, i+1, i)
		}
		fmt.Fprint(os.Stderr, "</errors>")
		return 0
	case "flood":
		chunk := bytes.Repeat([]byte("x"), 1024)
		for written := 0; written < floodSize; written += len(chunk) {
			_, _ = os.Stdout.Write(chunk)
		}
		fmt.Fprint(os.Stderr, "<errors>")
		for written := 0; written < floodSize; {
			n, _ := fmt.Fprint(os.Stderr, "<error><file>/ws/p/A.java</file><line>1</line><message>m</message></error>")
			written += n
		}
		fmt.Fprint(os.Stderr, "</errors>")
		n, _ := io.Copy(io.Discard, os.Stdin)
		fmt.Fprintf(os.Stdout, "\nread %d\n", n)
		return 0
	case "exit3":
		_, _ = io.Copy(io.Discard, os.Stdin)
		return 3
	case "garbage":
		fmt.Fprint(os.Stderr, "<errors><error><file>A.java</line>")
		time.Sleep(time.Minute)
		return 0
	case "hang":
		time.Sleep(time.Minute)
		return 0
	}
	return 2
}

func fakeTool(t *testing.T, mode string) buildpipeline.ProcessConfig {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	return buildpipeline.ProcessConfig{
		Path:    exe,
		Env:     []string{fakeToolEnv + "=" + mode},
		Timeout: 30 * time.Second,
	}
}

func recordCollector(records *[]errstream.Record) buildpipeline.DiagnosticReader {
	return func(r io.Reader) error {
		return errstream.Decode(r, func(rec errstream.Record) error {
			*records = append(*records, rec)
			return nil
		})
	}
}

func TestRunProcess_RoundTrip(t *testing.T) {
	cfg := fakeTool(t, "echo")
	var stdout bytes.Buffer
	cfg.Stdout = &stdout
	input := "<builder-options>\n<resource>/ws/p/A.java</resource>\n<resource>/ws/p/B.java</resource>\n</builder-options>\n"

	var records []errstream.Record
	res, err := buildpipeline.RunProcess(context.Background(), cfg, strings.NewReader(input), recordCollector(&records))
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, int64(len(input)), res.InputBytes)
	assert.Equal(t, "compiled 2 files\n", stdout.String())
	assert.Equal(t, []errstream.Record{
		{File: "/ws/p/A.java", Line: 1, Message: "problem 0"},
		{File: "/ws/p/B.java", Line: 2, Message: "problem 1"},
	}, records)
}

func TestRunProcess_NoDeadlockOnLargeOutput(t *testing.T) {
	cfg := fakeTool(t, "flood")
	var stdout bytes.Buffer
	cfg.Stdout = &stdout
	input := bytes.Repeat([]byte("<resource>/ws/p/A.java</resource>\n"), floodSize/32)

	count := 0
	done := make(chan error, 1)
	go func() {
		_, err := buildpipeline.RunProcess(context.Background(), cfg, bytes.NewReader(input), func(r io.Reader) error {
			return errstream.Decode(r, func(errstream.Record) error {
				count++
				return nil
			})
		})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("pipeline deadlocked")
	}
	assert.Greater(t, count, 1000)
	assert.Contains(t, stdout.String(), fmt.Sprintf("read %d", len(input)))
}

func TestRunProcess_NonZeroExit(t *testing.T) {
	cfg := fakeTool(t, "exit3")
	res, err := buildpipeline.RunProcess(context.Background(), cfg, strings.NewReader("<x/>"), func(r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})
	var exitErr *buildpipeline.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunProcess_LaunchFailure(t *testing.T) {
	cfg := buildpipeline.ProcessConfig{Path: "/nonexistent/xbuild-tool"}
	_, err := buildpipeline.RunProcess(context.Background(), cfg, nil, func(io.Reader) error {
		t.Fatal("diagnostics must not be read when launch fails")
		return nil
	})
	require.ErrorIs(t, err, buildpipeline.ErrLaunch)

	_, err = buildpipeline.RunProcess(context.Background(), buildpipeline.ProcessConfig{}, nil, nil)
	require.ErrorIs(t, err, buildpipeline.ErrLaunch)
}

func TestRunProcess_DecodeFailureStopsTool(t *testing.T) {
	cfg := fakeTool(t, "garbage")
	start := time.Now()
	var records []errstream.Record
	_, err := buildpipeline.RunProcess(context.Background(), cfg, strings.NewReader("<x/>"), recordCollector(&records))
	require.ErrorIs(t, err, errstream.ErrMalformed)
	assert.Less(t, time.Since(start), 20*time.Second)
}

func TestRunProcess_Timeout(t *testing.T) {
	cfg := fakeTool(t, "hang")
	cfg.Timeout = 200 * time.Millisecond
	start := time.Now()
	_, err := buildpipeline.RunProcess(context.Background(), cfg, strings.NewReader("<x/>"), func(r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})
	require.ErrorIs(t, err, buildpipeline.ErrTimeout)
	assert.Less(t, time.Since(start), 20*time.Second)
}

func TestRunProcess_Canceled(t *testing.T) {
	cfg := fakeTool(t, "hang")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	_, err := buildpipeline.RunProcess(ctx, cfg, strings.NewReader("<x/>"), func(r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})
	require.ErrorIs(t, err, buildpipeline.ErrCanceled)
	require.ErrorIs(t, err, context.Canceled)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("console gone") }

func TestRunProcess_OutputFailureDoesNotFailRun(t *testing.T) {
	cfg := fakeTool(t, "echo")
	cfg.Stdout = brokenWriter{}
	var records []errstream.Record
	res, err := buildpipeline.RunProcess(context.Background(), cfg, strings.NewReader("<resource>/a.java</resource>\n"), recordCollector(&records))
	require.NoError(t, err)
	require.Error(t, res.OutputErr)
	assert.Len(t, records, 1)
}
