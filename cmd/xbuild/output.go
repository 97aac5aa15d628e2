package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"xbuild/internal/buildpipeline"
	"xbuild/internal/builder"
	"xbuild/internal/diag"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow)
	pathColor  = color.New(color.Bold)
	mutedColor = color.New(color.Faint)
)

// printSummary writes the markers of res followed by a one-line verdict.
func printSummary(out io.Writer, project string, res builder.Result, err error, quiet bool) {
	if out == nil {
		return
	}
	if !quiet {
		if res.Markers != nil {
			res.Markers.Sort()
			printMarkers(out, res.Markers.Items())
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "%s %s\n", warnColor.Sprint("warning:"), w)
		}
	}

	status := string(res.Status)
	if status == "" {
		status = string(builder.StatusFailed)
	}
	var verdict string
	switch {
	case err != nil:
		verdict = errColor.Sprint(status)
	case res.Status == builder.StatusSkipped:
		verdict = mutedColor.Sprint(status)
	case res.Markers.HasErrors():
		verdict = errColor.Sprintf("%d error(s)", res.Markers.Len())
	default:
		verdict = okColor.Sprint("ok")
	}
	line := fmt.Sprintf("%s: %s", pathColor.Sprint(project), verdict)
	if n := len(res.Files); n > 0 {
		line += fmt.Sprintf(", %d file(s)", n)
	}
	if res.Timings.Has(buildpipeline.StageCompile) {
		line += mutedColor.Sprintf(" in %.1f ms", toMillis(res.Timings.Duration(buildpipeline.StageCompile)))
	}
	fmt.Fprintln(out, line)
}

// printMarkers writes one line per marker in file:line: message form.
func printMarkers(out io.Writer, markers []diag.Marker) {
	for _, m := range markers {
		sev := strings.ToLower(m.Severity.String())
		switch m.Severity {
		case diag.SevError:
			sev = errColor.Sprint(sev)
		case diag.SevWarning:
			sev = warnColor.Sprint(sev)
		}
		fmt.Fprintf(out, "%s:%d: %s: %s\n", pathColor.Sprint(m.Resource), m.Line, sev, m.Message)
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
