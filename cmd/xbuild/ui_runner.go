package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"xbuild/internal/buildpipeline"
	"xbuild/internal/builder"
	"xbuild/internal/ui"
)

type buildOutcome struct {
	result builder.Result
	err    error
}

// runBuildWithUI runs the build in the background and renders its progress
// until the event stream closes. Quitting the view cancels the build.
func runBuildWithUI(ctx context.Context, title string, b *builder.Builder, req *builder.Request) (builder.Result, error) {
	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := b.Build(buildCtx, &reqCopy)
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	final, uiErr := program.Run()
	if !ui.Completed(final) {
		cancel()
	}
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
