package buildpipeline

import "time"

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// EmitQueued marks every file as queued.
func EmitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageCollect, Status: StatusQueued})
	}
}

// EmitStage reports a pipeline-wide event followed by one event per file.
func EmitStage(sink ProgressSink, files []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}

// EmitFile reports an event for a single file.
func EmitFile(sink ProgressSink, file string, stage Stage, status Status, err error) {
	if sink == nil || file == "" {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err})
}
