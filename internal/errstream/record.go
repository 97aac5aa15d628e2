// Package errstream decodes the structured error channel of the external
// build tool into records, one per reported problem.
package errstream

import "fmt"

// Element names of the diagnostic stream.
const (
	TagError   = "error"
	TagFile    = "file"
	TagLine    = "line"
	TagMessage = "message"
)

// DefaultLine is used when a record has no usable line number.
const DefaultLine = 1

// Record is one decoded error report. File is exactly as the tool sent it.
type Record struct {
	File    string
	Line    int
	Message string
}

func (r Record) String() string {
	return fmt.Sprintf("%s:%d: %s", r.File, r.Line, r.Message)
}
