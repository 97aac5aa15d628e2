package diag

import (
	"fmt"

	"fortio.org/safecast"

	"xbuild/internal/workspace"
)

// DefaultMarkerType is the marker kind owned by xbuild.
const DefaultMarkerType = "xbuild.problem"

// Marker is a problem attached to a resource. Markers are never edited in
// place: a build clears its own markers and creates new ones.
type Marker struct {
	Type     string   `msgpack:"type"`
	Resource string   `msgpack:"resource"`
	Severity Severity `msgpack:"severity"`
	Line     uint32   `msgpack:"line"`
	Message  string   `msgpack:"message"`
}

// NewError builds an error marker of type typ for res. Lines below 1 are
// stored as 1.
func NewError(typ string, res workspace.Resource, line int, msg string) (Marker, error) {
	if line < 1 {
		line = 1
	}
	ln, err := safecast.Conv[uint32](line)
	if err != nil {
		return Marker{}, fmt.Errorf("line %d out of range: %w", line, err)
	}
	return Marker{
		Type:     typ,
		Resource: res.FullPath,
		Severity: SevError,
		Line:     ln,
		Message:  msg,
	}, nil
}

func (m Marker) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", m.Resource, m.Line, m.Severity, m.Message)
}
