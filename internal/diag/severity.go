package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a marker.
type Severity uint8

const (
	// SevInfo is for informational markers.
	SevInfo Severity = iota
	// SevWarning is for warning markers.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SevInfo, nil
	case "WARNING":
		return SevWarning, nil
	case "ERROR":
		return SevError, nil
	}
	return 0, fmt.Errorf("invalid severity %q", s)
}
