package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestCurrent(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.2.3"
	if got := Current(); got != "1.2.3" {
		t.Errorf("Current() = %q, want %q", got, "1.2.3")
	}
	Version = "  "
	if got := Current(); got != "dev" {
		t.Errorf("Current() = %q, want dev", got)
	}
}

func TestPretty(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	tests := []string{
		"0.1.0-dev",
		"1.2.3",
		"1.2.3-rc.1+build.123",
		"nightly",
		"1.2",
	}
	for _, v := range tests {
		if got := Pretty(v); got != v {
			t.Errorf("Pretty(%q) = %q without colour", v, got)
		}
	}
}

func TestPretty_Coloured(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })

	if got := Pretty("1.2.3"); got == "1.2.3" {
		t.Errorf("Pretty did not colour the version")
	}
}
