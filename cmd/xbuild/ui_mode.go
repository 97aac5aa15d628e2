package main

import (
	"fmt"
	"os"
	"strings"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch m := uiMode(strings.TrimSpace(strings.ToLower(value))); m {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return m, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// useProgressUI decides whether the interactive view is shown. In auto mode
// it needs a capable terminal on stdout and no --quiet.
func useProgressUI(mode uiMode, quiet bool, term string) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	if quiet || term == "dumb" {
		return false
	}
	return isTerminal(os.Stdout)
}
