package lib

import (
	"fmt"
)

// RunMode indicates which of vizgrid's modes is being run.
type RunMode int

const (
	CheckMode RunMode = iota
	ConvertMode
	ConfirmMode
	InfoMode
)

var runModeNames = []string{"check", "convert", "confirm", "info"}

func (mode RunMode) String() string {
	if mode < 0 || int(mode) >= len(runModeNames) {
		return fmt.Sprintf("RunMode(%d)", int(mode))
	}
	return runModeNames[mode]
}

// CheckStrictness indicates how a mode should behave when one of the files
// in a batch can't be processed.
type CheckStrictness int

const (
	// CrashOnError stops the batch at the first failure.
	CrashOnError CheckStrictness = iota
	// WarnOnError logs each failure as a warning and keeps going.
	WarnOnError
)
