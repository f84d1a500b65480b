package ui

import (
	"github.com/fatih/color"
)

var (
	noColorFlag bool
	verboseFlag bool
)

// Init configures color and verbosity for all UI output.
func Init(noColor, verbose bool) {
	noColorFlag = noColor
	verboseFlag = verbose

	if noColor {
		color.NoColor = true
	}
}

// Verbose reports whether verbose output was requested.
func Verbose() bool {
	return verboseFlag
}
