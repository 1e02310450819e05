// Package ui provides terminal output for the shopcard CLI.
package ui

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	verboseFlag bool

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgHiWhite, color.Bold)
	keyColor     = color.New(color.FgHiBlack)
)

// InitUI initializes the UI with color and verbose settings.
func InitUI(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor {
		color.NoColor = true
	}
}

// Verbose reports whether verbose output was requested.
func Verbose() bool {
	return verboseFlag
}

// SetOutput redirects UI output; used by tests.
func SetOutput(out, errOut io.Writer) {
	stdout, stderr = out, errOut
}
