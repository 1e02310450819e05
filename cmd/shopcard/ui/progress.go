package ui

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar wraps a progressbar instance for per-page progress.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar with the given total and description.
func NewProgressBar(total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Set moves the progress bar to current.
func (p *ProgressBar) Set(current int64) {
	_ = p.bar.Set64(current)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	s.spinner.Lock()
	s.spinner.Suffix = " " + message
	s.spinner.Unlock()
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	errorColor.Fprintf(stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	successColor.Fprintf(stdout, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	warnColor.Fprintf(stdout, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	infoColor.Fprintf(stdout, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Newline prints a newline.
func Newline() {
	fmt.Fprintln(stdout)
}

// Section displays a section header.
func Section(title string) {
	headerColor.Fprintf(stdout, "\n%s\n", title)
	fmt.Fprintf(stdout, "%s\n\n", underline(len([]rune(title))))
}

func underline(length int) string {
	result := ""
	for i := 0; i < length; i++ {
		result += "="
	}
	return result
}
