// Package ui provides terminal output helpers for the segmentctl CLI.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressBar wraps a progressbar instance for deterministic single-task
// progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a progress bar with the given total and description.
func NewProgressBar(total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
	return &ProgressBar{bar: bar}
}

// Add advances the progress bar.
func (p *ProgressBar) Add(n int) {
	_ = p.bar.Add(n)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Spinner wraps a spinner for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// BatchProgress renders multi-job progress for batch runs.
type BatchProgress struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

// NewBatchProgress creates a batch progress display for total jobs.
func NewBatchProgress(name string, total int64) *BatchProgress {
	progress := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name+" "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	return &BatchProgress{progress: progress, bar: bar}
}

// Increment marks one job finished.
func (b *BatchProgress) Increment() {
	b.bar.Increment()
}

// Wait blocks until the bar has rendered its final state.
func (b *BatchProgress) Wait() {
	b.progress.Wait()
}
