// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar implements progress bar functionality that is driven by
// the caller. Progress is reported with Set, which redraws the bar on
// the underlying writer. ProgressBar does not use concurrency and
// should only be driven from a single goroutine.
type ProgressBar struct {
	out             io.Writer
	width           float64
	maxProgress     float64
	currentProgress float64
	bar             strings.Builder
	startTime       time.Time
	closed          bool
}

// New returns a new ProgressBar that is width characters wide, reaches
// 100% once max units of progress are reported and draws to out.
func New(out io.Writer, width, max int) *ProgressBar {
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		out:         out,
		width:       float64(width),
		maxProgress: float64(max),
		startTime:   time.Now(),
	}
}

// Set sets the current progress and redraws the bar. Progress beyond
// the maximum is clipped.
func (p *ProgressBar) Set(done int) {
	if p.closed {
		return
	}
	progress := float64(done)
	if progress > p.maxProgress {
		progress = p.maxProgress
	}
	p.currentProgress = progress
	p.display()
}

// Increment increments the internal progress counter by one unit and
// redraws the bar
func (p *ProgressBar) Increment() {
	p.Set(int(p.currentProgress) + 1)
}

// Callback adapts the bar to a func(done, total int) progress hook. The
// total reported by the hook replaces the bar's maximum.
func (p *ProgressBar) Callback() func(done, total int) {
	return func(done, total int) {
		if total > 0 {
			p.maxProgress = float64(total)
		}
		p.Set(done)
	}
}

// Close finishes the bar by moving the cursor to the next line. Later
// calls to Set are ignored.
func (p *ProgressBar) Close() {
	if p.closed {
		return
	}
	p.closed = true
	fmt.Fprintln(p.out)
}

// String returns the most recently drawn bar
func (p *ProgressBar) String() string {
	return p.bar.String()
}

func (p *ProgressBar) display() {
	p.bar.Reset()
	p.bar.WriteString("|")

	currentProg := p.currentProgress / p.maxProgress * p.width
	for i := 0.0; i < currentProg; i++ {
		p.bar.WriteString("█")
	}
	for i := currentProg; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	p.bar.WriteString(fmt.Sprintf("| [%.2f%v | elapsed: %v]",
		p.currentProgress/p.maxProgress*100, "%",
		time.Since(p.startTime).Truncate(time.Second)))

	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.bar.String())
}
