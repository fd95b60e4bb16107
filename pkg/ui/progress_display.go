package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"instacomments/pkg/comments"
)

// ProgressDisplay renders run progress on a terminal. It implements
// comments.ProgressSink and only ever writes; it never affects the run.
type ProgressDisplay struct {
	mu          sync.Mutex
	w           io.Writer
	bar         progress.Model
	shortcode   string
	startTime   time.Time
	last        comments.Progress
	warnings    int
	interactive bool
	lineWidth   int
}

// NewProgressDisplay creates a display for one shortcode. When interactive is
// true the progress line is redrawn in place, otherwise one line per page is written.
func NewProgressDisplay(w io.Writer, shortcode string, interactive bool) *ProgressDisplay {
	return &ProgressDisplay{
		w:           w,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(24)),
		shortcode:   shortcode,
		startTime:   time.Now(),
		interactive: interactive,
	}
}

func (p *ProgressDisplay) OnPage(prog comments.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = prog
	p.printProgress()
}

func (p *ProgressDisplay) OnWarning(w comments.Warning) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.warnings++
	p.breakLine()
	fmt.Fprintf(p.w, "%s %s\n", Yellow("⚠"), w.String())
}

func (p *ProgressDisplay) OnDone(prog comments.Progress, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = prog
	p.breakLine()

	elapsed := time.Since(p.startTime)
	if err != nil {
		fmt.Fprintf(p.w, "%s Stopped after %d pages with %d comments (%s)\n",
			Red("✗"), prog.Page, prog.Comments, formatDuration(elapsed))
		return
	}

	fmt.Fprintf(p.w, "%s Collected %d comments from %d pages in %s\n",
		Green("✓"), prog.Comments, prog.Page, formatDuration(elapsed))
	if p.warnings > 0 {
		fmt.Fprintf(p.w, "  %s %d parents with incomplete replies\n", Dim("•"), p.warnings)
	}
}

// printProgress prints the progress line for the latest page
func (p *ProgressDisplay) printProgress() {
	line := p.progressLine()

	if !p.interactive {
		fmt.Fprintln(p.w, line)
		return
	}

	p.redraw(line)
}

// redraw overwrites the current terminal line, padding with spaces when the
// previous line was wider. Widths are measured in cells, not bytes.
func (p *ProgressDisplay) redraw(line string) {
	width := lipgloss.Width(line)
	pad := ""
	if n := p.lineWidth - width; n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.lineWidth = width
}

func (p *ProgressDisplay) progressLine() string {
	prog := p.last
	parts := []string{Cyan(p.shortcode)}

	if prog.Max > 0 {
		ratio := float64(prog.Comments) / float64(prog.Max)
		if ratio > 1 {
			ratio = 1
		}
		parts = append(parts, p.bar.ViewAs(ratio), fmt.Sprintf("%d/%d", prog.Comments, prog.Max))
	} else {
		parts = append(parts, fmt.Sprintf("%d comments", prog.Comments))
	}

	parts = append(parts, fmt.Sprintf("page %d", prog.Page))

	if elapsed := time.Since(p.startTime); elapsed >= time.Second {
		parts = append(parts, fmt.Sprintf("%.1f/min", float64(prog.Comments)/elapsed.Minutes()))
	}
	if p.warnings > 0 {
		parts = append(parts, Yellow(fmt.Sprintf("%d warnings", p.warnings)))
	}
	if !prog.HasNext {
		parts = append(parts, Dim("done"))
	}

	return strings.Join(parts, " • ")
}

// breakLine ends an in-place progress line before other output
func (p *ProgressDisplay) breakLine() {
	if p.interactive && p.lineWidth > 0 {
		fmt.Fprintln(p.w)
		p.lineWidth = 0
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
