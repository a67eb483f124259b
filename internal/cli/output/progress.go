package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

// ProgressBar displays completed operations out of a known total. It is
// safe for concurrent use and redraws only when the shown percentage
// changes.
type ProgressBar struct {
	w       io.Writer
	title   string
	total   int64
	current int64
	width   int
	shown   int
	mu      sync.Mutex
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(w io.Writer, title string) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		width: 40,
		shown: -1,
	}
}

// SetTotal sets the number of operations expected.
func (p *ProgressBar) SetTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Update sets the progress.
func (p *ProgressBar) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.total = total
	p.render(true)
}

// Increment adds n completed operations.
func (p *ProgressBar) Increment(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.render(false)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	p.render(true)
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render(force bool) {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s", p.title, humanize.Comma(p.current))
		return
	}

	percent := float64(p.current) / float64(p.total)
	if percent > 1 {
		percent = 1
	}
	whole := int(percent * 100)
	if !force && whole == p.shown {
		return
	}
	p.shown = whole

	filled := int(float64(p.width) * percent)
	empty := p.width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)

	fmt.Fprintf(p.w, "\r%s [%s] %3d%% (%s/%s)",
		p.title,
		bar,
		whole,
		humanize.Comma(p.current),
		humanize.Comma(p.total),
	)
}
