package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/task"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

const (
	sparklineWidth   = 16
	progressBarWidth = 20
	minPathWidth     = 20
	historyLen       = 64
	hudMinInterval   = 50 * time.Millisecond // don't redraw faster than this
)

type hudTask struct {
	d       task.Display
	history []float64
}

// hudPresenter draws a block of two lines per live task that redraws in
// place, and prints a summary line into the scrollback as each task
// finishes. Conflict prompts suspend the block until answered.
type hudPresenter struct {
	w         io.Writer
	prompt    *Prompter
	pathWidth int

	order        []string
	tasks        map[string]*hudTask
	hudDrawn     bool
	hudLineCount int
	lastHUDDraw  time.Time
	step         int
	asking       int
	mu           sync.Mutex
}

func newHUDPresenter(w io.Writer, prompt *Prompter, width int) *hudPresenter {
	if width <= 0 {
		width = 80
	}
	return &hudPresenter{
		w:         w,
		prompt:    prompt,
		pathWidth: max(width-60, minPathWidth),
		tasks:     make(map[string]*hudTask),
	}
}

func (p *hudPresenter) Update(d task.Display) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[d.ID]
	if !ok {
		t = &hudTask{}
		p.tasks[d.ID] = t
		p.order = append(p.order, d.ID)
	}
	wasFinished := t.d.Finished
	t.d = d
	if d.Kind.Transfers() && !d.Finished {
		t.history = append(t.history, d.Speed)
		if len(t.history) > historyLen {
			t.history = t.history[len(t.history)-historyLen:]
		}
	}

	if d.Finished && !wasFinished && p.asking == 0 {
		p.clearHUD()
		p.printFinished(d)
		p.drawHUD()
		return
	}
	p.maybeDrawHUD()
}

func (p *hudPresenter) printFinished(d task.Display) {
	fmt.Fprintf(p.w, "%s%s%s  %s\n", ansiDim, d.ID, ansiReset, CompletionSummary(d))
}

func (p *hudPresenter) Ask(d task.Display, q *conflict.Query) bool {
	if p.prompt == nil {
		return false
	}
	p.mu.Lock()
	p.asking++
	p.clearHUD()
	p.mu.Unlock()

	go func() {
		p.prompt.answer(d, q)
		p.mu.Lock()
		p.asking--
		p.drawHUD()
		p.mu.Unlock()
	}()
	return true
}

func (p *hudPresenter) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tasks, id)
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.drawHUD()
}

// maybeDrawHUD redraws the HUD if enough time has passed since the last draw.
func (p *hudPresenter) maybeDrawHUD() {
	if time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

// drawHUD must be called with mu held.
func (p *hudPresenter) drawHUD() {
	if p.asking > 0 {
		return
	}
	p.clearHUD()
	p.step++

	lines := 0
	for _, id := range p.order {
		t := p.tasks[id]
		d := t.d

		var bar string
		pct := fmt.Sprintf("%3d%%", d.Percent)
		if d.Indeterminate {
			bar = IndeterminateBar(p.step, progressBarWidth)
			pct = " --%"
		} else {
			bar = ProgressBar(float64(d.Percent)/100, progressBarWidth)
		}

		// Line 1: id, kind, status, progress bar, tally.
		fmt.Fprintf(p.w, "%s%s%s  %-11s %s%-10s%s %s %s  %s\n",
			ansiDim, d.ID, ansiReset,
			d.Kind, ansiBold, d.Status, ansiReset,
			pct, bar, d.Tally)
		lines++

		// Line 2: speed sparkline, speed, eta, elapsed, current file.
		spark := Sparkline(t.history, sparklineWidth)
		eta := d.ETACurrent
		if eta == "" {
			eta = "--"
		}
		fmt.Fprintf(p.w, "          %s  %s  eta %s  %s  %s\n",
			spark, d.SpeedCurrent, eta, d.Elapsed, styledPath(TruncPath(d.CurrentFile, p.pathWidth)))
		lines++
	}

	p.hudDrawn = lines > 0
	p.hudLineCount = lines
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	// Move cursor up N lines and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", p.hudLineCount)
	p.hudDrawn = false
}

// styledPath returns the path with the directory portion dimmed and the
// filename in normal weight, making the actual filename stand out.
func styledPath(path string) string {
	if path == "" {
		return ""
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." {
		return base
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return ansiDim + dir + ansiReset + base
}
