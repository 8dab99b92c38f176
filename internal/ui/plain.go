package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/task"
)

// progressEvery is how often a running task's progress line repeats when
// its status has not changed.
const progressEvery = 5 * time.Second

// plainPresenter writes one line per status change to stdout and a
// periodic progress line per running task to stderr. It suits pipes and
// log files.
type plainPresenter struct {
	w      io.Writer
	errW   io.Writer
	prompt *Prompter
	now    func() time.Time

	mu        sync.Mutex
	status    map[string]string
	lastPrint map[string]time.Time
}

func newPlainPresenter(w, errW io.Writer, prompt *Prompter) *plainPresenter {
	return &plainPresenter{
		w:         w,
		errW:      errW,
		prompt:    prompt,
		now:       time.Now,
		status:    make(map[string]string),
		lastPrint: make(map[string]time.Time),
	}
}

func (p *plainPresenter) Update(d task.Display) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d.Finished {
		if p.status[d.ID] != d.Status {
			p.status[d.ID] = d.Status
			fmt.Fprintf(p.w, "%s  %s\n", d.ID, CompletionSummary(d))
		}
		return
	}
	if p.status[d.ID] != d.Status {
		p.status[d.ID] = d.Status
		fmt.Fprintf(p.w, "%s  %s  %s\n", d.ID, d.Kind, d.Status)
	}
	now := p.now()
	if now.Sub(p.lastPrint[d.ID]) < progressEvery {
		return
	}
	p.lastPrint[d.ID] = now
	p.printProgress(d)
}

func (p *plainPresenter) printProgress(d task.Display) {
	pct := fmt.Sprintf("%d%%", d.Percent)
	if d.Indeterminate {
		pct = "--%"
	}
	line := fmt.Sprintf("progress: %s %s %s", d.ID, pct, d.Tally)
	if d.SpeedCurrent != "" {
		line += " " + d.SpeedCurrent
	}
	if d.ETACurrent != "" {
		line += " eta " + d.ETACurrent
	}
	if d.CurrentFile != "" {
		line += "  " + d.CurrentFile
	}
	fmt.Fprintln(p.errW, line)
}

func (p *plainPresenter) Ask(d task.Display, q *conflict.Query) bool {
	if p.prompt == nil {
		return false
	}
	p.prompt.Ask(d, q)
	return true
}

func (p *plainPresenter) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.status, id)
	delete(p.lastPrint, id)
}
