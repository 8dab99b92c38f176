package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/ui"
)

type feedEntry struct {
	time   time.Time
	taskID string
	path   string
	errMsg string
	kind   event.Kind
	state  event.State
}

type feedView struct {
	entries      []feedEntry // unbounded history
	errors       []feedEntry // never evicted
	scrollOffset int         // viewport offset into entries
	autoScroll   bool        // follow new entries
}

func newFeedView() feedView {
	return feedView{autoScroll: true}
}

func (f *feedView) handleEvent(ev event.Event) {
	e := feedEntry{
		time:   ev.Timestamp,
		taskID: ev.TaskID,
		kind:   ev.Kind,
		state:  ev.State,
		path:   ev.Path,
	}
	if ev.State == event.Error {
		e.errMsg = "error"
		if ev.Error != nil {
			e.errMsg = ev.Error.Error()
		}
		f.errors = append(f.errors, e)
	}
	f.entries = append(f.entries, e)
}

// scrollDown moves the viewport down one line and disables autoScroll.
func (f *feedView) scrollDown() {
	f.autoScroll = false
	f.scrollOffset++
}

// scrollUp moves the viewport up one line and disables autoScroll.
func (f *feedView) scrollUp() {
	f.autoScroll = false
	if f.scrollOffset > 0 {
		f.scrollOffset--
	}
}

// scrollToTop jumps to the first entry.
func (f *feedView) scrollToTop() {
	f.autoScroll = false
	f.scrollOffset = 0
}

// scrollToBottom jumps to the most recent entry and re-enables autoScroll.
func (f *feedView) scrollToBottom() {
	f.autoScroll = true
}

func (f *feedView) view(height int) string {
	errCount := min(len(f.errors), 5)
	dividers := 0
	if errCount > 0 {
		dividers++
	}
	if len(f.entries) > 0 {
		dividers++
	}
	entriesHeight := max(height-errCount-dividers, 1)

	maxOffset := max(len(f.entries)-entriesHeight, 0)
	if f.autoScroll {
		f.scrollOffset = maxOffset
	}
	f.scrollOffset = min(max(f.scrollOffset, 0), maxOffset)

	var b strings.Builder
	if len(f.entries) > 0 {
		b.WriteString(styleDivider.Render("─ events (" + ui.FormatCount(int64(len(f.entries))) + ")"))
		b.WriteByte('\n')
		end := min(f.scrollOffset+entriesHeight, len(f.entries))
		for _, e := range f.entries[f.scrollOffset:end] {
			b.WriteString(renderEntry(e))
			b.WriteByte('\n')
		}
	}

	// Errors stay pinned at the bottom.
	if errCount > 0 {
		b.WriteString(styleDivider.Render("─ errors (" + ui.FormatCount(int64(len(f.errors))) + ")"))
		b.WriteByte('\n')
		for _, e := range f.errors[len(f.errors)-errCount:] {
			line := fmt.Sprintf("  %s  %s  %s  %s",
				styleIconFailed.Render("✗"),
				styleFileSize.Render(e.taskID),
				styleErrorPath.Render(e.path),
				styleError.Render(e.errMsg))
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderEntry(e feedEntry) string {
	icon := stateIcon(e.state)
	line := fmt.Sprintf("  %s  %s  %s  %-8s %s",
		icon,
		styleFileSize.Render(e.time.Format(time.TimeOnly)),
		styleFileSize.Render(e.taskID),
		e.kind,
		e.state)
	if e.path != "" {
		line += "  " + styledPath(e.path)
	}
	if e.errMsg != "" {
		line += "  " + styleError.Render(e.errMsg)
	}
	return line
}

func stateIcon(st event.State) string {
	switch st {
	case event.Finish:
		return styleIconDone.Render("✓")
	case event.Error:
		return styleIconFailed.Render("✗")
	case event.Paused, event.Queued:
		return styleIconSkipped.Render("–")
	case event.QueryOverwrite:
		return styleQuery.Render("?")
	default:
		return styleInFlight.Render("⟩")
	}
}

func styledPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return styleFilePath.Render(base)
	}
	return styleFileDir.Render(strings.TrimSuffix(dir, "/")+"/") + styleFilePath.Render(base)
}
