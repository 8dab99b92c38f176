package tui

import (
	"fmt"
	"strings"

	"github.com/bamsammich/spacetask/internal/task"
	"github.com/bamsammich/spacetask/internal/ui"
)

const historyLen = 240

// detailView keeps a speed history per task for the sparkline.
type detailView struct {
	history map[string][]float64
}

func newDetailView() detailView {
	return detailView{history: make(map[string][]float64)}
}

func (v *detailView) record(d task.Display) {
	if !d.Kind.Transfers() || d.Finished {
		return
	}
	h := append(v.history[d.ID], d.Speed)
	if len(h) > historyLen {
		h = h[len(h)-historyLen:]
	}
	v.history[d.ID] = h
}

func (v *detailView) forget(id string) {
	delete(v.history, id)
}

func (v *detailView) view(width int, d task.Display, ok bool) string {
	if !ok {
		return styleFileSize.Render("  no task selected") + "\n"
	}
	width = max(width, 20)

	var b strings.Builder
	speed := d.SpeedCurrent
	if speed == "" {
		speed = d.Status
	}
	fmt.Fprintf(&b, "  %s  %s\n\n", styleBigNumber.Render(speed), styleHeader.Render(d.Status))

	if d.Kind.Transfers() {
		sparkWidth := max(width-4, 10)
		b.WriteString("  " + styleSparkline.Render(ui.Sparkline(v.history[d.ID], sparkWidth)))
		b.WriteString("\n\n")
	}

	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "  %s %s\n", styleKeybindLabel.Render(fmt.Sprintf("%-12s", label)), value)
	}
	row("task", d.ID+"  "+d.Kind.String())
	row("progress", fmt.Sprintf("%s  %s", progressCell(d, 0, 20), d.Tally))
	row("file", styledPath(d.CurrentFile))
	row("from", d.SrcDir)
	row("to", d.DstDir)
	if d.SpeedAverage != "" {
		row("speed", fmt.Sprintf("%s now, %s avg", d.SpeedCurrent, d.SpeedAverage))
	}
	if d.ETACurrent != "" {
		row("eta", fmt.Sprintf("%s now, %s avg", d.ETACurrent, d.ETAAverage))
	}
	row("elapsed", d.Elapsed)
	row("on error", d.ErrorMode.String())
	if d.Errors > 0 {
		row("errors", styleError.Render(fmt.Sprintf("%d", d.Errors)))
	}
	return b.String()
}

// progressCell renders the bar, bouncing while the total is unknown.
func progressCell(d task.Display, step, width int) string {
	if d.Indeterminate {
		return styleProgressFilled.Render(ui.IndeterminateBar(step, width)) + "   --%"
	}
	return styleProgressFilled.Render(ui.ProgressBar(float64(d.Percent)/100, width)) +
		fmt.Sprintf(" %3d%%", d.Percent)
}
