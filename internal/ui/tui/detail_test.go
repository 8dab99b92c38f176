package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/task"
)

func TestDetailView_RecordsTransferSpeed(t *testing.T) {
	v := newDetailView()
	d := testDisplay("a", event.Running)
	for i := range historyLen + 10 {
		d.Speed = float64(i)
		v.record(d)
	}
	assert.Len(t, v.history["a"], historyLen)
	assert.InDelta(t, float64(historyLen+9), v.history["a"][historyLen-1], 0.001)

	v.forget("a")
	assert.Empty(t, v.history)
}

func TestDetailView_IgnoresNonTransfer(t *testing.T) {
	v := newDetailView()
	d := testDisplay("a", event.Running)
	d.Kind = event.Delete
	v.record(d)

	d = testDisplay("b", event.Finish)
	d.Finished = true
	v.record(d)
	assert.Empty(t, v.history)
}

func TestDetailView_View(t *testing.T) {
	v := newDetailView()
	d := testDisplay("a", event.Running)
	d.SpeedCurrent = "2.0 MiB/s"
	d.SpeedAverage = "1.5 MiB/s"
	d.ETACurrent = "3s"
	d.ETAAverage = "4s"
	d.Errors = 2
	d.ErrorMode = task.Continue
	v.record(d)

	out := v.view(80, d, true)
	assert.Contains(t, out, "2.0 MiB/s")
	assert.Contains(t, out, "1.5 MiB/s avg")
	assert.Contains(t, out, "3s now")
	assert.Contains(t, out, "continue")
	assert.Contains(t, out, "file.txt")
	assert.Contains(t, out, "40%")
}

func TestDetailView_NoSelection(t *testing.T) {
	v := newDetailView()
	assert.Contains(t, v.view(80, task.Display{}, false), "no task selected")
}
