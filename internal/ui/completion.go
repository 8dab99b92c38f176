package ui

import (
	"fmt"

	"github.com/bamsammich/spacetask/internal/task"
)

// CompletionSummary builds the final line for a finished task.
// Format: Done ✓  copy  4.0 MiB / 4.0 MiB (3/3)  avg 1.2 MiB/s  time 0:03  errors 0
func CompletionSummary(d task.Display) string {
	icon := "✓"
	if d.Errors > 0 || d.Status == task.StatusStopped {
		icon = "✗"
	}

	base := fmt.Sprintf("%s %s  %s  %s", d.Status, icon, d.Kind, d.Tally)
	if d.SpeedAverage != "" {
		base += "  avg " + d.SpeedAverage
	}
	base += fmt.Sprintf("  time %s  errors %d", d.Elapsed, d.Errors)
	return base
}
