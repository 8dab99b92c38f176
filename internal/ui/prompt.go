package ui

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/task"
)

// ConflictKeys lists the single-key answers to a conflict prompt, in the
// order they are shown.
var ConflictKeys = []struct {
	Key      string
	Label    string
	Decision conflict.Decision
}{
	{"o", "overwrite", conflict.OverwriteOnce},
	{"O", "overwrite all", conflict.OverwriteAllDecision},
	{"s", "skip", conflict.SkipOnce},
	{"S", "skip all", conflict.SkipAllDecision},
	{"r", "rename", conflict.RenameTo},
	{"a", "auto-rename", conflict.AutoRenameOnce},
	{"A", "auto-rename all", conflict.AutoRenameAllDecision},
	{"p", "pause", conflict.Pause},
	{"c", "cancel", conflict.Cancel},
}

// DecisionForKey maps a prompt key to its decision.
func DecisionForKey(key string) (conflict.Decision, bool) {
	for _, k := range ConflictKeys {
		if k.Key == key {
			return k.Decision, true
		}
	}
	return 0, false
}

// ConflictChoices renders the key legend of a conflict prompt.
func ConflictChoices() string {
	parts := make([]string, len(ConflictKeys))
	for i, k := range ConflictKeys {
		parts[i] = fmt.Sprintf("[%s] %s", k.Key, k.Label)
	}
	return strings.Join(parts, "  ")
}

// DescribeQuery renders a conflict for a prompt: what collides and, for two
// regular files, which one is newer and larger.
func DescribeQuery(q *conflict.Query) []string {
	lines := []string{
		fmt.Sprintf("%s: %s", q.Collision, q.Dst),
		fmt.Sprintf("  source: %s", q.Src),
	}
	if c := q.Compare; c != nil {
		lines = append(lines,
			fmt.Sprintf("  source %s, %s%s", FormatBytes(c.SrcSize), c.SrcModTime.Format(time.DateTime), marker(c, conflict.Source)),
			fmt.Sprintf("  target %s, %s%s", FormatBytes(c.DstSize), c.DstModTime.Format(time.DateTime), marker(c, conflict.Destination)))
	}
	if q.Candidate != "" {
		lines = append(lines, fmt.Sprintf("  auto-rename: %s", filepath.Base(q.Candidate)))
	}
	return lines
}

func marker(c *conflict.Comparison, side conflict.Side) string {
	var tags []string
	if c.Newer() == side {
		tags = append(tags, "newer")
	}
	if c.Larger() == side {
		tags = append(tags, "larger")
	}
	if len(tags) == 0 {
		return ""
	}
	return " (" + strings.Join(tags, ", ") + ")"
}

// Prompter answers conflict queries from line input. Queries from several
// tasks are asked one at a time.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex
}

// NewPrompter creates a Prompter reading answers from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask starts prompting for q on its own goroutine and returns at once.
func (p *Prompter) Ask(d task.Display, q *conflict.Query) {
	go p.answer(d, q)
}

func (p *Prompter) answer(d task.Display, q *conflict.Query) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n[%s] %s\n", d.ID, strings.Join(DescribeQuery(q), "\n"))
	for {
		fmt.Fprintf(p.out, "%s\n> ", ConflictChoices())
		line, err := p.in.ReadString('\n')
		key := strings.TrimSpace(line)
		if err != nil && key == "" {
			// Input closed; nobody is left to ask.
			q.Respond(conflict.SkipOnce, "")
			return
		}
		dec, ok := DecisionForKey(key)
		if !ok {
			fmt.Fprintf(p.out, "unknown answer %q\n", key)
			continue
		}
		var name string
		if dec == conflict.RenameTo {
			suggested := filepath.Base(q.Candidate)
			fmt.Fprintf(p.out, "new name [%s]: ", suggested)
			line, _ := p.in.ReadString('\n')
			if name = strings.TrimSpace(line); name == "" {
				name = suggested
			}
		}
		q.Respond(dec, name)
		return
	}
}
