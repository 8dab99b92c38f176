package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/task"
	"github.com/bamsammich/spacetask/internal/ui"
)

type viewMode int

const (
	viewTasks viewMode = iota
	viewFeed
	viewDetail
)

const refreshInterval = 100 * time.Millisecond

// Bubble Tea messages.
type tickMsg time.Time
type saveResultMsg struct {
	err  error
	path string
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type inputPurpose int

const (
	inputSave inputPurpose = iota
	inputRename
)

// inputModal manages the one-line text input used for the log file name
// and for renaming a conflicting destination.
type inputModal struct {
	label   string
	input   string
	taskID  string
	cursor  int
	purpose inputPurpose
	active  bool
}

func (s *inputModal) open(purpose inputPurpose, label, taskID, initial string) {
	*s = inputModal{
		active:  true,
		purpose: purpose,
		label:   label,
		taskID:  taskID,
		input:   initial,
		cursor:  len(initial),
	}
}

func (s *inputModal) insertRune(r rune) {
	s.input = s.input[:s.cursor] + string(r) + s.input[s.cursor:]
	s.cursor += len(string(r))
}

func (s *inputModal) backspace() {
	if s.cursor > 0 {
		s.input = s.input[:s.cursor-1] + s.input[s.cursor:]
		s.cursor--
	}
}

func (s *inputModal) deleteChar() {
	if s.cursor < len(s.input) {
		s.input = s.input[:s.cursor] + s.input[s.cursor+1:]
	}
}

func (s *inputModal) moveLeft() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *inputModal) moveRight() {
	if s.cursor < len(s.input) {
		s.cursor++
	}
}

func (s *inputModal) render() string {
	prompt := styleSavePrompt.Render(s.label + ": ")
	before := s.input[:s.cursor]
	after := s.input[s.cursor:]
	cursor := styleSaveInput.Render("█")
	return "  " + prompt + styleSaveInput.Render(before) + cursor + styleSaveInput.Render(after)
}

// Model is the root Bubble Tea model.
type Model struct {
	box      *inbox
	controls Controls

	tasks   []task.Display
	queries []pendingQuery // head is the one being asked
	feed    feedView
	detail  detailView
	input   inputModal

	statusMsg string // transient notification
	mode      viewMode
	selected  int
	width     int
	height    int
	step      int // animation frame for indeterminate bars
	quitting  bool
}

// NewModel creates a new TUI model.
func NewModel(box *inbox, controls Controls) Model {
	return Model{
		box:      box,
		controls: controls,
		feed:     newFeedView(),
		detail:   newDetailView(),
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.apply(m.box.drain())
		m.step++
		return m, tickCmd()

	case saveResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("save failed: %v", msg.err)
		} else {
			m.statusMsg = fmt.Sprintf("saved to %s", msg.path)
		}
		return m, nil
	}

	return m, nil
}

// apply folds one inbox batch into the model.
func (m *Model) apply(b batch) {
	for _, d := range b.displays {
		i := m.indexOf(d.ID)
		if i < 0 {
			m.tasks = append(m.tasks, d)
		} else {
			m.tasks[i] = d
		}
		m.detail.record(d)
	}
	for _, ev := range b.events {
		m.feed.handleEvent(ev)
	}
	m.queries = append(m.queries, b.queries...)
	for _, id := range b.removed {
		if i := m.indexOf(id); i >= 0 {
			m.tasks = slices.Delete(m.tasks, i, i+1)
		}
		m.detail.forget(id)
	}

	// A finished or removed task no longer waits on its query.
	m.queries = slices.DeleteFunc(m.queries, func(pq pendingQuery) bool {
		i := m.indexOf(pq.d.ID)
		return i < 0 || m.tasks[i].Finished
	})
	if m.input.active && m.input.purpose == inputRename &&
		(len(m.queries) == 0 || m.queries[0].d.ID != m.input.taskID) {
		m.input.active = false
	}
	m.selected = min(max(m.selected, 0), max(len(m.tasks)-1, 0))
}

func (m Model) indexOf(id string) int {
	return slices.IndexFunc(m.tasks, func(d task.Display) bool { return d.ID == id })
}

func (m Model) current() (task.Display, bool) {
	if m.selected < 0 || m.selected >= len(m.tasks) {
		return task.Display{}, false
	}
	return m.tasks[m.selected], true
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// When the input modal is active, capture all input.
	if m.input.active {
		return m.handleInputKey(msg)
	}

	key := msg.String()
	if len(m.queries) > 0 {
		if dec, ok := ui.DecisionForKey(key); ok {
			return m.answer(dec)
		}
	}

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "t":
		m.mode = viewTasks
		m.statusMsg = ""
		return m, nil

	case "f":
		m.mode = viewFeed
		m.statusMsg = ""
		return m, nil

	case "d":
		m.mode = viewDetail
		m.statusMsg = ""
		return m, nil

	case "j", "down":
		if m.mode == viewFeed {
			m.feed.scrollDown()
		} else if m.selected < len(m.tasks)-1 {
			m.selected++
		}
		return m, nil

	case "k", "up":
		if m.mode == viewFeed {
			m.feed.scrollUp()
		} else if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "G":
		if m.mode == viewFeed {
			m.feed.scrollToBottom()
		}
		return m, nil

	case "g":
		if m.mode == viewFeed {
			m.feed.scrollToTop()
		}
		return m, nil

	case "p":
		return m.act("pause", func(c Controls, d task.Display) (string, error) {
			if d.State.Suspended() {
				return "resumed " + d.ID, c.Resume(d.ID)
			}
			return "paused " + d.ID, c.Pause(d.ID)
		})

	case "u":
		return m.act("requeue", func(c Controls, d task.Display) (string, error) {
			return "requeued " + d.ID, c.Requeue(d.ID)
		})

	case "x":
		return m.act("cancel", func(c Controls, d task.Display) (string, error) {
			return "cancelled " + d.ID, c.Cancel(d.ID)
		})

	case "enter":
		return m.act("acknowledge", func(c Controls, d task.Display) (string, error) {
			return "acknowledged " + d.ID, c.Acknowledge(d.ID)
		})

	case "e":
		return m.act("error mode", func(c Controls, d task.Display) (string, error) {
			next := nextErrorMode(d.ErrorMode)
			return fmt.Sprintf("%s: on error %s", d.ID, next), c.SetErrorMode(d.ID, next)
		})

	case "s":
		if d, ok := m.current(); ok {
			name := fmt.Sprintf("spacetask-%s-%s.log", d.ID, time.Now().Format("2006-01-02-150405"))
			m.input.open(inputSave, "Save log to", d.ID, name)
			m.statusMsg = ""
		}
		return m, nil
	}

	return m, nil
}

// act applies fn to the selected task and reports the outcome in the
// status line.
func (m Model) act(name string, fn func(Controls, task.Display) (string, error)) (tea.Model, tea.Cmd) {
	d, ok := m.current()
	if !ok {
		return m, nil
	}
	if m.controls == nil {
		m.statusMsg = name + ": not available"
		return m, nil
	}
	msg, err := fn(m.controls, d)
	if err != nil {
		m.statusMsg = fmt.Sprintf("%s failed: %v", name, err)
		return m, nil
	}
	m.statusMsg = msg
	return m, nil
}

func nextErrorMode(mode task.ErrorMode) task.ErrorMode {
	switch mode {
	case task.StopOnFirst:
		return task.StopOnAny
	case task.StopOnAny:
		return task.Continue
	default:
		return task.StopOnFirst
	}
}

// answer responds to the query at the head of the queue. Renaming first
// asks for the new name.
func (m Model) answer(dec conflict.Decision) (tea.Model, tea.Cmd) {
	pq := m.queries[0]
	if dec == conflict.RenameTo {
		m.input.open(inputRename, "Rename to", pq.d.ID, filepath.Base(pq.q.Candidate))
		return m, nil
	}
	pq.q.Respond(dec, "")
	m.queries = m.queries[1:]
	m.statusMsg = fmt.Sprintf("%s: %s", pq.d.ID, dec)
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.input.active = false
		m.statusMsg = ""
		return m, nil

	case tea.KeyEnter:
		in := m.input
		if strings.TrimSpace(in.input) == "" {
			return m, nil
		}
		m.input.active = false
		if in.purpose == inputSave {
			return m, m.writeLog(in.taskID, in.input)
		}
		pq := m.queries[0]
		pq.q.Respond(conflict.RenameTo, in.input)
		m.queries = m.queries[1:]
		m.statusMsg = fmt.Sprintf("%s: rename to %s", pq.d.ID, in.input)
		return m, nil

	case tea.KeyBackspace:
		m.input.backspace()
		return m, nil

	case tea.KeyDelete:
		m.input.deleteChar()
		return m, nil

	case tea.KeyLeft:
		m.input.moveLeft()
		return m, nil

	case tea.KeyRight:
		m.input.moveRight()
		return m, nil

	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.input.insertRune(r)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) writeLog(id, path string) tea.Cmd {
	controls := m.controls
	return func() tea.Msg {
		if controls == nil {
			return saveResultMsg{path: path, err: fmt.Errorf("no log for %s", id)}
		}
		text, err := controls.Log(id)
		if err != nil {
			return saveResultMsg{path: path, err: err}
		}
		err = os.WriteFile(path, []byte(text), 0o644) //nolint:gosec // user-chosen path for log output
		return saveResultMsg{path: path, err: err}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Header (1 line).
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')

	query := m.renderQuery()
	queryLines := strings.Count(query, "\n")

	// header (1) + footer (1) + input/status (1)
	contentHeight := max(m.height-3-queryLines, 3)

	switch m.mode {
	case viewTasks:
		b.WriteString(m.renderTasks(contentHeight))
	case viewFeed:
		b.WriteString(m.feed.view(contentHeight))
	case viewDetail:
		d, ok := m.current()
		b.WriteString(m.detail.view(m.width, d, ok))
	}

	b.WriteString(query)

	switch {
	case m.input.active:
		b.WriteString(m.input.render())
	case m.statusMsg != "":
		b.WriteString(styleStatus.Render("  " + m.statusMsg))
	}
	b.WriteByte('\n')

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	var running, waiting, errs int
	for _, d := range m.tasks {
		switch d.State {
		case event.Running, event.QueryOverwrite:
			running++
		case event.Paused, event.Queued:
			waiting++
		}
		if d.Errors > 0 {
			errs++
		}
	}
	header := fmt.Sprintf("  %s  %d tasks  %d running  %d waiting",
		styleHeaderLabel.Render("spacetask"), len(m.tasks), running, waiting)
	if errs > 0 {
		header += "  " + styleError.Render(fmt.Sprintf("%d with errors", errs))
	}
	if n := len(m.queries); n > 0 {
		header += "  " + styleQuery.Render(fmt.Sprintf("%d conflict(s)", n))
	}
	return styleHeader.Render(header)
}

// renderTasks shows two lines per task and keeps the selection in view.
func (m Model) renderTasks(height int) string {
	if len(m.tasks) == 0 {
		return styleFileSize.Render("  no tasks") + "\n"
	}
	visible := max(height/2, 1)
	start := max(m.selected-visible+1, 0)
	end := min(start+visible, len(m.tasks))

	pathWidth := max(m.width-40, 20)
	var b strings.Builder
	for i := start; i < end; i++ {
		d := m.tasks[i]
		cursor := "  "
		id := styleFileSize.Render(d.ID)
		if i == m.selected {
			cursor = styleSelected.Render("▸ ")
			id = styleSelected.Render(d.ID)
		}
		status := d.Status
		switch {
		case d.Errors > 0:
			status = styleError.Render(status)
		case d.Finished:
			status = styleIconDone.Render(status)
		case d.State.Suspended():
			status = styleIconSkipped.Render(status)
		case d.State == event.QueryOverwrite:
			status = styleQuery.Render(status)
		}
		fmt.Fprintf(&b, "%s%s  %-8s %s  %s  %s\n",
			cursor, id, d.Kind, progressCell(d, m.step, 12), d.Tally, status)

		detail := styledPath(ui.TruncPath(d.CurrentFile, pathWidth))
		if d.CurrentFile == "" {
			detail = styleFileDir.Render(d.DstDir)
		}
		if d.SpeedCurrent != "" {
			detail += "  " + styleFileSpeed.Render(d.SpeedCurrent)
		}
		if d.ETACurrent != "" {
			detail += "  " + styleFileSize.Render("eta "+d.ETACurrent)
		}
		b.WriteString("    " + detail + "\n")
	}
	return b.String()
}

func (m Model) renderQuery() string {
	if len(m.queries) == 0 {
		return ""
	}
	pq := m.queries[0]
	var b strings.Builder
	b.WriteString(styleDivider.Render("─ conflict"))
	b.WriteByte('\n')
	lines := ui.DescribeQuery(pq.q)
	fmt.Fprintf(&b, "  %s  %s\n", styleSelected.Render(pq.d.ID), styleQuery.Render(lines[0]))
	for _, l := range lines[1:] {
		b.WriteString("  " + styleFileSize.Render(l) + "\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	type keybind struct {
		key   string
		label string
	}

	var binds []keybind
	switch {
	case m.input.active:
		binds = []keybind{{"enter", "confirm"}, {"esc", "cancel"}}
	case len(m.queries) > 0:
		for _, k := range ui.ConflictKeys {
			binds = append(binds, keybind{k.Key, k.Label})
		}
	default:
		binds = []keybind{
			{"q", "quit"},
			{"t/f/d", "tasks/feed/detail"},
			{"j/k", "select"},
			{"p", "pause"},
			{"u", "requeue"},
			{"x", "cancel"},
			{"e", "on error"},
			{"enter", "dismiss"},
			{"s", "save log"},
		}
	}

	var parts []string
	for _, kb := range binds {
		parts = append(parts,
			styleKeybindKey.Render(kb.key)+" "+styleKeybindLabel.Render(kb.label))
	}

	return "  " + strings.Join(parts, "   ")
}
