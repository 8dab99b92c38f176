package event

import "time"

// State identifies the execution phase of an operation. It is also the
// payload type of the state callback the core invokes on its worker goroutine.
type State int

const (
	Running State = iota + 1
	Paused
	Queued
	SizeTimeout
	QueryOverwrite
	Error
	Finish
)

var stateNames = [...]string{
	Running:        "Running",
	Paused:         "Paused",
	Queued:         "Queued",
	SizeTimeout:    "SizeTimeout",
	QueryOverwrite: "QueryOverwrite",
	Error:          "Error",
	Finish:         "Finish",
}

func (s State) String() string {
	if s > 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Suspended reports whether the worker blocks in this state until resumed.
func (s State) Suspended() bool {
	return s == Paused || s == Queued
}

// Kind identifies the filesystem mutation an operation performs.
type Kind int

const (
	Copy Kind = iota + 1
	Move
	Link
	Delete
	Trash
	ChmodChown
	Exec
)

var kindNames = [...]string{
	Copy:       "copy",
	Move:       "move",
	Link:       "link",
	Delete:     "delete",
	Trash:      "trash",
	ChmodChown: "chmod_chown",
	Exec:       "exec",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name != "" && name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Transfers reports whether progress for this kind is measured in bytes.
func (k Kind) Transfers() bool {
	return k == Copy || k == Move
}

// Event is a lifecycle notification delivered to task subscribers.
type Event struct {
	Timestamp time.Time
	Error     error
	TaskID    string
	Path      string
	State     State
	Kind      Kind
	Errors    int
}
