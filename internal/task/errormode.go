package task

import "fmt"

// ErrorMode decides whether a per-item error aborts the operation.
type ErrorMode int32

const (
	// StopOnFirst aborts on the first error of an operation only.
	StopOnFirst ErrorMode = iota
	// StopOnAny aborts on every error.
	StopOnAny
	// Continue never aborts because of an error.
	Continue
)

var errorModeNames = [...]string{
	StopOnFirst: "stop-on-first",
	StopOnAny:   "stop-on-any",
	Continue:    "continue",
}

func (m ErrorMode) String() string {
	if m >= 0 && int(m) < len(errorModeNames) {
		return errorModeNames[m]
	}
	return "unknown"
}

// ParseErrorMode maps a mode name back to its ErrorMode.
func ParseErrorMode(s string) (ErrorMode, error) {
	for m, name := range errorModeNames {
		if name == s {
			return ErrorMode(m), nil
		}
	}
	return StopOnFirst, fmt.Errorf("unknown error mode %q", s)
}

// continueAfter reports whether the n-th error of an operation lets it go on.
func (m ErrorMode) continueAfter(n int64) bool {
	switch m {
	case StopOnAny:
		return false
	case StopOnFirst:
		return n > 1
	default:
		return true
	}
}
