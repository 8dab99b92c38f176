package task

import (
	"bytes"
	"sync"
)

// ErrorLog is a task's append-only text log of per-item errors and exec
// output. Once it grows past its byte or line ceiling the oldest lines are
// dropped. Safe for concurrent use.
type ErrorLog struct {
	mu       sync.Mutex
	buf      []byte
	lines    int
	maxSize  int64
	maxLines int
}

// NewErrorLog creates a log bounded by maxSize bytes and maxLines lines.
// Zero disables that bound.
func NewErrorLog(maxSize int64, maxLines int) *ErrorLog {
	return &ErrorLog{maxSize: maxSize, maxLines: maxLines}
}

func (l *ErrorLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, p...)
	l.lines += bytes.Count(p, []byte{'\n'})
	l.trim()
	return len(p), nil
}

// trim must be called with mu held.
func (l *ErrorLog) trim() {
	if !l.over() {
		return
	}
	for l.over() {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 || i == len(l.buf)-1 {
			break
		}
		l.buf = l.buf[i+1:]
		l.lines--
	}
	// A single line longer than the ceiling keeps its tail.
	if l.maxSize > 0 && int64(len(l.buf)) > l.maxSize {
		l.buf = l.buf[int64(len(l.buf))-l.maxSize:]
	}
	l.buf = bytes.Clone(l.buf)
}

func (l *ErrorLog) over() bool {
	return (l.maxLines > 0 && l.lines > l.maxLines) || (l.maxSize > 0 && int64(len(l.buf)) > l.maxSize)
}

func (l *ErrorLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(l.buf)
}

// Len returns the current size in bytes.
func (l *ErrorLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}
