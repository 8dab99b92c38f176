package fileop

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by setters that only apply before Start.
	ErrAlreadyStarted = errors.New("operation already started")
	// ErrFinished is returned when a finished operation is reconfigured.
	ErrFinished = errors.New("operation finished")
)

// ItemError is a per-item failure. It never ends an operation by itself;
// the error callback decides that.
type ItemError struct {
	Err  error
	Path string
	Op   string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
