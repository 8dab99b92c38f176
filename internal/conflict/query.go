package conflict

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

// ErrCancelled is the error recorded when a query is answered with Cancel or
// abandoned because its operation was aborted.
var ErrCancelled = errors.New("operation cancelled at conflict prompt")

// Collision classifies the two sides of a conflict.
type Collision int

const (
	FileOverFile Collision = iota + 1
	DirOverDir
	DirOverFile
	FileOverDir
	Special
)

func (c Collision) String() string {
	switch c {
	case FileOverFile:
		return "file exists"
	case DirOverDir:
		return "folder exists"
	case DirOverFile:
		return "file exists where folder goes"
	case FileOverDir:
		return "folder exists where file goes"
	default:
		return "item exists"
	}
}

// Side names one end of a comparison.
type Side int

const (
	Same Side = iota
	Source
	Destination
)

// Comparison is the size/time decision aid offered for file-over-file
// collisions. It is display-only.
type Comparison struct {
	SrcModTime time.Time
	DstModTime time.Time
	SrcSize    int64
	DstSize    int64
}

// Newer reports which side was modified more recently.
func (c Comparison) Newer() Side {
	switch {
	case c.SrcModTime.After(c.DstModTime):
		return Source
	case c.DstModTime.After(c.SrcModTime):
		return Destination
	default:
		return Same
	}
}

// Larger reports which side is bigger.
func (c Comparison) Larger() Side {
	switch {
	case c.SrcSize > c.DstSize:
		return Source
	case c.DstSize > c.SrcSize:
		return Destination
	default:
		return Same
	}
}

// Answer carries a decision back to the suspended worker. Name is the
// free-form rename target for RenameTo.
type Answer struct {
	Name     string
	Decision Decision
}

// Query is one pending conflict. The worker raising it blocks in Wait until
// some presenter calls Respond.
type Query struct {
	Compare   *Comparison
	Src       string
	Dst       string
	Candidate string
	Collision Collision

	reply chan Answer
	once  sync.Once
}

func newQuery(src, dst, candidate string) *Query {
	q := &Query{
		Src:       src,
		Dst:       dst,
		Candidate: candidate,
		reply:     make(chan Answer, 1),
	}
	q.classify()
	return q
}

func (q *Query) classify() {
	srcInfo, srcErr := os.Lstat(q.Src)
	dstInfo, dstErr := os.Lstat(q.Dst)
	if srcErr != nil || dstErr != nil {
		q.Collision = Special
		return
	}
	srcDir, dstDir := srcInfo.IsDir(), dstInfo.IsDir()
	switch {
	case srcDir && dstDir:
		q.Collision = DirOverDir
	case srcDir:
		q.Collision = DirOverFile
	case dstDir:
		q.Collision = FileOverDir
	case srcInfo.Mode().IsRegular() && dstInfo.Mode().IsRegular():
		q.Collision = FileOverFile
		q.Compare = &Comparison{
			SrcModTime: srcInfo.ModTime(),
			DstModTime: dstInfo.ModTime(),
			SrcSize:    srcInfo.Size(),
			DstSize:    dstInfo.Size(),
		}
	default:
		q.Collision = Special
	}
}

// Respond delivers the answer. Only the first call has any effect, so a
// cancel racing a presenter reply is harmless.
func (q *Query) Respond(d Decision, name string) {
	q.once.Do(func() {
		q.reply <- Answer{Decision: d, Name: name}
	})
}

// Wait blocks until Respond is called or ctx ends; a cancelled context
// reads as Cancel.
func (q *Query) Wait(ctx context.Context) Answer {
	select {
	case a := <-q.reply:
		return a
	case <-ctx.Done():
		return Answer{Decision: Cancel}
	}
}

// Err returns ErrCancelled for a Cancel answer and nil otherwise.
func (a Answer) Err() error {
	if a.Decision == Cancel {
		return ErrCancelled
	}
	return nil
}
