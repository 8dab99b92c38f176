package task

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorLogKeepsEverythingUnderLimits(t *testing.T) {
	l := NewErrorLog(1024, 10)
	fmt.Fprintln(l, "one")
	fmt.Fprintln(l, "two")
	assert.Equal(t, "one\ntwo\n", l.String())
}

func TestErrorLogTrimsLines(t *testing.T) {
	l := NewErrorLog(0, 3)
	for i := range 5 {
		fmt.Fprintf(l, "line %d\n", i)
	}
	assert.Equal(t, "line 2\nline 3\nline 4\n", l.String())
}

func TestErrorLogTrimsBytes(t *testing.T) {
	l := NewErrorLog(16, 0)
	fmt.Fprintln(l, "aaaaaaa")
	fmt.Fprintln(l, "bbbbbbb")
	fmt.Fprintln(l, "ccccccc")
	assert.Equal(t, "bbbbbbb\nccccccc\n", l.String())
	assert.LessOrEqual(t, l.Len(), 16)
}

func TestErrorLogLongLineKeepsTail(t *testing.T) {
	l := NewErrorLog(8, 0)
	fmt.Fprint(l, "0123456789abcdef\n")
	assert.Equal(t, "9abcdef\n", l.String())
	assert.Equal(t, 8, l.Len())
}

func TestErrorLogConcurrentWrites(t *testing.T) {
	l := NewErrorLog(0, 0)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				fmt.Fprintln(l, "x")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, strings.Count(l.String(), "\n"))
}
