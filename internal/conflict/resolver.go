package conflict

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

const copyWord = "copy"

var copySuffix = regexp.MustCompile(`-` + copyWord + `(\d*)$`)

// Resolver turns collisions into resolutions. It remembers the last rename
// counter per destination directory and name so repeated collisions keep
// counting up instead of starting over at 2.
type Resolver struct {
	counters map[string]int
	mu       sync.Mutex
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{counters: make(map[string]int)}
}

// Auto resolves a collision without outside input. ok is false when mode is
// Ask and a Query must be raised.
func (r *Resolver) Auto(mode Mode, dst string) (Resolution, bool) {
	switch mode {
	case Overwrite, OverwriteAll:
		return Resolution{Action: ActionOverwrite}, true
	case Skip, SkipAll:
		return Resolution{Action: ActionSkip}, true
	case AutoRename, AutoRenameAll:
		return Resolution{Action: ActionRename, Dest: r.UniqueName(dst)}, true
	default:
		return Resolution{}, false
	}
}

// NewQuery builds a Query for the collision, offering a unique name as the
// auto-rename candidate. The candidate's number is only taken once an
// auto-rename is decided, so skipped or re-offered queries leave no gaps.
func (r *Resolver) NewQuery(src, dst string) *Query {
	return newQuery(src, dst, r.nextName(dst, false))
}

// Decide maps an answer to a resolution. For auto-rename the candidate
// already offered in the query is used when it is still free.
func (r *Resolver) Decide(q *Query, a Answer) (Resolution, error) {
	switch a.Decision {
	case OverwriteOnce, OverwriteAllDecision:
		return Resolution{Action: ActionOverwrite}, nil
	case SkipOnce, SkipAllDecision:
		return Resolution{Action: ActionSkip}, nil
	case AutoRenameOnce, AutoRenameAllDecision:
		dest := q.Candidate
		if dest == "" || exists(dest) {
			dest = r.UniqueName(q.Dst)
		} else {
			r.claim(q.Dst, dest)
		}
		return Resolution{Action: ActionRename, Dest: dest}, nil
	case RenameTo:
		name := strings.TrimSpace(a.Name)
		if name == "" || strings.ContainsRune(name, os.PathSeparator) || name == "." || name == ".." {
			return Resolution{}, fmt.Errorf("invalid new name %q", a.Name)
		}
		return Resolution{Action: ActionRename, Dest: filepath.Join(filepath.Dir(q.Dst), name)}, nil
	case Pause:
		return Resolution{Action: ActionPause}, nil
	case Cancel:
		return Resolution{Action: ActionCancel}, nil
	default:
		return Resolution{}, fmt.Errorf("unknown decision %d", a.Decision)
	}
}

// UniqueName returns a sibling of path that does not exist yet, of the form
// base-copyN.ext with N starting at 2. An existing -copy/-copyN suffix on
// the base is dropped before numbering.
func (r *Resolver) UniqueName(path string) string {
	return r.nextName(path, true)
}

func (r *Resolver) nextName(path string, take bool) string {
	dir, stem, ext := nameParts(path)
	key := dir + "\x00" + stem + "\x00" + ext

	r.mu.Lock()
	defer r.mu.Unlock()

	n := max(r.counters[key]+1, 2)
	for {
		candidate := filepath.Join(dir, stem+"-"+copyWord+strconv.Itoa(n)+ext)
		if !exists(candidate) {
			if take {
				r.counters[key] = n
			}
			return candidate
		}
		n++
	}
}

// claim takes the number of a candidate offered for dst.
func (r *Resolver) claim(dst, candidate string) {
	dir, stem, ext := nameParts(dst)
	num := strings.TrimPrefix(filepath.Base(candidate), stem+"-"+copyWord)
	n, err := strconv.Atoi(strings.TrimSuffix(num, ext))
	if err != nil {
		return
	}
	key := dir + "\x00" + stem + "\x00" + ext

	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key] = max(r.counters[key], n)
}

// nameParts splits path into directory, stem without any -copyN suffix,
// and extension.
func nameParts(path string) (dir, stem, ext string) {
	dir = filepath.Dir(path)
	stem, ext = SplitName(filepath.Base(path), isDir(path))
	return dir, copySuffix.ReplaceAllString(stem, ""), ext
}

// SplitName splits a file name into stem and extension (with its dot).
// Directories and dot-files have no extension.
func SplitName(name string, dir bool) (stem, ext string) {
	if dir {
		return name, ""
	}
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}
