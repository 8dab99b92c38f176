package fileop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// PermAction is what happens to one permission bit.
type PermAction int

const (
	NoChange PermAction = iota
	Set
	Unset
	Toggle
)

// Permission slots of a ChmodActions.
const (
	OwnerRead = iota
	OwnerWrite
	OwnerExec
	GroupRead
	GroupWrite
	GroupExec
	OtherRead
	OtherWrite
	OtherExec
	Setuid
	Setgid
	Sticky
	permSlots
)

var permBits = [permSlots]uint32{
	0o400, 0o200, 0o100,
	0o040, 0o020, 0o010,
	0o004, 0o002, 0o001,
	0o4000, 0o2000, 0o1000,
}

// ChmodActions holds one action per permission slot.
type ChmodActions [permSlots]PermAction

// Empty reports whether no slot changes anything.
func (a ChmodActions) Empty() bool {
	for _, act := range a {
		if act != NoChange {
			return false
		}
	}
	return true
}

// Apply returns mode with every slot's action applied.
func (a ChmodActions) Apply(mode uint32) uint32 {
	for i, act := range a {
		bit := permBits[i]
		switch act {
		case Set:
			mode |= bit
		case Unset:
			mode &^= bit
		case Toggle:
			mode ^= bit
		}
	}
	return mode
}

// ParseChmodActions parses a symbolic spec such as "u+x,go-w,a^r,o=r,+t".
// Operators are + (set), - (unset), ^ (toggle) and = (set the listed bits,
// unset the other r/w/x bits of each class). Without a who part, r/w/x
// apply to all classes and s to both setuid and setgid.
func ParseChmodActions(spec string) (ChmodActions, error) {
	var a ChmodActions
	if strings.TrimSpace(spec) == "" {
		return a, errors.New("empty permission spec")
	}
	for _, clause := range strings.Split(spec, ",") {
		i := strings.IndexAny(clause, "+-^=")
		if i < 0 {
			return a, fmt.Errorf("permission clause %q has no operator", clause)
		}
		who, perms := clause[:i], clause[i+1:]
		var act PermAction
		switch clause[i] {
		case '+', '=':
			act = Set
		case '-':
			act = Unset
		default:
			act = Toggle
		}
		if who == "" || who == "a" {
			who = "ugo"
		}
		if clause[i] == '=' {
			for _, p := range "rwx" {
				if err := a.assign(who, p, Unset); err != nil {
					return a, err
				}
			}
		} else if perms == "" {
			return a, fmt.Errorf("permission clause %q names no permission", clause)
		}
		for _, p := range perms {
			if err := a.assign(who, p, act); err != nil {
				return a, err
			}
		}
	}
	return a, nil
}

func (a *ChmodActions) assign(who string, perm rune, act PermAction) error {
	for _, w := range who {
		base := 0
		switch w {
		case 'u':
		case 'g':
			base = GroupRead
		case 'o':
			base = OtherRead
		default:
			return fmt.Errorf("unknown permission class %q", w)
		}
		switch perm {
		case 'r':
			a[base] = act
		case 'w':
			a[base+1] = act
		case 'x':
			a[base+2] = act
		case 's':
			switch w {
			case 'u':
				a[Setuid] = act
			case 'g':
				a[Setgid] = act
			}
		case 't':
			a[Sticky] = act
		default:
			return fmt.Errorf("unknown permission %q", perm)
		}
	}
	return nil
}

func (op *Operation) runChmod() {
	if (op.cfg.Chmod == nil || op.cfg.Chmod.Empty()) && op.cfg.Chown == nil {
		op.fail(strings.Join(op.cfg.Sources, " "), "chmod", errors.New("no permission or owner change requested"))
		return
	}
	for _, src := range op.cfg.Sources {
		if !op.checkpoint() {
			return
		}
		if !op.chmodEntry(src) {
			return
		}
	}
}

// chmodEntry changes owner then mode of path, descending into directories
// when the operation is recursive. Symlinks get their owner changed but
// keep their mode.
func (op *Operation) chmodEntry(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return op.fail(path, "chmod", err)
	}
	op.stats.SetCurrent(path, "")

	if err := op.applyAttrs(path, info); err != nil {
		if !op.fail(path, "chmod", err) {
			return false
		}
	} else {
		op.stats.AddItems(1)
	}

	if !op.cfg.Recursive || !info.IsDir() {
		return true
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return op.fail(path, "read folder", err)
	}
	for _, e := range entries {
		if !op.checkpoint() {
			return false
		}
		if !op.chmodEntry(filepath.Join(path, e.Name())) {
			return false
		}
	}
	return true
}

func (op *Operation) applyAttrs(path string, info os.FileInfo) error {
	// chown first: it clears setuid/setgid the mode change may set.
	if o := op.cfg.Chown; o != nil && (o.UID >= 0 || o.GID >= 0) {
		if err := os.Lchown(path, o.UID, o.GID); err != nil {
			return err
		}
	}
	if op.cfg.Chmod == nil || info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	mode := rawMode(info)
	next := op.cfg.Chmod.Apply(mode)
	if next == mode {
		return nil
	}
	if err := unix.Chmod(path, next); err != nil {
		return fmt.Errorf("chmod %o: %w", next, err)
	}
	return nil
}
