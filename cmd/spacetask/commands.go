package main

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/fileop"
	"github.com/bamsammich/spacetask/internal/task"
)

const (
	transferCopy = event.Copy
	transferMove = event.Move
	transferLink = event.Link
	removeDelete = event.Delete
	removeTrash  = event.Trash
)

// newTransferCmd builds copy, move and link: sources then one destination
// directory.
func newTransferCmd(a *app, name, short string, kind event.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <source>... <destination>",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, []task.Request{{
				Kind:    kind,
				Sources: args[:len(args)-1],
				Dest:    args[len(args)-1],
			}})
		},
	}
}

func newRemoveCmd(a *app, name, short string, kind event.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <path>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, []task.Request{{Kind: kind, Sources: args}})
		},
	}
}

// permFlag is a repeatable pflag.Value accumulating symbolic permission
// specs; a later spec overrides earlier ones slot by slot.
type permFlag struct {
	actions *fileop.ChmodActions
	specs   []string
}

var _ pflag.Value = (*permFlag)(nil)

func (p *permFlag) String() string { return strings.Join(p.specs, ",") }
func (*permFlag) Type() string     { return "spec" }

func (p *permFlag) Set(val string) error {
	parsed, err := fileop.ParseChmodActions(val)
	if err != nil {
		return err
	}
	for i, act := range parsed {
		if act != fileop.NoChange {
			p.actions[i] = act
		}
	}
	p.specs = append(p.specs, val)
	return nil
}

func newChmodCmd(a *app) *cobra.Command {
	var (
		actions   fileop.ChmodActions
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "chmod --mode <spec> <path>...",
		Short: "Set, clear or toggle permission bits",
		Long: `Change permissions with symbolic specs such as u+x, go-w, a^r, o=r or +t.
Operators are + (set), - (clear), ^ (toggle) and = (exactly these r/w/x
bits for the class). --mode may be repeated.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if actions.Empty() {
				return errors.New("--mode is required")
			}
			chmod := actions
			return a.execute(cmd, []task.Request{{
				Kind:      event.ChmodChown,
				Sources:   args,
				Chmod:     &chmod,
				Recursive: recursive,
			}})
		},
	}
	cmd.Flags().VarP(&permFlag{actions: &actions}, "mode", "m", "permission spec (repeatable)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "descend into directories")
	return cmd
}

func newChownCmd(a *app) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "chown <owner>[:<group>] <path>...",
		Short: "Change file owner and group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			return a.execute(cmd, []task.Request{{
				Kind:      event.ChmodChown,
				Sources:   args[1:],
				Chown:     &owner,
				Recursive: recursive,
			}})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "descend into directories")
	return cmd
}

// parseOwner reads "user", "user:group", ":group" or numeric ids. An
// omitted part is left unchanged (-1).
func parseOwner(s string) (fileop.Owner, error) {
	o := fileop.Owner{UID: -1, GID: -1}
	name, group, _ := strings.Cut(s, ":")
	if name == "" && group == "" {
		return o, fmt.Errorf("invalid owner %q", s)
	}
	if name != "" {
		uid, err := lookupID(name, func(n string) (string, error) {
			u, err := user.Lookup(n)
			if err != nil {
				return "", err
			}
			return u.Uid, nil
		})
		if err != nil {
			return o, fmt.Errorf("user %s: %w", name, err)
		}
		o.UID = uid
	}
	if group != "" {
		gid, err := lookupID(group, func(n string) (string, error) {
			g, err := user.LookupGroup(n)
			if err != nil {
				return "", err
			}
			return g.Gid, nil
		})
		if err != nil {
			return o, fmt.Errorf("group %s: %w", group, err)
		}
		o.GID = gid
	}
	return o, nil
}

func lookupID(s string, lookup func(string) (string, error)) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative id %d", n)
		}
		return n, nil
	}
	id, err := lookup(s)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(id)
}

func newExecCmd(a *app) *cobra.Command {
	var (
		spec  fileop.ExecSpec
		queue bool
	)
	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command>",
		Short: "Run a shell command as a task",
		Long: `Run a shell command as a pausable task. Pausing stops the whole process
group; cancelling sends SIGTERM, then SIGKILL after the grace period.
Output goes to the task log. Exec tasks skip the queue unless --queue is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Command = strings.Join(args, " ")
			exec := spec
			return a.execute(cmd, []task.Request{{
				Kind:  event.Exec,
				Exec:  &exec,
				Queue: queue,
			}})
		},
	}
	cmd.Flags().StringVarP(&spec.Dir, "dir", "C", "", "working directory")
	cmd.Flags().StringArrayVarP(&spec.Env, "env", "e", nil, "extra environment KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&spec.Shell, "shell", "", "shell to run the command with (default /bin/sh)")
	cmd.Flags().BoolVar(&queue, "queue", false, "wait in the task queue like data tasks")
	return cmd
}
