package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/spacetask/internal/config"
	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/event"
	"github.com/bamsammich/spacetask/internal/fileop"
	"github.com/bamsammich/spacetask/internal/task"
)

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <jobs.toml>",
		Short: "Submit every [[job]] of a TOML file as a task",
		Long: `Submit several tasks at once. Data tasks run one at a time through the
queue; each [[job]] table names a kind (copy, move, link, delete, trash,
chmod_chown, exec) and its arguments.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := config.LoadJobs(args[0])
			if err != nil {
				return err
			}
			reqs := make([]task.Request, 0, len(jobs))
			for i, j := range jobs {
				req, err := jobRequest(j)
				if err != nil {
					return fmt.Errorf("job %d: %w", i+1, err)
				}
				reqs = append(reqs, req)
			}
			return a.execute(cmd, reqs)
		},
	}
}

// jobRequest maps a validated batch job to a task request.
func jobRequest(j config.Job) (task.Request, error) {
	kind, ok := event.ParseKind(j.Kind)
	if !ok {
		return task.Request{}, fmt.Errorf("unknown kind %q", j.Kind)
	}
	req := task.Request{
		Kind:      kind,
		Sources:   j.Sources,
		Dest:      j.Dest,
		Recursive: j.Recursive,
		Queue:     j.Queue,
	}
	if j.Overwrite != nil {
		m, err := conflict.ParseMode(*j.Overwrite)
		if err != nil {
			return req, err
		}
		req.Overwrite = &m
	}
	if j.ErrorMode != nil {
		m, err := task.ParseErrorMode(*j.ErrorMode)
		if err != nil {
			return req, err
		}
		req.ErrorMode = &m
	}
	switch kind {
	case event.Exec:
		req.Exec = &fileop.ExecSpec{Command: j.Command, Dir: j.Dir, Env: j.Env}
	case event.ChmodChown:
		if j.Chmod != "" {
			actions, err := fileop.ParseChmodActions(j.Chmod)
			if err != nil {
				return req, err
			}
			req.Chmod = &actions
		}
		if j.UID != nil || j.GID != nil {
			owner := fileop.Owner{UID: -1, GID: -1}
			if j.UID != nil {
				owner.UID = *j.UID
			}
			if j.GID != nil {
				owner.GID = *j.GID
			}
			req.Chown = &owner
		}
	}
	return req, nil
}
