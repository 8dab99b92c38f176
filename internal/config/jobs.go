package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/spacetask/internal/event"
)

// Job is one task in a batch file.
type Job struct {
	Overwrite *string  `toml:"overwrite_mode"`
	ErrorMode *string  `toml:"error_mode"`
	UID       *int     `toml:"uid"`
	GID       *int     `toml:"gid"`
	Kind      string   `toml:"kind"`
	Dest      string   `toml:"dest"`
	Chmod     string   `toml:"chmod"`
	Command   string   `toml:"command"`
	Dir       string   `toml:"dir"`
	Sources   []string `toml:"sources"`
	Env       []string `toml:"env"`
	Recursive bool     `toml:"recursive"`
	Queue     bool     `toml:"queue"`
}

type jobFile struct {
	Jobs []Job `toml:"job"`
}

// LoadJobs reads a batch file of [[job]] tables.
func LoadJobs(path string) ([]Job, error) {
	var f jobFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("read jobs %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if len(f.Jobs) == 0 {
		return nil, fmt.Errorf("%s: no [[job]] entries", path)
	}

	var errs []error
	for i, j := range f.Jobs {
		if err := j.validate(); err != nil {
			errs = append(errs, fmt.Errorf("job %d: %w", i+1, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f.Jobs, nil
}

func (j Job) validate() error {
	kind, ok := event.ParseKind(j.Kind)
	if !ok {
		return fmt.Errorf("unknown kind %q", j.Kind)
	}
	switch kind {
	case event.Exec:
		if j.Command == "" {
			return errors.New("exec job needs a command")
		}
	case event.Copy, event.Move, event.Link:
		if j.Dest == "" {
			return fmt.Errorf("%s job needs a dest", kind)
		}
		fallthrough
	default:
		if len(j.Sources) == 0 {
			return fmt.Errorf("%s job needs sources", kind)
		}
	}
	if j.ErrorMode != nil && !validErrorMode(*j.ErrorMode) {
		return fmt.Errorf("unknown error_mode %q", *j.ErrorMode)
	}
	return nil
}
