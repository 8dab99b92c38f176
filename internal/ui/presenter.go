package ui

import (
	"io"

	"github.com/bamsammich/spacetask/internal/task"
)

// Config configures a line-oriented presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	// Input answers conflict prompts. Nil means conflicts cannot be asked
	// and fall back to the task's default.
	Input io.Reader
	// Width is the terminal width in columns for the HUD.
	Width int
	IsTTY bool
	Quiet bool
	// NoProgress keeps the plain line output even on a terminal.
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) task.Presenter {
	var prompt *Prompter
	if cfg.Input != nil {
		prompt = NewPrompter(cfg.Input, cfg.ErrWriter)
	}
	if cfg.Quiet {
		return &quietPresenter{prompt: prompt}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return newPlainPresenter(cfg.Writer, cfg.ErrWriter, prompt)
	}
	return newHUDPresenter(cfg.ErrWriter, prompt, cfg.Width) // HUD renders to stderr (the TTY)
}
