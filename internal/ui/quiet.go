package ui

import (
	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/task"
)

// quietPresenter shows nothing, but still lets an operator answer conflicts
// when it has an input.
type quietPresenter struct {
	prompt *Prompter
}

func (p *quietPresenter) Update(task.Display) {}

func (p *quietPresenter) Ask(d task.Display, q *conflict.Query) bool {
	if p.prompt == nil {
		return false
	}
	p.prompt.Ask(d, q)
	return true
}

func (p *quietPresenter) Remove(string) {}
