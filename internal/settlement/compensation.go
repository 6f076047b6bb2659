package settlement

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/tallyhq/tally/internal/common"
)

// compensation is a stack of undo actions. Each step of a settlement pushes
// its undo after succeeding; on a later failure the stack is unwound in
// reverse so the system returns to its pre-call state.
type compensation struct {
	steps []compensationStep
}

type compensationStep struct {
	undo func() error
	name string
}

func (c *compensation) push(name string, undo func() error) {
	c.steps = append(c.steps, compensationStep{name: name, undo: undo})
}

// unwind runs the undo actions in reverse order and returns the original
// cause, with any undo failures appended. An undo failure is the most
// dangerous outcome: it means ledger, balance and obligation may disagree,
// so it is logged loudly and surfaced rather than swallowed.
func (c *compensation) unwind(cause error) error {
	err := cause
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if undoErr := step.undo(); undoErr != nil {
			common.LogError(undoErr, "Compensation step failed; stored state may be inconsistent",
				common.Fields{"step": step.name, "cause": cause.Error()})
			err = multierr.Append(err, fmt.Errorf("compensation %q failed: %w", step.name, undoErr))
		}
	}
	c.steps = nil
	return err
}
