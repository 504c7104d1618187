package usecase

import (
	"fmt"

	"caseflow/internal/core/domain"
)

// Gate enforces temporal ordering between adjacent workflow entries: a step
// must not be recorded in progress or complete before the prior step's own
// deadline has arrived. Rejection is always permitted as an escape hatch.
type Gate struct {
	clock domain.Clock
}

func NewGate(clock domain.Clock) *Gate {
	return &Gate{clock: clock}
}

// Blocked reports whether moving entry to target is premature, with a
// human-readable reason for surfacing. The reason is advisory; only the
// boolean is contractual.
func (g *Gate) Blocked(app *domain.Application, entry *domain.WorkflowEntry, target domain.WorkflowStatus) (bool, string) {
	if target == entry.Status {
		return false, ""
	}
	if target == domain.WorkflowRejected {
		return false, ""
	}
	if entry.Status != domain.WorkflowPending {
		return false, ""
	}
	if target != domain.WorkflowProcessing && target != domain.WorkflowCompleted {
		return false, ""
	}

	prev := app.PreviousEntry(entry)
	if prev == nil || prev.DueDate.IsZero() {
		return false, ""
	}

	today := g.clock.Today()
	if prev.DueDate.After(today) {
		return true, fmt.Sprintf("previous step %q is due on %s", prev.Task.Name, prev.DueDate.String())
	}
	return false, ""
}
