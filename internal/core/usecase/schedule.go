package usecase

import (
	"context"
	"log/slog"

	"caseflow/internal/core/domain"
	"caseflow/internal/core/ports"
)

// Scheduler computes and carries workflow due dates. The actual duration
// arithmetic lives in a remote day-arithmetic service; the engine only applies
// the returned value and shifts it locally on document-date edits.
type Scheduler struct {
	delegate ports.DueDateService
	logger   *slog.Logger
}

func NewScheduler(delegate ports.DueDateService, logger *slog.Logger) *Scheduler {
	return &Scheduler{delegate: delegate, logger: logger}
}

// ComputeDueDate resolves the due date for a step starting at start. A nil
// template means the product has no calendar task, in which case the due date
// defaults to the document date itself. When the delegate fails the due date
// is left unset rather than guessed.
func (s *Scheduler) ComputeDueDate(ctx context.Context, start domain.Date, tpl *domain.TaskTemplate) domain.Date {
	if tpl == nil {
		return start
	}
	due, err := s.delegate.ComputeDueDate(ctx, start, tpl.ID)
	if err != nil {
		s.logger.Warn("due date delegate unavailable, leaving due date unset",
			"task_template_id", tpl.ID,
			"start_date", start.String(),
			"error", err,
		)
		return domain.Date{}
	}
	return due
}

// CarryDueDate shifts an already-set due date by the same whole-day delta as a
// document-date edit, preserving any manual override instead of recomputing.
// Pure date-only arithmetic; no remote call.
func CarryDueDate(oldDocDate, newDocDate, oldDueDate domain.Date) domain.Date {
	if oldDueDate.IsZero() {
		return oldDueDate
	}
	return oldDueDate.AddDays(oldDocDate.DaysUntil(newDocDate))
}
