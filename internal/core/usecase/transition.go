package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"caseflow/internal/core/domain"
	"caseflow/internal/core/ports"
)

// TransitionEngine drives an application's workflow entries through
// pending -> processing -> completed, with rejected reachable from any
// non-terminal state. Every operation is one remote mutation followed by a
// full authoritative reload; local state is never advanced without backend
// confirmation.
type TransitionEngine struct {
	backend   ports.CaseBackend
	scheduler *Scheduler
	gate      *Gate
	clock     domain.Clock
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewTransitionEngine(
	backend ports.CaseBackend,
	scheduler *Scheduler,
	gate *Gate,
	clock domain.Clock,
	logger *slog.Logger,
) *TransitionEngine {
	return &TransitionEngine{
		backend:   backend,
		scheduler: scheduler,
		gate:      gate,
		clock:     clock,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// begin claims the application's single mutating slot. A second mutating
// operation against the same application is rejected until the first one's
// reload finishes, which serializes transitions from the caller's view.
func (e *TransitionEngine) begin(applicationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[applicationID]; busy {
		return domain.WrapError(domain.ErrBusy, "begin transition",
			fmt.Errorf("application %s has an outstanding operation", applicationID))
	}
	e.inFlight[applicationID] = struct{}{}
	return nil
}

func (e *TransitionEngine) end(applicationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, applicationID)
}

func (e *TransitionEngine) Load(ctx context.Context, applicationID string) (*domain.Application, error) {
	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	refreshCollection(app)
	return app, nil
}

// reload fetches the post-mutation authoritative record. The mutation has
// already been applied at this point, so a reload failure is surfaced as
// temporary: the caller keeps its previous state and retries the read.
func (e *TransitionEngine) reload(ctx context.Context, applicationID string) (*domain.Application, error) {
	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "reload application", err)
	}
	refreshCollection(app)
	return app, nil
}

// refreshCollection re-derives the completion flag from the document list; the
// backend's stored flag only stands in when no required documents exist.
func refreshCollection(app *domain.Application) {
	app.DocumentCollectionCompleted = IsCollectionComplete(app.Documents, app.DocumentCollectionCompleted)
}

// Advance completes the current entry and, unless it is the product's last
// step, opens the next template's entry with a scheduler-computed due date.
// Advancing the last step closes the application.
func (e *TransitionEngine) Advance(ctx context.Context, applicationID string) (*domain.Application, error) {
	if err := e.begin(applicationID); err != nil {
		return nil, err
	}
	defer e.end(applicationID)

	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	entry := app.CurrentEntry()
	if entry == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "advance workflow",
			errors.New("application has no workflow entries"))
	}
	if entry.Status.Terminal() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "advance workflow",
			fmt.Errorf("current step %d is already %s", entry.Task.Step, entry.Status))
	}

	today := e.clock.Today()
	req := domain.AdvanceRequest{CompletionDate: today}
	if entry.Task.LastStep {
		req.CompleteApplication = true
	} else {
		next := app.NextTemplate(entry.Task.Step)
		if next == nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "advance workflow",
				fmt.Errorf("no template after step %d", entry.Task.Step))
		}
		req.NextStartDate = today
		req.NextDueDate = e.scheduler.ComputeDueDate(ctx, today, next)
	}

	if err := e.backend.AdvanceWorkflow(ctx, applicationID, req); err != nil {
		return nil, fmt.Errorf("advance workflow: %w", err)
	}
	e.logger.Info("workflow advanced",
		"application_id", applicationID,
		"completed_step", entry.Task.Step,
		"last_step", entry.Task.LastStep,
	)
	return e.reload(ctx, applicationID)
}

// Rollback is the explicit inverse of Advance: it clears the current entry's
// outcome and reinstates the previous step as current and re-opened. Only the
// current entry past step 1 of a still-open application can be rolled back.
func (e *TransitionEngine) Rollback(ctx context.Context, applicationID, workflowID string) (*domain.Application, error) {
	if err := e.begin(applicationID); err != nil {
		return nil, err
	}
	defer e.end(applicationID)

	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	entry := app.EntryByID(workflowID)
	if entry == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rollback workflow",
			fmt.Errorf("workflow entry %s not found", workflowID))
	}
	current := app.CurrentEntry()
	if current == nil || current.ID != entry.ID {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rollback workflow",
			errors.New("only the current step can be rolled back"))
	}
	if entry.Task.Step <= 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rollback workflow",
			errors.New("the first step cannot be rolled back"))
	}
	if app.Status.Terminal() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rollback workflow",
			fmt.Errorf("application is %s", app.Status))
	}

	if err := e.backend.RollbackWorkflow(ctx, applicationID, workflowID); err != nil {
		return nil, fmt.Errorf("rollback workflow: %w", err)
	}
	e.logger.Info("workflow rolled back",
		"application_id", applicationID,
		"removed_step", entry.Task.Step,
	)
	return e.reload(ctx, applicationID)
}

// UpdateStatus sets an entry's status directly, gated against premature
// progress. A blocked transition is a guard error, never silently ignored.
func (e *TransitionEngine) UpdateStatus(ctx context.Context, applicationID, workflowID string, status domain.WorkflowStatus) (*domain.Application, error) {
	if !status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update workflow status",
			fmt.Errorf("unknown status %q", status))
	}
	if err := e.begin(applicationID); err != nil {
		return nil, err
	}
	defer e.end(applicationID)

	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	entry := app.EntryByID(workflowID)
	if entry == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update workflow status",
			fmt.Errorf("workflow entry %s not found", workflowID))
	}
	if blocked, reason := e.gate.Blocked(app, entry, status); blocked {
		return nil, domain.WrapError(domain.ErrTransitionBlocked, "update workflow status",
			errors.New(reason))
	}

	if err := e.backend.UpdateWorkflowStatus(ctx, applicationID, workflowID, status); err != nil {
		return nil, fmt.Errorf("update workflow status: %w", err)
	}
	return e.reload(ctx, applicationID)
}

// UpdateDueDate edits the due date of the current, non-terminal entry.
func (e *TransitionEngine) UpdateDueDate(ctx context.Context, applicationID, workflowID string, due domain.Date) (*domain.Application, error) {
	if err := e.begin(applicationID); err != nil {
		return nil, err
	}
	defer e.end(applicationID)

	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	entry := app.EntryByID(workflowID)
	if entry == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update due date",
			fmt.Errorf("workflow entry %s not found", workflowID))
	}
	current := app.CurrentEntry()
	if current == nil || current.ID != entry.ID {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update due date",
			errors.New("only the current step's due date can be edited"))
	}
	if entry.Status.Terminal() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update due date",
			fmt.Errorf("step is already %s", entry.Status))
	}

	if err := e.backend.UpdateWorkflowDueDate(ctx, applicationID, workflowID, due); err != nil {
		return nil, fmt.Errorf("update workflow due date: %w", err)
	}
	return e.reload(ctx, applicationID)
}

// ForceClose completes the application bypassing the collection tracker. It
// is an administrative override and only allowed while the backend grants it.
func (e *TransitionEngine) ForceClose(ctx context.Context, applicationID string) (*domain.Application, error) {
	if err := e.begin(applicationID); err != nil {
		return nil, err
	}
	defer e.end(applicationID)

	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !app.CanForceClose {
		return nil, domain.WrapError(domain.ErrInvalidInput, "force close",
			errors.New("force close is not permitted for this application"))
	}
	if app.Status.Terminal() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "force close",
			fmt.Errorf("application is already %s", app.Status))
	}

	if err := e.backend.ForceClose(ctx, applicationID); err != nil {
		return nil, fmt.Errorf("force close: %w", err)
	}
	e.logger.Info("application force closed", "application_id", applicationID)
	return e.reload(ctx, applicationID)
}

// Reopen reverts a completed application to an active status so workflow
// operations can resume.
func (e *TransitionEngine) Reopen(ctx context.Context, applicationID string) (*domain.Application, error) {
	if err := e.begin(applicationID); err != nil {
		return nil, err
	}
	defer e.end(applicationID)

	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationCompleted {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reopen application",
			fmt.Errorf("only completed applications can be reopened, status is %s", app.Status))
	}

	if err := e.backend.Reopen(ctx, applicationID); err != nil {
		return nil, fmt.Errorf("reopen application: %w", err)
	}
	return e.reload(ctx, applicationID)
}

// SetDocDate edits the application's document date. An already-set due date is
// shifted by the same whole-day delta instead of being recomputed, preserving
// manual overrides across incidental edits.
func (e *TransitionEngine) SetDocDate(ctx context.Context, applicationID string, docDate domain.Date) (*domain.Application, error) {
	if docDate.IsZero() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "set doc date",
			errors.New("document date is required"))
	}
	if err := e.begin(applicationID); err != nil {
		return nil, err
	}
	defer e.end(applicationID)

	app, err := e.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	due := CarryDueDate(app.DocDate, docDate, app.DueDate)

	if err := e.backend.UpdateApplicationDates(ctx, applicationID, docDate, due); err != nil {
		return nil, fmt.Errorf("update application dates: %w", err)
	}
	return e.reload(ctx, applicationID)
}
