package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"caseflow/internal/core/domain"
)

// backendFake applies mutations to an in-memory application the way the CRUD
// backend would, so a reload after a mutation observes the new state.
type backendFake struct {
	app *domain.Application

	getErr      error
	failReload  bool
	getCalls    int
	lastAdvance domain.AdvanceRequest

	blockGet   chan struct{}
	getStarted chan struct{}
}

func (f *backendFake) GetApplication(_ context.Context, id string) (*domain.Application, error) {
	if f.blockGet != nil {
		f.getStarted <- struct{}{}
		<-f.blockGet
	}
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.failReload && f.getCalls > 1 {
		return nil, errors.New("backend unreachable")
	}
	if f.app == nil || f.app.ID != id {
		return nil, domain.WrapError(domain.ErrApplicationNotFound, "get application", errors.New(id))
	}
	copyApp := *f.app
	copyApp.Workflows = append([]domain.WorkflowEntry(nil), f.app.Workflows...)
	copyApp.Tasks = append([]domain.TaskTemplate(nil), f.app.Tasks...)
	return &copyApp, nil
}

func (f *backendFake) AdvanceWorkflow(_ context.Context, _ string, req domain.AdvanceRequest) error {
	f.lastAdvance = req
	current := f.app.CurrentEntry()
	current.Status = domain.WorkflowCompleted
	completion := req.CompletionDate
	current.CompletionDate = &completion
	current.IsCurrentStep = false

	if req.CompleteApplication {
		f.app.Status = domain.ApplicationCompleted
		return nil
	}
	next := f.app.NextTemplate(current.Task.Step)
	f.app.Workflows = append(f.app.Workflows, domain.WorkflowEntry{
		ID:            "w-" + next.ID,
		ApplicationID: f.app.ID,
		Task:          *next,
		Status:        domain.WorkflowPending,
		StartDate:     req.NextStartDate,
		DueDate:       req.NextDueDate,
		IsCurrentStep: true,
	})
	return nil
}

func (f *backendFake) RollbackWorkflow(_ context.Context, _ string, workflowID string) error {
	kept := f.app.Workflows[:0]
	for _, w := range f.app.Workflows {
		if w.ID != workflowID {
			kept = append(kept, w)
		}
	}
	f.app.Workflows = kept
	if current := f.app.CurrentEntry(); current != nil {
		current.Status = domain.WorkflowPending
		current.CompletionDate = nil
		current.IsCurrentStep = true
	}
	return nil
}

func (f *backendFake) UpdateWorkflowStatus(_ context.Context, _ string, workflowID string, status domain.WorkflowStatus) error {
	f.app.EntryByID(workflowID).Status = status
	return nil
}

func (f *backendFake) UpdateWorkflowDueDate(_ context.Context, _ string, workflowID string, due domain.Date) error {
	f.app.EntryByID(workflowID).DueDate = due
	return nil
}

func (f *backendFake) ForceClose(context.Context, string) error {
	f.app.Status = domain.ApplicationCompleted
	return nil
}

func (f *backendFake) Reopen(context.Context, string) error {
	f.app.Status = domain.ApplicationProcessing
	return nil
}

func (f *backendFake) UpdateApplicationDates(_ context.Context, _ string, docDate, dueDate domain.Date) error {
	f.app.DocDate = docDate
	f.app.DueDate = dueDate
	return nil
}

func (f *backendFake) PatchDocument(context.Context, string, domain.DocumentPatch) error {
	return errors.New("not implemented")
}

func (f *backendFake) ProductDocuments(context.Context, string) (*domain.ProductChecklist, error) {
	return nil, errors.New("not implemented")
}

func (f *backendFake) GetCustomer(context.Context, string) (*domain.Customer, error) {
	return nil, errors.New("not implemented")
}

func twoStepApplication() *domain.Application {
	return &domain.Application{
		ID:     "app-1",
		Status: domain.ApplicationProcessing,
		Tasks: []domain.TaskTemplate{
			{ID: "t1", Step: 1, Name: "Collect documents"},
			{ID: "t2", Step: 2, Name: "Final review", LastStep: true},
		},
		Workflows: []domain.WorkflowEntry{
			{
				ID:            "w1",
				ApplicationID: "app-1",
				Task:          domain.TaskTemplate{ID: "t1", Step: 1, Name: "Collect documents"},
				Status:        domain.WorkflowProcessing,
				StartDate:     domain.NewDate(2024, time.April, 1),
				DueDate:       domain.NewDate(2024, time.April, 5),
				IsCurrentStep: true,
			},
		},
	}
}

func newTestEngine(backend *backendFake, delegate *dueDateFake, today domain.Date) *TransitionEngine {
	clock := fixedClock{today: today}
	return NewTransitionEngine(backend, NewScheduler(delegate, discardLogger()), NewGate(clock), clock, discardLogger())
}

func TestAdvanceOpensNextStepWithScheduledDueDate(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	delegate := &dueDateFake{due: domain.NewDate(2024, time.April, 20)}
	today := domain.NewDate(2024, time.April, 8)
	engine := newTestEngine(backend, delegate, today)

	app, err := engine.Advance(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	if backend.lastAdvance.CompletionDate != today {
		t.Fatalf("completion date = %v, want today", backend.lastAdvance.CompletionDate)
	}
	if backend.lastAdvance.NextStartDate != today {
		t.Fatalf("next start date = %v, want today", backend.lastAdvance.NextStartDate)
	}
	if backend.lastAdvance.NextDueDate != domain.NewDate(2024, time.April, 20) {
		t.Fatalf("next due date = %v, want scheduler value", backend.lastAdvance.NextDueDate)
	}
	if delegate.lastTpl != "t2" {
		t.Fatalf("scheduler called for template %s, want t2", delegate.lastTpl)
	}

	current := app.CurrentEntry()
	if current == nil || current.Task.Step != 2 || current.Status != domain.WorkflowPending {
		t.Fatalf("expected pending step 2 after advance, got %+v", current)
	}
	if app.Status != domain.ApplicationProcessing {
		t.Fatalf("application must stay open mid-sequence, got %s", app.Status)
	}
}

func TestAdvanceLastStepCompletesApplication(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	delegate := &dueDateFake{due: domain.NewDate(2024, time.April, 20)}
	engine := newTestEngine(backend, delegate, domain.NewDate(2024, time.April, 8))

	if _, err := engine.Advance(context.Background(), "app-1"); err != nil {
		t.Fatalf("first Advance() error = %v", err)
	}
	app, err := engine.Advance(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("second Advance() error = %v", err)
	}

	if !backend.lastAdvance.CompleteApplication {
		t.Fatalf("expected CompleteApplication on the last step")
	}
	if !backend.lastAdvance.NextDueDate.IsZero() {
		t.Fatalf("last step must not schedule a next due date")
	}
	if app.Status != domain.ApplicationCompleted {
		t.Fatalf("application status = %s, want completed", app.Status)
	}
}

func TestAdvanceRejectsTerminalCurrentStep(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	backend.app.Workflows[0].Status = domain.WorkflowRejected
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 8))

	_, err := engine.Advance(context.Background(), "app-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRollbackReversesAdvance(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	delegate := &dueDateFake{due: domain.NewDate(2024, time.April, 20)}
	engine := newTestEngine(backend, delegate, domain.NewDate(2024, time.April, 8))

	advanced, err := engine.Advance(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	opened := advanced.CurrentEntry()

	app, err := engine.Rollback(context.Background(), "app-1", opened.ID)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	current := app.CurrentEntry()
	if current == nil || current.ID != "w1" {
		t.Fatalf("expected w1 reinstated as current, got %+v", current)
	}
	if current.Status != domain.WorkflowPending || current.CompletionDate != nil {
		t.Fatalf("expected reinstated step re-opened, got %+v", current)
	}
}

func TestRollbackGuards(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 8))

	if _, err := engine.Rollback(context.Background(), "app-1", "w1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("step 1 rollback: expected invalid input, got %v", err)
	}
	if _, err := engine.Rollback(context.Background(), "app-1", "missing"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown entry rollback: expected invalid input, got %v", err)
	}
}

func TestUpdateStatusGateBlocked(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	backend.app.Workflows[0].Status = domain.WorkflowCompleted
	backend.app.Workflows = append(backend.app.Workflows, domain.WorkflowEntry{
		ID:            "w2",
		ApplicationID: "app-1",
		Task:          domain.TaskTemplate{ID: "t2", Step: 2, Name: "Final review", LastStep: true},
		Status:        domain.WorkflowPending,
		IsCurrentStep: true,
	})

	// Today is before step 1's due date of April 5.
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 3))

	_, err := engine.UpdateStatus(context.Background(), "app-1", "w2", domain.WorkflowProcessing)
	if !domain.IsKind(err, domain.ErrTransitionBlocked) {
		t.Fatalf("expected transition blocked, got %v", err)
	}

	app, err := engine.UpdateStatus(context.Background(), "app-1", "w2", domain.WorkflowRejected)
	if err != nil {
		t.Fatalf("rejection must bypass the gate, got %v", err)
	}
	if app.EntryByID("w2").Status != domain.WorkflowRejected {
		t.Fatalf("expected w2 rejected after reload")
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 8))

	_, err := engine.UpdateStatus(context.Background(), "app-1", "w1", domain.WorkflowStatus("archived"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUpdateDueDateOnlyCurrentStep(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	delegate := &dueDateFake{due: domain.NewDate(2024, time.April, 20)}
	engine := newTestEngine(backend, delegate, domain.NewDate(2024, time.April, 8))

	if _, err := engine.Advance(context.Background(), "app-1"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	if _, err := engine.UpdateDueDate(context.Background(), "app-1", "w1", domain.NewDate(2024, time.May, 1)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("past step due date edit: expected invalid input, got %v", err)
	}

	currentID := backend.app.CurrentEntry().ID
	app, err := engine.UpdateDueDate(context.Background(), "app-1", currentID, domain.NewDate(2024, time.May, 1))
	if err != nil {
		t.Fatalf("UpdateDueDate() error = %v", err)
	}
	if app.EntryByID(currentID).DueDate != domain.NewDate(2024, time.May, 1) {
		t.Fatalf("due date not applied after reload")
	}
}

func TestForceCloseRequiresPermission(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 8))

	if _, err := engine.ForceClose(context.Background(), "app-1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input without permission, got %v", err)
	}

	backend.app.CanForceClose = true
	app, err := engine.ForceClose(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("ForceClose() error = %v", err)
	}
	if app.Status != domain.ApplicationCompleted {
		t.Fatalf("expected completed after force close, got %s", app.Status)
	}
}

func TestReopenOnlyFromCompleted(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 8))

	if _, err := engine.Reopen(context.Background(), "app-1"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for open application, got %v", err)
	}

	backend.app.Status = domain.ApplicationCompleted
	app, err := engine.Reopen(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if app.Status.Terminal() {
		t.Fatalf("expected active status after reopen, got %s", app.Status)
	}
}

func TestSetDocDateCarriesDueDate(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	backend.app.DocDate = domain.NewDate(2024, time.January, 10)
	backend.app.DueDate = domain.NewDate(2024, time.January, 20)
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 8))

	app, err := engine.SetDocDate(context.Background(), "app-1", domain.NewDate(2024, time.January, 12))
	if err != nil {
		t.Fatalf("SetDocDate() error = %v", err)
	}
	if app.DocDate != domain.NewDate(2024, time.January, 12) {
		t.Fatalf("doc date = %v", app.DocDate)
	}
	if app.DueDate != domain.NewDate(2024, time.January, 22) {
		t.Fatalf("due date = %v, want shifted by the same delta", app.DueDate)
	}

	if _, err := engine.SetDocDate(context.Background(), "app-1", domain.Date{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("zero doc date: expected invalid input, got %v", err)
	}
}

func TestConcurrentMutationReturnsBusy(t *testing.T) {
	backend := &backendFake{
		app:        twoStepApplication(),
		blockGet:   make(chan struct{}),
		getStarted: make(chan struct{}),
	}
	delegate := &dueDateFake{due: domain.NewDate(2024, time.April, 20)}
	engine := newTestEngine(backend, delegate, domain.NewDate(2024, time.April, 8))

	firstDone := make(chan error, 1)
	go func() {
		_, err := engine.Advance(context.Background(), "app-1")
		firstDone <- err
	}()

	// The first operation now holds the application slot, parked inside its
	// backend read.
	<-backend.getStarted

	_, err := engine.UpdateDueDate(context.Background(), "app-1", "w1", domain.NewDate(2024, time.May, 1))
	if !domain.IsKind(err, domain.ErrBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}

	go func() {
		// Release the mutation's read and its reload.
		<-backend.getStarted
		backend.blockGet <- struct{}{}
	}()
	backend.blockGet <- struct{}{}
	if err := <-firstDone; err != nil {
		t.Fatalf("first operation error = %v", err)
	}
}

func TestLoadDerivesCollectionCompleteness(t *testing.T) {
	backend := &backendFake{app: twoStepApplication()}
	backend.app.DocumentCollectionCompleted = true
	backend.app.Documents = []domain.Document{
		{Required: true, Completed: true},
		{Required: true, Completed: false},
	}
	engine := newTestEngine(backend, &dueDateFake{}, domain.NewDate(2024, time.April, 8))

	app, err := engine.Load(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if app.DocumentCollectionCompleted {
		t.Fatalf("stale server flag must not survive an outstanding required document")
	}
}

func TestReloadFailureIsTemporary(t *testing.T) {
	backend := &backendFake{app: twoStepApplication(), failReload: true}
	delegate := &dueDateFake{due: domain.NewDate(2024, time.April, 20)}
	engine := newTestEngine(backend, delegate, domain.NewDate(2024, time.April, 8))

	_, err := engine.Advance(context.Background(), "app-1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error for failed reload, got %v", err)
	}
}
