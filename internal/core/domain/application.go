package domain

import "sort"

type ApplicationStatus string

const (
	ApplicationPending    ApplicationStatus = "pending"
	ApplicationProcessing ApplicationStatus = "processing"
	ApplicationCompleted  ApplicationStatus = "completed"
	ApplicationRejected   ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationCompleted || s == ApplicationRejected
}

type WorkflowStatus string

const (
	WorkflowPending    WorkflowStatus = "pending"
	WorkflowProcessing WorkflowStatus = "processing"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowRejected   WorkflowStatus = "rejected"
)

func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowRejected
}

func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowPending, WorkflowProcessing, WorkflowCompleted, WorkflowRejected:
		return true
	}
	return false
}

// TaskTemplate is the immutable per-product definition of one workflow step.
type TaskTemplate struct {
	ID                     string `json:"id"`
	Step                   int    `json:"step"`
	Name                   string `json:"name"`
	Duration               int    `json:"duration"`
	DurationIsBusinessDays bool   `json:"durationIsBusinessDays"`
	NotifyDaysBefore       int    `json:"notifyDaysBefore"`
	LastStep               bool   `json:"lastStep"`
}

// WorkflowEntry is one step's runtime instance within an application's
// progress history. Entries ordered by Task.Step form that history; only the
// entry with the highest step is ever mutated.
type WorkflowEntry struct {
	ID             string         `json:"id"`
	ApplicationID  string         `json:"applicationId"`
	Task           TaskTemplate   `json:"task"`
	Status         WorkflowStatus `json:"status"`
	StartDate      Date           `json:"startDate"`
	CompletionDate *Date          `json:"completionDate,omitempty"`
	DueDate        Date           `json:"dueDate"`
	IsCurrentStep  bool           `json:"isCurrentStep"`
}

// Application is a customer's in-progress document-processing case. The
// authoritative value always comes from the case backend; the engine treats
// any in-memory copy as provisional.
type Application struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	ProductID  string `json:"productId"`

	DocDate Date              `json:"docDate"`
	DueDate Date              `json:"dueDate"`
	Status  ApplicationStatus `json:"status"`

	DocumentCollectionCompleted bool `json:"documentCollectionCompleted"`
	CanForceClose               bool `json:"canForceClose"`

	NotifyCustomerToo      bool   `json:"notifyCustomerToo"`
	NotifyCustomerChannel  string `json:"notifyCustomerChannel,omitempty"`
	AddDeadlinesToCalendar bool   `json:"addDeadlinesToCalendar"`
	Notes                  string `json:"notes,omitempty"`

	Documents []Document      `json:"documents"`
	Workflows []WorkflowEntry `json:"workflows"`
	Tasks     []TaskTemplate  `json:"tasks"`
}

// AdvanceRequest carries the engine-computed companion values of one advance
// mutation. NextDueDate stays zero when the advanced entry was the last step
// or when the scheduler delegate was unavailable.
type AdvanceRequest struct {
	CompletionDate Date `json:"completionDate"`
	NextStartDate  Date `json:"nextStartDate"`
	NextDueDate    Date `json:"nextDueDate"`
	// CompleteApplication is set when the advanced entry's template is the
	// terminal step of the product sequence.
	CompleteApplication bool `json:"completeApplication"`
}

// SortedWorkflows returns the entries ordered by step ascending.
func (a *Application) SortedWorkflows() []WorkflowEntry {
	out := make([]WorkflowEntry, len(a.Workflows))
	copy(out, a.Workflows)
	sort.Slice(out, func(i, j int) bool { return out[i].Task.Step < out[j].Task.Step })
	return out
}

// CurrentEntry returns the entry with the highest step, or nil when the
// application has no workflow history yet.
func (a *Application) CurrentEntry() *WorkflowEntry {
	var current *WorkflowEntry
	for i := range a.Workflows {
		if current == nil || a.Workflows[i].Task.Step > current.Task.Step {
			current = &a.Workflows[i]
		}
	}
	return current
}

// EntryByID looks up a workflow entry of this application.
func (a *Application) EntryByID(workflowID string) *WorkflowEntry {
	for i := range a.Workflows {
		if a.Workflows[i].ID == workflowID {
			return &a.Workflows[i]
		}
	}
	return nil
}

// PreviousEntry returns the entry at step-1 relative to entry, or nil.
func (a *Application) PreviousEntry(entry *WorkflowEntry) *WorkflowEntry {
	for i := range a.Workflows {
		if a.Workflows[i].Task.Step == entry.Task.Step-1 {
			return &a.Workflows[i]
		}
	}
	return nil
}

// NextTemplate returns the product's template following step, or nil when step
// is the end of the sequence.
func (a *Application) NextTemplate(step int) *TaskTemplate {
	var next *TaskTemplate
	for i := range a.Tasks {
		if a.Tasks[i].Step <= step {
			continue
		}
		if next == nil || a.Tasks[i].Step < next.Step {
			next = &a.Tasks[i]
		}
	}
	return next
}
