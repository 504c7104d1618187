package ports

import (
	"context"
	"io"

	"caseflow/internal/core/domain"
)

// WorkflowEngine is the inbound contract for application workflow transitions.
// Every mutating call ends in a full authoritative reload; the returned
// Application is the backend's post-mutation state.
type WorkflowEngine interface {
	Load(ctx context.Context, applicationID string) (*domain.Application, error)
	Advance(ctx context.Context, applicationID string) (*domain.Application, error)
	Rollback(ctx context.Context, applicationID, workflowID string) (*domain.Application, error)
	UpdateStatus(ctx context.Context, applicationID, workflowID string, status domain.WorkflowStatus) (*domain.Application, error)
	UpdateDueDate(ctx context.Context, applicationID, workflowID string, due domain.Date) (*domain.Application, error)
	ForceClose(ctx context.Context, applicationID string) (*domain.Application, error)
	Reopen(ctx context.Context, applicationID string) (*domain.Application, error)
	SetDocDate(ctx context.Context, applicationID string, docDate domain.Date) (*domain.Application, error)
}

// ChecklistBuilder generates a new application's document checklist from the
// product's document-type lists.
type ChecklistBuilder interface {
	Build(ctx context.Context, productID, customerID string) (*domain.Checklist, error)
}

// OcrSubmitter validates and enqueues an extraction run.
type OcrSubmitter interface {
	Submit(ctx context.Context, req OcrSubmitRequest) (*domain.OcrSession, error)
	Session(ctx context.Context, sessionID string) (*domain.OcrSession, error)
}

// OcrProcessor runs one queued extraction session to completion.
type OcrProcessor interface {
	ProcessSession(ctx context.Context, sessionID string) error
}

// OcrSubmitRequest is the inbound payload of one extraction run.
type OcrSubmitRequest struct {
	DocumentID string
	DocType    domain.DocType
	Filename   string
	File       io.Reader
	// TitleSet tells the merge step whether the edit form already carries a
	// title, suppressing the Mr/Ms inference when it does.
	TitleSet bool
}
