package ports

import (
	"context"
	"io"

	"caseflow/internal/core/domain"
)

// CaseBackend is the administrative CRUD backend owning the authoritative
// Application record. Every mutation returns success/failure only; callers
// re-read state through GetApplication afterwards.
type CaseBackend interface {
	GetApplication(ctx context.Context, id string) (*domain.Application, error)

	AdvanceWorkflow(ctx context.Context, applicationID string, req domain.AdvanceRequest) error
	RollbackWorkflow(ctx context.Context, applicationID, workflowID string) error
	UpdateWorkflowStatus(ctx context.Context, applicationID, workflowID string, status domain.WorkflowStatus) error
	UpdateWorkflowDueDate(ctx context.Context, applicationID, workflowID string, due domain.Date) error
	ForceClose(ctx context.Context, applicationID string) error
	Reopen(ctx context.Context, applicationID string) error
	UpdateApplicationDates(ctx context.Context, applicationID string, docDate, dueDate domain.Date) error

	PatchDocument(ctx context.Context, documentID string, patch domain.DocumentPatch) error
	ProductDocuments(ctx context.Context, productID string) (*domain.ProductChecklist, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}

// DueDateService is the remote day-arithmetic delegate. The engine never
// reproduces business-day counting locally.
type DueDateService interface {
	ComputeDueDate(ctx context.Context, start domain.Date, taskTemplateID string) (domain.Date, error)
}

// OcrService is the remote extraction delegate. Submit either returns the
// final result immediately or a status URL to poll.
type OcrService interface {
	Submit(ctx context.Context, file io.Reader, filename, docTypeHint string) (*domain.OcrResult, string, error)
	FetchStatus(ctx context.Context, statusURL string) (*domain.OcrResult, error)
}

// SessionStore persists OCR session state shared between api and worker.
type SessionStore interface {
	Create(ctx context.Context, session *domain.OcrSession) error
	GetByID(ctx context.Context, id string) (*domain.OcrSession, error)
	UpdateProgress(ctx context.Context, id string, status domain.OcrStatus, progress int) error
	Finish(ctx context.Context, id string, status domain.OcrStatus, tone domain.MessageTone, message, preview string) error
	// CancelActiveForDocument marks every non-final session of the document as
	// cancelled and reports whether any was.
	CancelActiveForDocument(ctx context.Context, documentID string) (int, error)
}

// ObjectStorage stages uploaded scans between submission and the worker run.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// JobQueue hands OCR sessions from the api to the worker.
type JobQueue interface {
	PublishOcrJob(ctx context.Context, sessionID string) error
	SubscribeOcrJobs(ctx context.Context, handler func(context.Context, string) error) error
}
