package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/core/domain"
	"caseflow/internal/core/ports"
)

// OcrIntake accepts extraction requests from the API, stages the scan and
// hands the session to the worker. A new run for a document supersedes any
// still-active session for the same document so a stale poll can never apply
// against a newer upload.
type OcrIntake struct {
	sessions ports.SessionStore
	storage  ports.ObjectStorage
	queue    ports.JobQueue
	logger   *slog.Logger
}

func NewOcrIntake(
	sessions ports.SessionStore,
	storage ports.ObjectStorage,
	queue ports.JobQueue,
	logger *slog.Logger,
) *OcrIntake {
	return &OcrIntake{sessions: sessions, storage: storage, queue: queue, logger: logger}
}

func (in *OcrIntake) Submit(ctx context.Context, req ports.OcrSubmitRequest) (*domain.OcrSession, error) {
	if !req.DocType.HasOcrCheck {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit ocr",
			fmt.Errorf("document type %q has no OCR check", req.DocType.Name))
	}
	if req.File == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit ocr",
			errors.New("a file must be selected"))
	}
	if req.DocumentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit ocr",
			errors.New("document id is required"))
	}

	superseded, err := in.sessions.CancelActiveForDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("cancel prior sessions: %w", err)
	}
	if superseded > 0 {
		in.logger.Info("superseded active ocr sessions",
			"document_id", req.DocumentID,
			"count", superseded,
		)
	}

	sessionID := uuid.NewString()
	storageKey := sessionID + "_" + sanitizeFilename(req.Filename)
	if err := in.storage.Save(ctx, storageKey, req.File); err != nil {
		return nil, fmt.Errorf("stage scan file: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.OcrSession{
		ID:          sessionID,
		DocumentID:  req.DocumentID,
		DocTypeName: req.DocType.Name,
		StorageKey:  storageKey,
		Status:      domain.OcrQueued,
		TitleSet:    req.TitleSet,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := in.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create ocr session: %w", err)
	}

	if err := in.queue.PublishOcrJob(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("publish ocr job: %w", err)
	}
	return session, nil
}

func (in *OcrIntake) Session(ctx context.Context, sessionID string) (*domain.OcrSession, error) {
	return in.sessions.GetByID(ctx, sessionID)
}
