package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caseflow/internal/core/domain"
	"caseflow/internal/core/ports"
)

// OcrPipeline runs one queued extraction session to completion: submit the
// staged scan to the extraction delegate, poll the status URL on a fixed
// interval within a bounded attempt budget, classify the outcome and patch
// the merged fields back onto the document record.
type OcrPipeline struct {
	sessions ports.SessionStore
	storage  ports.ObjectStorage
	ocr      ports.OcrService
	backend  ports.CaseBackend
	logger   *slog.Logger

	pollInterval time.Duration
	maxAttempts  int
}

func NewOcrPipeline(
	sessions ports.SessionStore,
	storage ports.ObjectStorage,
	ocr ports.OcrService,
	backend ports.CaseBackend,
	pollInterval time.Duration,
	maxAttempts int,
	logger *slog.Logger,
) *OcrPipeline {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 90
	}
	return &OcrPipeline{
		sessions:     sessions,
		storage:      storage,
		ocr:          ocr,
		backend:      backend,
		logger:       logger,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
	}
}

func (p *OcrPipeline) ProcessSession(ctx context.Context, sessionID string) error {
	session, err := p.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load ocr session: %w", err)
	}
	if session.Status.Final() {
		// Superseded or already handled; nothing to run.
		p.logger.Info("skipping final ocr session", "session_id", sessionID, "status", session.Status)
		return nil
	}

	finalized, err := p.process(ctx, session)
	if domain.IsKind(err, domain.ErrSessionSuperseded) {
		// A re-submission cancelled the session mid-run; the result is
		// discarded and only the replacement's staged scan stays behind.
		p.logger.Info("discarding stale ocr result", "session_id", sessionID, "document_id", session.DocumentID)
		finalized, err = true, nil
	}
	if finalized {
		if removeErr := p.storage.Remove(ctx, session.StorageKey); removeErr != nil {
			p.logger.Warn("staged scan cleanup failed", "session_id", sessionID, "error", removeErr)
		}
	}
	return err
}

// process runs the extraction and records its outcome. It reports whether the
// session reached a final status, so the caller knows the staged scan can go.
func (p *OcrPipeline) process(ctx context.Context, session *domain.OcrSession) (bool, error) {
	result, err := p.run(ctx, session)
	if err != nil {
		if domain.IsKind(err, domain.ErrSessionSuperseded) {
			return false, err
		}
		if finishErr := p.sessions.Finish(ctx, session.ID, domain.OcrFailed, domain.ToneError, err.Error(), ""); finishErr != nil {
			if domain.IsKind(finishErr, domain.ErrSessionSuperseded) {
				return false, finishErr
			}
			return false, fmt.Errorf("%w; finish session: %v", err, finishErr)
		}
		return true, err
	}

	switch result.Status {
	case domain.OcrTimeout:
		err := p.sessions.Finish(ctx, session.ID, domain.OcrTimeout, domain.ToneError,
			"document extraction timed out, please retry or enter the data manually", "")
		return err == nil, err
	case domain.OcrFailed:
		message := result.Error
		if message == "" {
			message = "document extraction failed"
		}
		err := p.sessions.Finish(ctx, session.ID, domain.OcrFailed, domain.ToneError, message, "")
		return err == nil, err
	}

	tone, message := ClassifyResult(result)

	// The document may have been re-submitted while this run was polling; a
	// superseded session's result is discarded, never applied.
	fresh, err := p.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return false, fmt.Errorf("recheck ocr session: %w", err)
	}
	if fresh.Status.Final() {
		return false, domain.WrapError(domain.ErrSessionSuperseded, "apply ocr result",
			fmt.Errorf("session %s is already %s", session.ID, fresh.Status))
	}

	if result.MrzData != nil {
		patch := MergePatch(result.MrzData, session.TitleSet)
		if err := p.backend.PatchDocument(ctx, session.DocumentID, patch); err != nil {
			if finishErr := p.sessions.Finish(ctx, session.ID, domain.OcrFailed, domain.ToneError,
				fmt.Sprintf("extracted data could not be saved: %v", err), ""); finishErr != nil {
				if domain.IsKind(finishErr, domain.ErrSessionSuperseded) {
					return false, finishErr
				}
				return false, fmt.Errorf("patch document: %w; finish session: %v", err, finishErr)
			}
			return true, fmt.Errorf("patch document: %w", err)
		}
	}

	if err := p.sessions.Finish(ctx, session.ID, domain.OcrCompleted, tone, message, result.PreviewImage); err != nil {
		if domain.IsKind(err, domain.ErrSessionSuperseded) {
			return false, err
		}
		return false, fmt.Errorf("finish ocr session: %w", err)
	}
	return true, nil
}

// run submits the scan and, when the delegate answers with a status URL
// instead of a final result, polls it. Exhausting the attempt budget yields a
// synthetic timeout result distinct from a backend-reported failure.
func (p *OcrPipeline) run(ctx context.Context, session *domain.OcrSession) (*domain.OcrResult, error) {
	file, err := p.storage.Open(ctx, session.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open staged scan: %w", err)
	}
	defer file.Close()

	if err := p.sessions.UpdateProgress(ctx, session.ID, domain.OcrProcessing, 0); err != nil {
		return nil, fmt.Errorf("mark session processing: %w", err)
	}

	result, statusURL, err := p.ocr.Submit(ctx, file, session.StorageKey, session.DocTypeName)
	if err != nil {
		return nil, fmt.Errorf("submit extraction: %w", err)
	}
	if result != nil && result.Status.Final() {
		return result, nil
	}
	if statusURL == "" {
		return nil, fmt.Errorf("extraction response carries neither a result nor a status url")
	}
	return p.poll(ctx, session.ID, statusURL)
}

// poll holds a single outstanding timer and stops on context cancellation, a
// final status, or the attempt budget. The budget caps the number of status
// requests: attempt maxAttempts is the last request issued.
func (p *OcrPipeline) poll(ctx context.Context, sessionID, statusURL string) (*domain.OcrResult, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := waitInterval(ctx, p.pollInterval); err != nil {
			return nil, err
		}

		result, err := p.ocr.FetchStatus(ctx, statusURL)
		if err != nil {
			return nil, fmt.Errorf("poll extraction status (attempt %d): %w", attempt, err)
		}
		if result.Status.Final() {
			return result, nil
		}
		if err := p.sessions.UpdateProgress(ctx, sessionID, domain.OcrProcessing, result.Progress); err != nil {
			return nil, fmt.Errorf("update session progress: %w", err)
		}
	}
	return &domain.OcrResult{Status: domain.OcrTimeout}, nil
}

func waitInterval(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
