package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"caseflow/internal/core/domain"
)

// SessionRepository persists OCR session state shared between the api and
// worker processes. Sessions are job bookkeeping, not application data; the
// authoritative case record stays in the CRUD backend.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ocr_sessions (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	doc_type_name TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	status TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	title_set BOOLEAN NOT NULL DEFAULT FALSE,
	tone TEXT,
	message TEXT,
	preview TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ocr_sessions_document ON ocr_sessions(document_id);
CREATE INDEX IF NOT EXISTS idx_ocr_sessions_created_at ON ocr_sessions(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.OcrSession) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ocr_sessions (
	id, document_id, doc_type_name, storage_key, status, progress, title_set, tone, message, preview, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		session.ID, session.DocumentID, session.DocTypeName, session.StorageKey,
		string(session.Status), session.Progress, session.TitleSet,
		string(session.Tone), session.Message, session.PreviewData,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ocr session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.OcrSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, doc_type_name, storage_key, status, progress, title_set, tone, message, preview, created_at, updated_at
FROM ocr_sessions
WHERE id = $1
`, id)

	var session domain.OcrSession
	var status, tone string

	err := row.Scan(
		&session.ID, &session.DocumentID, &session.DocTypeName, &session.StorageKey,
		&status, &session.Progress, &session.TitleSet,
		&tone, &session.Message, &session.PreviewData,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get ocr session", err)
		}
		return nil, fmt.Errorf("scan ocr session: %w", err)
	}
	session.Status = domain.OcrStatus(status)
	session.Tone = domain.MessageTone(tone)
	return &session, nil
}

// UpdateProgress and Finish only touch sessions still in flight. A cancelled
// session keeps its final status no matter what the worker writes afterwards;
// the refused write tells the worker to discard the run.

func (r *SessionRepository) UpdateProgress(ctx context.Context, id string, status domain.OcrStatus, progress int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE ocr_sessions
SET status = $2, progress = $3, updated_at = $4
WHERE id = $1 AND status IN ($5, $6)
`, id, string(status), progress, time.Now().UTC(),
		string(domain.OcrQueued), string(domain.OcrProcessing))
	if err != nil {
		return fmt.Errorf("update ocr session progress: %w", err)
	}
	return r.requireActiveRow(ctx, res, id)
}

func (r *SessionRepository) Finish(ctx context.Context, id string, status domain.OcrStatus, tone domain.MessageTone, message, preview string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE ocr_sessions
SET status = $2, progress = 100, tone = $3, message = $4, preview = $5, updated_at = $6
WHERE id = $1 AND status IN ($7, $8)
`, id, string(status), string(tone), message, preview, time.Now().UTC(),
		string(domain.OcrQueued), string(domain.OcrProcessing))
	if err != nil {
		return fmt.Errorf("finish ocr session: %w", err)
	}
	return r.requireActiveRow(ctx, res, id)
}

// CancelActiveForDocument supersedes every queued/processing session of the
// document so a stale worker result is discarded rather than applied.
func (r *SessionRepository) CancelActiveForDocument(ctx context.Context, documentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE ocr_sessions
SET status = $2, updated_at = $3
WHERE document_id = $1 AND status IN ($4, $5)
`, documentID, string(domain.OcrCancelled), time.Now().UTC(),
		string(domain.OcrQueued), string(domain.OcrProcessing))
	if err != nil {
		return 0, fmt.Errorf("cancel ocr sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel ocr sessions rows affected: %w", err)
	}
	return int(affected), nil
}

// requireActiveRow tells a missing session apart from one the status guard
// refused to overwrite.
func (r *SessionRepository) requireActiveRow(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM ocr_sessions WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrSessionNotFound, "update ocr session",
			fmt.Errorf("session %s does not exist", id))
	}
	if err != nil {
		return fmt.Errorf("read ocr session status: %w", err)
	}
	return domain.WrapError(domain.ErrSessionSuperseded, "update ocr session",
		fmt.Errorf("session %s is already %s", id, status))
}
