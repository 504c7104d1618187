package domain

import (
	"errors"
	"fmt"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrSessionNotFound     = errors.New("ocr session not found")
	// ErrSessionSuperseded refuses a write to an OCR session that already
	// reached a final status, usually because a re-submission cancelled it.
	ErrSessionSuperseded = errors.New("ocr session superseded")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrTransitionBlocked rejects a status change ahead of the predecessor
	// step's deadline.
	ErrTransitionBlocked = errors.New("transition blocked")
	// ErrBusy rejects a second mutating operation while one is outstanding for
	// the same application.
	ErrBusy      = errors.New("operation in flight")
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
