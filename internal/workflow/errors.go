package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "state_conflict"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindStorage    Kind = "storage"
	KindPartial    Kind = "partial"
)

// StorageCause tells the caller whether to retry, shrink the payload or give up.
type StorageCause string

const (
	CauseTimeout         StorageCause = "timeout"
	CausePayloadTooLarge StorageCause = "payload_too_large"
	CauseCancelled       StorageCause = "cancelled"
	CauseServer          StorageCause = "server"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Field   string
	Cause   StorageCause
	Err     error

	// Partial failures carry the state that did commit.
	Committed any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validation(op, field, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: msg}
}

func conflict(op, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

func forbidden(op, msg string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Message: msg}
}

func notFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: what + " not found", Err: store.ErrNotFound}
}

// storageFailure classifies an upload or persistence failure.
func storageFailure(op string, err error) *Error {
	e := &Error{Kind: KindStorage, Op: op, Err: err, Cause: CauseServer, Message: "storage request failed"}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Cause, e.Message = CauseTimeout, "storage request timed out"
	case errors.Is(err, context.Canceled):
		e.Cause, e.Message = CauseCancelled, "upload cancelled"
	case errors.Is(err, storage.ErrTooLarge):
		e.Cause, e.Message = CausePayloadTooLarge, "payload too large"
	}
	return e
}

// ErrorKind returns the Kind of err, or "" when err is not a workflow error.
func ErrorKind(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// wrapStore turns a raw store error into a workflow error. Workflow errors
// raised inside a transaction pass through untouched.
func wrapStore(op, what string, err error) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return notFound(op, what)
	}
	if errors.Is(err, store.ErrDuplicate) {
		e := conflict(op, "%s already exists", what)
		e.Err = err
		return e
	}
	return storageFailure(op, err)
}
