package queue

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"clinic_queue/internal/models"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	KindValidation   Kind = iota + 1 // malformed input, rejected before touching the store
	KindPrecondition                 // business rule violation, safe to report verbatim, never retried
	KindNotFound
	KindConflict  // lost a race on the per-server critical section after the internal retry
	KindTransient // store, lock or channel unavailable; the caller may retry
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by every Controller operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code, so detailed copies compare equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrServerUnavailable = &Error{Kind: KindPrecondition, Code: "SERVER_UNAVAILABLE", Message: "server is not accepting new entries"}
	ErrAlreadyQueued     = &Error{Kind: KindPrecondition, Code: "ALREADY_QUEUED", Message: "consumer already holds an active queue entry"}
	ErrAlreadyServing    = &Error{Kind: KindPrecondition, Code: "ALREADY_SERVING", Message: "server is already serving an entry"}
	ErrQueueEmpty        = &Error{Kind: KindPrecondition, Code: "QUEUE_EMPTY", Message: "no waiting entries for server"}
	ErrInvalidState      = &Error{Kind: KindPrecondition, Code: "INVALID_STATE", Message: "entry status does not allow this transition"}
	ErrNotFound          = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "not found"}
	ErrConflict          = &Error{Kind: KindConflict, Code: "CONFLICT", Message: "concurrent update, retry the request"}
	ErrValidation        = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "invalid request"}
	ErrTransient         = &Error{Kind: KindTransient, Code: "UNAVAILABLE", Message: "queue store temporarily unavailable"}
)

// KindOf reports the Kind of err; unclassified errors are treated as transient.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindTransient
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: ErrValidation.Code, Message: fmt.Sprintf(format, args...)}
}

func invalidState(from, to models.Status) *Error {
	return &Error{
		Kind:    KindPrecondition,
		Code:    ErrInvalidState.Code,
		Message: fmt.Sprintf("entry is %s, cannot move to %s", from, to),
	}
}

func notFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Code: ErrNotFound.Code, Message: fmt.Sprintf("%s %q not found", what, id)}
}

func conflict(err error) *Error {
	return &Error{Kind: KindConflict, Code: ErrConflict.Code, Message: ErrConflict.Message, Err: err}
}

func transient(err error, op string) *Error {
	return &Error{Kind: KindTransient, Code: ErrTransient.Code, Message: ErrTransient.Message, Err: errors.Wrap(err, op)}
}

// classify turns a raw store/lock failure into a typed Error.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) {
		return err
	}
	switch {
	case errors.Is(err, ErrStaleStatus), errors.Is(err, ErrDuplicateSequence):
		return conflict(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return transient(err, op+" timed out")
	default:
		return transient(err, op)
	}
}
