package tickets

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable classification returned to
// callers alongside the human-readable message.
type ErrorKind string

const (
	KindOutOfHours       ErrorKind = "OUT_OF_HOURS"
	KindInvalidInput     ErrorKind = "INVALID_INPUT"
	KindInvalidOffice    ErrorKind = "INVALID_OFFICE"
	KindDuplicateTicket  ErrorKind = "DUPLICATE_ACTIVE_TICKET"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindStoreUnavailable ErrorKind = "STORE_UNAVAILABLE"
)

// QueueError carries an error kind across the service boundary. Store
// failures are wrapped, never swallowed.
type QueueError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *QueueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *QueueError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string) *QueueError {
	return &QueueError{Kind: kind, Message: message}
}

func storeError(op string, err error) *QueueError {
	return &QueueError{
		Kind:    KindStoreUnavailable,
		Message: fmt.Sprintf("store operation %s failed", op),
		Err:     err,
	}
}

// KindOf extracts the error kind, or KindStoreUnavailable for anything
// that did not originate from the engine's taxonomy.
func KindOf(err error) ErrorKind {
	var qe *QueueError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindStoreUnavailable
}
