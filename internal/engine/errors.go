package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes engine errors.
type ErrorKind string

const (
	// KindNotFound indicates one or more requested ids do not exist.
	KindNotFound ErrorKind = "NotFound"

	// KindValidationSkip marks an item that was skipped, not failed. It is
	// only logged and never fails a batch.
	KindValidationSkip ErrorKind = "ValidationSkip"

	// KindStoreFault indicates the store rejected a statement or panicked.
	KindStoreFault ErrorKind = "StoreFault"

	// KindReFetchInconsistency indicates a row written by the batch could not
	// be read back.
	KindReFetchInconsistency ErrorKind = "ReFetchInconsistency"

	// KindInvalidRequest indicates a malformed call: unknown table, unknown
	// id column, empty batch or an unsupported value.
	KindInvalidRequest ErrorKind = "InvalidRequest"
)

// Error is the structured error produced by engine operations.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// Table is the affected table, if any.
	Table string

	// IDs lists the offending row ids (missing ids for NotFound).
	IDs []int64

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Table != "" {
		fmt.Fprintf(&b, " (table=%s)", e.Table)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain. Errors that
// carry no kind are store faults.
func KindOf(err error) ErrorKind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindStoreFault
}

// IsNotFound returns true if the error is a NotFound error.
func IsNotFound(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindNotFound
}

// IsStoreFault returns true if the error is a StoreFault error, including
// errors that carry no kind.
func IsStoreFault(err error) bool {
	return err != nil && KindOf(err) == KindStoreFault
}

// IsReFetchInconsistency returns true if the error is a ReFetchInconsistency
// error.
func IsReFetchInconsistency(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindReFetchInconsistency
}

// IsInvalidRequest returns true if the error is an InvalidRequest error.
func IsInvalidRequest(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindInvalidRequest
}

// NewNotFoundError creates an Error listing every missing id.
func NewNotFoundError(table string, missing []int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%d id(s) not found: %s", len(missing), joinIDs(missing)),
		Table:   table,
		IDs:     missing,
	}
}

// NewStoreFault wraps a store error.
func NewStoreFault(table string, err error) *Error {
	return &Error{
		Kind:    KindStoreFault,
		Message: "store rejected the operation",
		Table:   table,
		Err:     err,
	}
}

// NewReFetchError creates an Error for a written row that could not be read back.
func NewReFetchError(table string, id int64, err error) *Error {
	return &Error{
		Kind:    KindReFetchInconsistency,
		Message: fmt.Sprintf("row %d vanished after write", id),
		Table:   table,
		IDs:     []int64{id},
		Err:     err,
	}
}

// NewInvalidRequest creates an InvalidRequest Error.
func NewInvalidRequest(table string, err error) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Message: "invalid request",
		Table:   table,
		Err:     err,
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
