package engine

import "errors"

// Result is the outcome of every exported engine call.
//
// Success implies Error is nil. On failure Data holds the neutral value for
// the call: nil for a single row, an empty (never nil) slice for lists.
type Result[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo describes a failed call.
type ErrorInfo struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Stack      string    `json:"stack,omitempty"`
	MissingIDs []int64   `json:"missing_ids,omitempty"`
}

// Err converts a failed Result back into an error. Returns nil on success.
func (r Result[T]) Err() error {
	if r.Success || r.Error == nil {
		return nil
	}
	e := &Error{Kind: r.Error.Kind, Message: r.Error.Message}
	if r.Error.Kind == KindNotFound {
		e.IDs = r.Error.MissingIDs
	}
	return e
}

func succeed[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func failWith[T any](neutral T, err error) Result[T] {
	info := &ErrorInfo{
		Kind:    KindOf(err),
		Message: err.Error(),
	}
	var ee *Error
	if errors.As(err, &ee) && ee.Kind == KindNotFound {
		info.MissingIDs = ee.IDs
	}
	return Result[T]{Success: false, Data: neutral, Error: info}
}
