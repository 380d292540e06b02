package gateway

import (
	"fmt"
	"strings"
)

// Result holds either the value of a successful call or the error that
// ended it. The zero Result is a failure with a nil-safe error.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

func Fail[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("gateway: unknown failure")
	}
	return Result[T]{err: err}
}

func (r Result[T]) IsOk() bool {
	return r.ok
}

// Unwrap returns the value or the error, for callers that prefer plain Go
// error handling.
func (r Result[T]) Unwrap() (T, error) {
	if !r.ok {
		var zero T
		if r.err == nil {
			return zero, fmt.Errorf("gateway: empty result")
		}
		return zero, r.err
	}
	return r.value, nil
}

// Err returns the failure, or nil on success.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	_, err := r.Unwrap()
	return err
}

// Match calls exactly one of the two handlers.
func (r Result[T]) Match(onOk func(T), onErr func(error)) {
	if r.ok {
		onOk(r.value)
		return
	}
	onErr(r.Err())
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any request is sent.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// RemoteError is a request that reached the server and was refused, either
// with a non-2xx status or with success=false.
type RemoteError struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return fmt.Sprintf("remote error %d: %s", e.Status, msg)
}
