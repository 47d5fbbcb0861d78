// Package apperrors provides chainable application errors that carry an HTTP
// status code. Errors derived from one another stay matchable with errors.Is,
// so a package can declare a base error and refine it per failure.
package apperrors

import (
	"errors"
	"strings"
)

// Error is an application error. Every refining method returns a new Error and
// leaves the receiver untouched, so package-level error values are safe to share.
type Error interface {
	error
	Unwrap() error

	New(msg string) Error                  // sibling error with the receiver as parent
	Msg(msg string) Error                  // new message, receiver kept as a cause
	MsgErr(msg string, err ...error) Error // new message with extra causes
	Err(err ...error) Error                // same message with extra causes
	SetStatusCode(int) Error
	StatusCode() int
	ErrorAll() string // message followed by the causes that are not part of the chain
	Causes() []error
}

type chainErr struct {
	msg    string
	parent error
	causes []error
	status int
}

// New creates a root error.
func New(msg string) Error {
	return &chainErr{msg: msg}
}

func (e *chainErr) Error() string {
	return e.msg
}

func (e *chainErr) Unwrap() error {
	return e.parent
}

func (e *chainErr) Causes() []error {
	return e.causes
}

func (e *chainErr) StatusCode() int {
	return e.status
}

func (e *chainErr) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.msg)
	for _, c := range e.causes {
		b.WriteString("; ")
		if ae, ok := c.(Error); ok {
			b.WriteString(ae.ErrorAll())
		} else {
			b.WriteString(c.Error())
		}
	}
	return b.String()
}

func (e *chainErr) New(msg string) Error {
	return &chainErr{msg: msg, parent: e, status: e.status}
}

func (e *chainErr) Msg(msg string) Error {
	return &chainErr{msg: msg, parent: e, status: e.status}
}

func (e *chainErr) MsgErr(msg string, errs ...error) Error {
	return &chainErr{msg: msg, parent: e, causes: compact(errs), status: e.status}
}

func (e *chainErr) Err(errs ...error) Error {
	return &chainErr{msg: e.msg, parent: e, causes: compact(errs), status: e.status}
}

func (e *chainErr) SetStatusCode(code int) Error {
	cp := *e
	cp.status = code
	return &cp
}

// Is matches the parent chain and every attached cause.
func (e *chainErr) Is(target error) bool {
	if target == nil {
		return false
	}
	if e.parent != nil && errors.Is(e.parent, target) {
		return true
	}
	for _, c := range e.causes {
		if errors.Is(c, target) {
			return true
		}
	}
	return false
}

func compact(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
