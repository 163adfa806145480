package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field records err against a named field of a validated value, such as
// Deadline or Fundings.1. A nil err gives nil.
func Field(name string, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{name: name, desc: description, cause: err}
}

// AppendField collects the error of one field. Validate methods call it once
// per field and return what was collected.
func AppendField(collected error, name string, err error) error {
	return Append(collected, Field(name, err, ""))
}

type fieldError struct {
	name  string
	desc  string
	cause error
}

func (e *fieldError) Error() string {
	msg := e.cause.Error()
	if e.desc != "" {
		msg = e.desc + ": " + msg
	}
	return fmt.Sprintf("field %q: %s", e.name, msg)
}

func (e *fieldError) Cause() error  { return e.cause }
func (e *fieldError) Unwrap() error { return e.cause }

// FieldErrors lists the errors recorded for the named field, in the order
// they were appended. The search stops at the outermost match.
func FieldErrors(err error, name string) []error {
	var found []error
	var visit func(error)
	visit = func(err error) {
		for !isNilErr(err) {
			if f, ok := err.(*fieldError); ok && f.name == name {
				found = append(found, err)
				return
			}
			switch e := err.(type) {
			case unpacker:
				for _, child := range e.Unpack() {
					visit(child)
				}
				return
			case causer:
				err = e.Cause()
			default:
				return
			}
		}
	}
	visit(err)
	return found
}
