package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Position wraps given error with the byte offset of the input that caused
// it. Use it for parser errors so that a caller can point at the culprit.
func Position(err error, offset int, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &positionError{
		parent: err,
		offset: offset,
		desc:   description,
	}
}

type positionError struct {
	parent error
	offset int
	desc   string
}

func (err *positionError) Error() string {
	if err.desc == "" {
		return fmt.Sprintf("at offset %d: %s", err.offset, err.parent)
	}
	return fmt.Sprintf("at offset %d: %s: %s", err.offset, err.desc, err.parent)
}

func (err *positionError) Cause() error {
	return err.parent
}

func (err *positionError) Unwrap() error {
	return err.parent
}

// PositionOf returns the offset attached with Position. When positions are
// nested, ie. a parser result rebased by an outer parser, the outermost one
// is returned.
func PositionOf(err error) (int, bool) {
	for err != nil {
		if p, ok := err.(*positionError); ok {
			return p.offset, true
		}
		c, ok := err.(causer)
		if !ok {
			return 0, false
		}
		err = c.Cause()
	}
	return 0, false
}
