package errors

import (
	"fmt"
	"reflect"
	"strings"
)

// Append clubs together all provided errors. Nil values are silently ignored
// and nested multi errors are flattened.
//
// Returned error is nil if no non nil error was provided. A single error is
// returned unchanged.
func Append(errs ...error) error {
	var me multiErr
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if m, ok := e.(multiErr); ok {
			me = append(me, m...)
			continue
		}
		me = append(me, e)
	}
	switch len(me) {
	case 0:
		return nil
	case 1:
		return me[0]
	default:
		return me
	}
}

type multiErr []error

func (me multiErr) Error() string {
	points := make([]string, len(me))
	for i, err := range me {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf(
		"%d errors occurred:\n\t%s\n",
		len(me), strings.Join(points, "\n\t"))
}

// Unpack returns all grouped errors.
func (me multiErr) Unpack() []error {
	return me
}

func isNilErr(err error) bool {
	if err == nil {
		return true
	}
	if val := reflect.ValueOf(err); val.Kind() == reflect.Ptr {
		return val.IsNil()
	}
	return false
}
