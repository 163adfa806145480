// Package assert holds the small set of test assertions used across swapkit.
// Every helper stops the test on the first failure.
package assert

import (
	"reflect"
	"testing"

	"github.com/iov-one/swapkit/errors"
)

// Tester is the part of testing.TB the value assertions need.
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails when value is neither nil nor a typed nil.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !nilValue(value) {
		// %+v prints the stack of swapkit errors.
		t.Fatalf("want nil, got %+v", value)
	}
}

func nilValue(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// Equal fails unless want and got are deeply equal.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("not equal\nwant (%T) %v\n got (%T) %v", want, want, got, got)
	}
}

// Panics fails unless fn panics.
func Panics(t Tester, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("fn did not panic")
		}
	}()
	fn()
}

// IsErr fails unless got is want or wraps it. A nil want only matches a nil
// got.
func IsErr(t testing.TB, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	if k, ok := want.(interface{ Is(error) bool }); ok && k.Is(got) {
		return
	}
	t.Fatalf("want %q error, got %+v", want, got)
}

// FieldError checks the errors recorded for field. With a nil want the field
// must have no error, otherwise it must have exactly one error of kind want.
func FieldError(t testing.TB, err error, field string, want *errors.Error) {
	t.Helper()
	errs := errors.FieldErrors(err, field)
	if want == nil {
		if len(errs) != 0 {
			logAll(t, errs)
			t.Fatalf("field %q: want no error, got %d", field, len(errs))
		}
		return
	}
	switch len(errs) {
	case 0:
		t.Fatalf("field %q: no error", field)
	case 1:
		if !want.Is(errs[0]) {
			t.Fatalf("field %q: want %q error, got %q", field, want, errs[0])
		}
	default:
		logAll(t, errs)
		t.Fatalf("field %q: want one error, got %d", field, len(errs))
	}
}

func logAll(t testing.TB, errs []error) {
	for i, e := range errs {
		t.Logf("  %d: %v", i, e)
	}
}

// Class fails unless err belongs to the want class.
func Class(t testing.TB, want errors.Class, err error) {
	t.Helper()
	if got := errors.ClassOf(err); got != want {
		t.Fatalf("want %s error, got %s: %+v", want, got, err)
	}
}

// Position fails unless err points at input offset want.
func Position(t testing.TB, want int, err error) {
	t.Helper()
	got, ok := errors.PositionOf(err)
	if !ok {
		t.Fatalf("error carries no position: %+v", err)
	}
	if got != want {
		t.Fatalf("want error at offset %d, got %d: %v", want, got, err)
	}
}
