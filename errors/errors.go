package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned when a party requests data it is not
	// entitled to.
	ErrUnauthorized = Register(2, "unauthorized")

	// ErrNotFound is returned when a looked up output, contract or key
	// does not exist.
	ErrNotFound = Register(3, "not found")

	// ErrInput stands for general input problems indication.
	ErrInput = Register(4, "invalid input")

	// ErrDuplicate is returned when a value that must be unique is
	// provided more than once.
	ErrDuplicate = Register(5, "duplicate")

	// ErrHuman is returned when the code reaches a path which should not
	// ever be reached if the code was written as expected.
	ErrHuman = Register(6, "coding error")

	// ErrEmpty is returned when a value fails a not empty assertion.
	ErrEmpty = Register(7, "value is empty")

	// ErrType is returned whenever the type is not what was expected.
	ErrType = Register(8, "invalid type")

	// ErrPolicySyntax is returned when a policy expression cannot be
	// parsed or a script cannot be lifted back into a policy.
	ErrPolicySyntax = Register(101, "policy syntax")

	// ErrPolicyTooComplex is returned when a policy nests too deep, has
	// too many satisfaction branches or combines fragments in an
	// unsupported way.
	ErrPolicyTooComplex = Register(102, "policy too complex")

	// ErrMixedTimelockUnits is returned when a single satisfaction branch
	// requires both a block height and a timestamp lock.
	ErrMixedTimelockUnits = Register(103, "mixed timelock units")

	// ErrResourceLimit is returned when a compiled script or any of its
	// witnesses exceeds the standardness limits.
	ErrResourceLimit = Register(104, "resource limit exceeded")

	// ErrSanity is returned when a compiled script is unsound or was not
	// checked yet.
	ErrSanity = Register(201, "sanity check failed")

	// ErrContractState is returned when a contract is asked to perform a
	// transition its current state does not allow.
	ErrContractState = Register(301, "invalid contract state")

	// ErrSecretMismatch is returned when contracts bound to a single swap
	// session commit to different secrets.
	ErrSecretMismatch = Register(401, "secret commitment mismatch")

	// ErrInvalidPreimage is returned when a preimage does not hash to the
	// expected commitment or is not of the expected size.
	ErrInvalidPreimage = Register(402, "invalid preimage")

	// ErrInsufficientFunds is returned when the inputs cannot pay for the
	// outputs and the fee.
	ErrInsufficientFunds = registerRecoverable(501, "insufficient funds")

	// ErrAmbiguousPolicyPath is returned when more than one branch of a
	// spent contract is satisfiable and no branch was selected.
	ErrAmbiguousPolicyPath = registerRecoverable(502, "ambiguous policy path")

	// ErrForeignUtxoSpent is returned when the ledger reports that a
	// foreign input is no longer unspent.
	ErrForeignUtxoSpent = registerRecoverable(503, "foreign output already spent")

	// ErrSignature is returned when a signature cannot be produced or does
	// not verify.
	ErrSignature = Register(601, "signature")

	// ErrMissingWitnessData is returned when a witness cannot be
	// completed because a signature or a preimage is missing.
	ErrMissingWitnessData = Register(602, "missing witness data")

	// ErrLedger is returned by ledger implementations when the underlying
	// chain backend fails.
	ErrLedger = Register(701, "ledger")

	// ErrPanic is only set when we recover from a panic.
	ErrPanic = Register(111222, "panic")
)

// Register declares a root error under a unique code. It panics when the code
// is taken, so call it from package level var blocks only.
func Register(code uint32, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	err := &Error{
		code: code,
		desc: description,
	}
	usedCodes[err.code] = err
	return err
}

// registerRecoverable registers a root error that a caller can resolve by
// providing more input or by retrying later.
func registerRecoverable(code uint32, description string) *Error {
	e := Register(code, description)
	e.recoverable = true
	return e
}

// usedCodes is keeping track of used codes to ensure their uniqueness.
var usedCodes = map[uint32]*Error{
	1: nil, // Reserved for errors that do not wrap a root error.
}

// Error is a registered root error. Errors returned by swapkit packages wrap
// exactly one root so callers can classify them with Is.
type Error struct {
	code        uint32
	desc        string
	recoverable bool
}

func (e Error) Error() string {
	return e.desc
}

// Code returns the unique code of this root error.
func (e Error) Code() uint32 {
	return e.code
}

// Class returns the class the error code belongs to.
func (e Error) Class() Class {
	return Class(e.code / 100)
}

// New is a shorthand for Wrap(e, description).
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is basically New with formatting capabilities.
func (e *Error) Newf(description string, args ...interface{}) error {
	return e.New(fmt.Sprintf(description, args...))
}

// Is reports whether err is kind or wraps it, following Cause chains and
// descending into multi errors.
func (kind *Error) Is(err error) bool {
	// A typed nil stored in an error interface is not == nil.
	if kind == nil {
		if err == nil {
			return true
		}
		return reflect.ValueOf(err).IsNil()
	}

	for {
		if err == kind {
			return true
		}

		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				if kind.Is(e) {
					return true
				}
			}
			return false
		}

		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return false
		}
	}
}

// Wrap prefixes err with description. A nil err stays nil, so the result of a
// call can be wrapped unconditionally in a return statement.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}

	// Only the innermost wrap records a stack.
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}

	return &wrappedError{
		parent: err,
		msg:    description,
	}
}

// Wrapf is Wrap with a formatted description.
func Wrapf(err error, format string, args ...interface{}) error {
	desc := fmt.Sprintf(format, args...)
	return Wrap(err, desc)
}

// WithCause classifies err, returned by a system outside of swapkit, under
// root. The result is root for Is and ClassOf, while err stays reachable
// with the standard library errors.As and errors.Is.
func WithCause(root *Error, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return Wrap(&causedError{root: root, cause: err}, description)
}

type causedError struct {
	root  *Error
	cause error
}

func (e *causedError) Error() string {
	return fmt.Sprintf("%s: %s", e.cause, e.root)
}

func (e *causedError) Cause() error { return e.root }

func (e *causedError) Unwrap() []error { return []error{e.root, e.cause} }

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Unwrap allows the standard library errors.Is and errors.As to traverse the
// chain.
func (e *wrappedError) Unwrap() error {
	return e.parent
}

// Format prints the stack trace of the innermost wrap for %+v.
func (e *wrappedError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s", e.Error())
		if st := stackTrace(e); st != nil {
			fmt.Fprintf(s, "%+v", st)
		}
		return
	}
	fmt.Fprint(s, e.Error())
}

// Recover turns a panic into an ErrPanic stored in err. It must be deferred.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// WithType wraps err with the Go type name of obj.
func WithType(err error, obj interface{}) error {
	return Wrap(err, fmt.Sprintf("%T", obj))
}

// Root returns the root error wrapped by given error or nil if the chain does
// not contain any. For a multi error the first root found is returned.
func Root(err error) *Error {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e
		}
		if u, ok := err.(unpacker); ok {
			for _, child := range u.Unpack() {
				if r := Root(child); r != nil {
					return r
				}
			}
			return nil
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// IsRecoverable returns true if the caller can resolve the error by providing
// additional input (ie. an explicit policy path) or by retrying later.
func IsRecoverable(err error) bool {
	r := Root(err)
	return r != nil && r.recoverable
}

// causer is implemented by wrapping errors, including those of pkg/errors.
type causer interface {
	Cause() error
}

// unpacker is implemented by errors that group several errors together.
type unpacker interface {
	Unpack() []error
}
