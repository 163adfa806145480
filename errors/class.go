package errors

// Class groups root errors by the code range they were registered with.
type Class uint32

const (
	ClassGeneric       Class = 0
	ClassPolicy        Class = 1
	ClassSanity        Class = 2
	ClassContractState Class = 3
	ClassSecret        Class = 4
	ClassAssembly      Class = 5
	ClassSignature     Class = 6
	ClassLedger        Class = 7

	// ClassInternal is used for errors that do not wrap a root error.
	ClassInternal Class = 1<<32 - 1
)

func (c Class) String() string {
	switch c {
	case ClassGeneric:
		return "generic"
	case ClassPolicy:
		return "policy"
	case ClassSanity:
		return "sanity"
	case ClassContractState:
		return "contract state"
	case ClassSecret:
		return "secret"
	case ClassAssembly:
		return "assembly"
	case ClassSignature:
		return "signature"
	case ClassLedger:
		return "ledger"
	default:
		return "internal"
	}
}

// ClassOf returns the class of the root error wrapped by err. Errors that
// do not wrap any root error are ClassInternal.
func ClassOf(err error) Class {
	r := Root(err)
	if r == nil || r == ErrPanic {
		return ClassInternal
	}
	return r.Class()
}
