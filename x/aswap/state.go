package aswap

import "fmt"

// State of a contract. Transitions only move forward:
//
//	Compiled -> Funded -> SpentByRefund | SpentByReveal
type State int

const (
	StateCompiled State = iota + 1
	StateFunded
	StateSpentByRefund
	StateSpentByReveal
)

func (s State) String() string {
	switch s {
	case StateCompiled:
		return "compiled"
	case StateFunded:
		return "funded"
	case StateSpentByRefund:
		return "spent by refund"
	case StateSpentByReveal:
		return "spent by reveal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal returns true if no transition leaves this state.
func (s State) Terminal() bool {
	return s == StateSpentByRefund || s == StateSpentByReveal
}
