package aswap

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/hashlock"
)

// Branch tags of an HTLC.
const (
	TagRefund = "refund"
	TagReveal = "reveal"
)

var _ hashlock.HashLocked = (*Contract)(nil)

// Contract is a funded or to be funded output locked by a sane witness
// script. It is safe for concurrent use.
type Contract struct {
	script  *policy.CompiledScript
	net     swapkit.Network
	address btcutil.Address
	htlc    *HTLCParams
	// tags maps a tag to the name of the branch it stands for.
	tags map[string]string

	mu      sync.Mutex
	state   State
	funding *FundingRef
	spentBy string
}

// NewContract returns a contract in the Compiled state for a script that
// passed the sanity check.
func NewContract(cs *policy.CompiledScript, net swapkit.Network) (*Contract, error) {
	if cs == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "script")
	}
	if !cs.IsSane() {
		return nil, errors.Wrap(errors.ErrSanity, "contract script was not sanity checked")
	}
	addr, err := cs.Address(net)
	if err != nil {
		return nil, err
	}
	return &Contract{
		script:  cs,
		net:     net,
		address: addr,
		tags:    make(map[string]string),
		state:   StateCompiled,
	}, nil
}

// ID returns the hex encoded witness program of the contract script.
func (c *Contract) ID() string { return c.script.ID() }

// Script returns the compiled contract script.
func (c *Contract) Script() *policy.CompiledScript { return c.script }

// Network returns the network the contract address belongs to.
func (c *Contract) Network() swapkit.Network { return c.net }

// Address returns the address funding the contract pays to.
func (c *Contract) Address() btcutil.Address { return c.address }

// HTLC returns the parameters of a contract built with NewHTLC.
func (c *Contract) HTLC() (HTLCParams, bool) {
	if c.htlc == nil {
		return HTLCParams{}, false
	}
	return *c.htlc, true
}

// HashLocks returns the distinct digests the contract script commits to.
func (c *Contract) HashLocks() [][32]byte {
	var out [][32]byte
	seen := make(map[[32]byte]struct{})
	for _, b := range c.script.Branches() {
		for _, d := range b.Digests {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// Tag returns the tag of a branch or an empty string.
func (c *Contract) Tag(branchName string) string {
	for tag, name := range c.tags {
		if name == branchName {
			return tag
		}
	}
	return ""
}

// Branch resolves a tag or a branch name.
func (c *Contract) Branch(choice string) (policy.Branch, error) {
	if name, ok := c.tags[choice]; ok {
		choice = name
	}
	return c.script.Branch(choice)
}

// State returns the current state.
func (c *Contract) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Funding returns the funding reference once the contract is funded.
func (c *Contract) Funding() (FundingRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.funding == nil {
		return FundingRef{}, false
	}
	return c.funding.copy(), true
}

// SpentBy returns the name of the branch that spent the contract.
func (c *Contract) SpentBy() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spentBy
}

// MarkFunded moves the contract to the Funded state. Marking the same
// funding twice is a no-op.
func (c *Contract) MarkFunded(ref FundingRef) error {
	if err := ref.Validate(c.script.PkScript()); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCompiled:
		ref = ref.copy()
		c.funding = &ref
		c.state = StateFunded
		return nil
	case StateFunded:
		if c.funding.OutPoint == ref.OutPoint {
			return nil
		}
		return errors.Wrapf(errors.ErrContractState, "contract %s is already funded by %s", c.ID(), c.funding.OutPoint)
	default:
		return errors.Wrapf(errors.ErrContractState, "contract %s is %s", c.ID(), c.state)
	}
}

// SpendableBranches returns the branches that can be taken at given tip. A
// contract that is not funded has none.
func (c *Contract) SpendableBranches(tip swapkit.ChainTip) []policy.Branch {
	if c.State() != StateFunded {
		return nil
	}
	return c.script.SatisfiableBranches(tip)
}

// SelectBranch returns the branch used to spend the contract at given tip.
// The choice is a tag or a branch name. An empty choice is accepted only
// when exactly one branch is satisfiable.
func (c *Contract) SelectBranch(tip swapkit.ChainTip, choice string) (policy.Branch, error) {
	if st := c.State(); st != StateFunded {
		return policy.Branch{}, errors.Wrapf(errors.ErrContractState, "contract %s is %s", c.ID(), st)
	}

	if choice == "" {
		branches := c.script.SatisfiableBranches(tip)
		switch len(branches) {
		case 0:
			return policy.Branch{}, errors.Wrapf(errors.ErrContractState,
				"no branch of contract %s is satisfiable at %s", c.ID(), tip)
		case 1:
			return branches[0], nil
		default:
			return policy.Branch{}, errors.Wrapf(errors.ErrAmbiguousPolicyPath,
				"%d branches of contract %s are satisfiable at %s", len(branches), c.ID(), tip)
		}
	}

	b, err := c.Branch(choice)
	if err != nil {
		return policy.Branch{}, err
	}
	if !b.SatisfiableAt(tip) {
		return policy.Branch{}, errors.Wrapf(errors.ErrContractState,
			"branch %s of contract %s is locked until %s, tip is %s", choice, c.ID(), b.LockTime, tip)
	}
	return b, nil
}

// MarkSpent moves a funded contract to its terminal state. A branch that
// reveals a preimage ends in SpentByReveal, any other in SpentByRefund.
func (c *Contract) MarkSpent(choice string) error {
	b, err := c.Branch(choice)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateFunded {
		return errors.Wrapf(errors.ErrContractState, "contract %s is %s", c.ID(), c.state)
	}
	if b.RequiresPreimage() {
		c.state = StateSpentByReveal
	} else {
		c.state = StateSpentByRefund
	}
	c.spentBy = b.Name
	return nil
}
