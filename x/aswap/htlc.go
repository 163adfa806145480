package aswap

import (
	"bytes"

	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/hashlock"
)

// HTLCParams describe a hashed timelock contract.
type HTLCParams struct {
	// Owner is the compressed key that funds the contract and takes the
	// funds back after the deadline.
	Owner []byte
	// Counterparty is the compressed key that claims the funds by
	// revealing the preimage of the commitment.
	Counterparty []byte
	// Deadline is the block height or unix time from which the refund
	// branch is satisfiable.
	Deadline   swapkit.LockTime
	Commitment hashlock.Commitment
	Network    swapkit.Network
}

// Validate returns all problems of the parameters, each attached to its
// field.
func (p HTLCParams) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Owner", validateKey(p.Owner))
	errs = errors.AppendField(errs, "Counterparty", validateKey(p.Counterparty))
	if len(p.Owner) != 0 && bytes.Equal(p.Owner, p.Counterparty) {
		errs = errors.AppendField(errs, "Counterparty", errors.Wrap(errors.ErrInput, "must differ from the owner"))
	}
	errs = errors.AppendField(errs, "Deadline", p.Deadline.Validate())
	if p.Commitment == (hashlock.Commitment{}) {
		errs = errors.AppendField(errs, "Commitment", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Network", p.Network.Validate())
	return errs
}

func validateKey(key []byte) error {
	if len(key) == 0 {
		return errors.ErrEmpty
	}
	_, err := crypto.ParsePubKey(key)
	return err
}

// Policy returns the HTLC policy:
//
//	or(and(pk(owner),after(deadline)),and(pk(counterparty),sha256(commitment)))
func (p HTLCParams) Policy() *policy.Expr {
	return policy.Or(p.refund(), p.reveal())
}

func (p HTLCParams) refund() *policy.Expr {
	return policy.And(policy.Key(p.Owner), policy.After(p.Deadline))
}

func (p HTLCParams) reveal() *policy.Expr {
	return policy.And(policy.Key(p.Counterparty), policy.SHA256(p.Commitment))
}

// NewHTLC compiles and checks the HTLC script and returns its contract with
// the branches tagged refund and reveal.
func NewHTLC(p HTLCParams) (*Contract, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cs, err := policy.Compile(p.Policy())
	if err != nil {
		return nil, errors.Wrap(err, "compile htlc")
	}
	if err := policy.SanityCheck(cs); err != nil {
		return nil, errors.Wrap(err, "htlc")
	}
	c, err := NewContract(cs, p.Network)
	if err != nil {
		return nil, err
	}
	params := p
	params.Owner = append([]byte(nil), p.Owner...)
	params.Counterparty = append([]byte(nil), p.Counterparty...)
	c.htlc = &params
	c.tags[TagRefund] = p.refund().String()
	c.tags[TagReveal] = p.reveal().String()
	return c, nil
}

// Commitment returns the commitment of an HTLC.
func (c *Contract) Commitment() (hashlock.Commitment, bool) {
	if c.htlc == nil {
		return hashlock.Commitment{}, false
	}
	return c.htlc.Commitment, true
}

// ContractFromScript lifts a witness script received from a counterparty
// into a contract. A script of the HTLC shape gets its parameters and the
// refund and reveal tags back.
func ContractFromScript(script []byte, net swapkit.Network) (*Contract, error) {
	cs, err := policy.FromScript(script)
	if err != nil {
		return nil, err
	}
	p, ok := htlcOf(cs.Policy())
	if !ok {
		return NewContract(cs, net)
	}
	p.Network = net
	if err := p.Validate(); err != nil {
		return NewContract(cs, net)
	}
	c, err := NewContract(cs, net)
	if err != nil {
		return nil, err
	}
	c.htlc = &p
	c.tags[TagRefund] = p.refund().String()
	c.tags[TagReveal] = p.reveal().String()
	return c, nil
}

// htlcOf matches or(and(pk,after),and(pk,sha256)).
func htlcOf(e *policy.Expr) (HTLCParams, bool) {
	if e.Kind() != policy.KindOr || len(e.Children()) != 2 {
		return HTLCParams{}, false
	}
	refund, reveal := e.Children()[0].Children(), e.Children()[1].Children()
	if e.Children()[0].Kind() != policy.KindAnd || len(refund) != 2 ||
		refund[0].Kind() != policy.KindKey || refund[1].Kind() != policy.KindAfter {
		return HTLCParams{}, false
	}
	if e.Children()[1].Kind() != policy.KindAnd || len(reveal) != 2 ||
		reveal[0].Kind() != policy.KindKey || reveal[1].Kind() != policy.KindSHA256 {
		return HTLCParams{}, false
	}
	return HTLCParams{
		Owner:        refund[0].PubKey(),
		Counterparty: reveal[0].PubKey(),
		Deadline:     refund[1].LockTime(),
		Commitment:   hashlock.Commitment(reveal[1].Digest()),
	}, true
}
