package envelope

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/aswap"
	"github.com/iov-one/swapkit/x/hashlock"
)

// Version is the envelope format version written by this package.
const Version = 1

// NewOffer describes the contracts of a swap session. A funded contract
// carries its funding outpoint. The packet may be nil.
func NewOffer(net swapkit.Network, c hashlock.Commitment, contracts []*aswap.Contract, p *partial.Tx) (*Offer, error) {
	if len(contracts) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "contracts")
	}
	o := &Offer{
		Version:    Version,
		Network:    string(net),
		Commitment: append([]byte(nil), c[:]...),
	}
	for _, contract := range contracts {
		o.Descriptors = append(o.Descriptors, contract.Script().Descriptor())
		funding := ""
		if ref, ok := contract.Funding(); ok {
			funding = ref.OutPoint.String()
		}
		o.Fundings = append(o.Fundings, funding)
	}
	if p != nil {
		raw, err := p.Encode()
		if err != nil {
			return nil, err
		}
		o.Psbt = raw
	}
	return o, o.Validate()
}

// Validate checks the offer without decoding its contracts.
func (m *Offer) Validate() error {
	var errs error
	if m.Version != Version {
		errs = errors.AppendField(errs, "Version", errors.Wrapf(errors.ErrInput, "unsupported version %d", m.Version))
	}
	errs = errors.AppendField(errs, "Network", swapkit.Network(m.Network).Validate())
	if len(m.Descriptors) == 0 {
		errs = errors.AppendField(errs, "Descriptors", errors.ErrEmpty)
	}
	if len(m.Fundings) != 0 && len(m.Fundings) != len(m.Descriptors) {
		errs = errors.AppendField(errs, "Fundings", errors.Wrap(errors.ErrInput, "one per descriptor"))
	}
	if len(m.Commitment) != hashlock.Size {
		errs = errors.AppendField(errs, "Commitment", errors.Wrapf(errors.ErrInput, "must be %d bytes", hashlock.Size))
	}
	return errs
}

// Contracts rebuilds the contracts of the offer. They are bound to the
// offer commitment.
func (m *Offer) Contracts() ([]*aswap.Contract, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var commitment hashlock.Commitment
	copy(commitment[:], m.Commitment)
	net := swapkit.Network(m.Network)

	contracts := make([]*aswap.Contract, 0, len(m.Descriptors))
	locked := make([]hashlock.HashLocked, 0, len(m.Descriptors))
	for i, desc := range m.Descriptors {
		cs, err := policy.ParseDescriptor(desc)
		if err != nil {
			return nil, errors.Wrapf(err, "descriptor %d", i)
		}
		c, err := aswap.ContractFromScript(cs.Script(), net)
		if err != nil {
			return nil, errors.Wrapf(err, "descriptor %d", i)
		}
		contracts = append(contracts, c)
		locked = append(locked, c)
	}
	if err := hashlock.BindToContracts(commitment, locked...); err != nil {
		return nil, err
	}
	return contracts, nil
}

// FundingOutPoint returns the funding outpoint of the contract at index i.
func (m *Offer) FundingOutPoint(i int) (wire.OutPoint, bool, error) {
	if i < 0 || i >= len(m.Fundings) || m.Fundings[i] == "" {
		return wire.OutPoint{}, false, nil
	}
	op, err := wire.NewOutPointFromString(m.Fundings[i])
	if err != nil {
		return wire.OutPoint{}, false, errors.Field("Fundings", errors.ErrInput, "%q: %s", m.Fundings[i], err)
	}
	return *op, true, nil
}

// Packet decodes the partial transaction of the offer. It is false when the
// offer carries none.
func (m *Offer) Packet() (*partial.Tx, bool, error) {
	if len(m.Psbt) == 0 {
		return nil, false, nil
	}
	p, err := partial.Decode(m.Psbt)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
