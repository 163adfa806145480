package assemble

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/aswap"
	"github.com/iov-one/swapkit/x/hashlock"
)

// LocalInput is a contract the assembling party funded and holds a key of.
type LocalInput struct {
	Contract *aswap.Contract
}

// ForeignInput is an output locked by the counterparty. All satisfaction
// data comes from the record and nothing is looked up elsewhere.
type ForeignInput struct {
	Funding       aswap.FundingRef
	WitnessScript []byte
	// Preimages are attached to the input as supplied.
	Preimages hashlock.Preimages
	// Weight is the expected weight of the witness. When zero the largest
	// witness of the script is assumed.
	Weight int64
}

// spend is an input ready to be added to the transaction.
type spend struct {
	contract  *aswap.Contract
	branch    policy.Branch
	script    []byte
	funding   aswap.FundingRef
	preimages hashlock.Preimages
	weight    int64
	foreign   bool
}

func (c Config) local(tip swapkit.ChainTip, in LocalInput) (spend, error) {
	if in.Contract == nil {
		return spend{}, errors.Wrap(errors.ErrEmpty, "contract")
	}
	b, err := in.Contract.SelectBranch(tip, c.PolicyPath[in.Contract.ID()])
	if err != nil {
		return spend{}, err
	}
	funding, _ := in.Contract.Funding()
	return spend{
		contract: in.Contract,
		branch:   b,
		script:   in.Contract.Script().Script(),
		funding:  funding,
		weight:   b.SatisfactionWeight(len(in.Contract.Script().Script())),
	}, nil
}

func (c Config) foreign(tip swapkit.ChainTip, in ForeignInput) (spend, error) {
	if len(in.WitnessScript) == 0 {
		return spend{}, errors.Field("WitnessScript", errors.ErrEmpty, "")
	}
	contract, err := aswap.ContractFromScript(in.WitnessScript, c.Network)
	if err != nil {
		return spend{}, errors.Wrap(err, "foreign witness script")
	}
	if err := contract.MarkFunded(in.Funding); err != nil {
		return spend{}, errors.Wrap(err, "foreign funding")
	}
	for d, p := range in.Preimages {
		if hashlock.ForCommitment(p) != d {
			return spend{}, errors.Wrapf(errors.ErrInvalidPreimage, "preimage of %s", d)
		}
	}
	b, err := contract.SelectBranch(tip, c.PolicyPath[contract.ID()])
	if err != nil {
		return spend{}, err
	}
	weight := in.Weight
	if weight == 0 {
		if weight, err = contract.Script().MaxSatisfactionWeight(); err != nil {
			return spend{}, err
		}
	}
	return spend{
		contract:  contract,
		branch:    b,
		script:    append([]byte(nil), in.WitnessScript...),
		funding:   in.Funding,
		preimages: in.Preimages,
		weight:    weight,
		foreign:   true,
	}, nil
}

func (s spend) txIn() *wire.TxIn {
	in := wire.NewTxIn(&s.funding.OutPoint, nil, nil)
	in.Sequence = wire.MaxTxInSequenceNum - 1
	return in
}
