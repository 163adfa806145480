package aswap

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/policy"
)

// FundingRef points at the output funding a contract.
type FundingRef struct {
	OutPoint wire.OutPoint
	Output   *wire.TxOut
	// Tx is the transaction that created the output. Signers of legacy
	// aware wallets require it as evidence of the input value.
	Tx *wire.MsgTx
}

// Validate ensures the reference is consistent and pays to given script.
func (f FundingRef) Validate(pkScript []byte) error {
	if f.Output == nil {
		return errors.Wrap(errors.ErrEmpty, "funding output")
	}
	if !bytes.Equal(f.Output.PkScript, pkScript) {
		return errors.Wrap(errors.ErrInput, "funding output does not pay to the contract")
	}
	if f.Output.Value <= 0 {
		return errors.Wrap(errors.ErrInput, "funding output has no value")
	}
	if f.Tx == nil {
		return nil
	}
	if f.Tx.TxHash() != f.OutPoint.Hash {
		return errors.Wrap(errors.ErrInput, "funding transaction does not match the outpoint")
	}
	if int(f.OutPoint.Index) >= len(f.Tx.TxOut) {
		return errors.Wrap(errors.ErrInput, "funding transaction has no such output")
	}
	out := f.Tx.TxOut[f.OutPoint.Index]
	if out.Value != f.Output.Value || !bytes.Equal(out.PkScript, f.Output.PkScript) {
		return errors.Wrap(errors.ErrInput, "funding transaction output differs")
	}
	return nil
}

func (f FundingRef) copy() FundingRef {
	out := FundingRef{OutPoint: f.OutPoint}
	if f.Output != nil {
		o := *f.Output
		o.PkScript = append([]byte(nil), f.Output.PkScript...)
		out.Output = &o
	}
	if f.Tx != nil {
		out.Tx = f.Tx.Copy()
	}
	return out
}

// ObserveFunding looks up the contract address on the ledger and marks the
// contract funded by the first unspent output found. It returns false if no
// funding exists yet. Ledger errors are returned unchanged.
func (c *Contract) ObserveFunding(ctx context.Context, l swapkit.Ledger) (bool, error) {
	if st := c.State(); st != StateCompiled {
		return st == StateFunded, nil
	}
	logger := swapkit.GetLogger(ctx).With("contract", c.ID())

	utxos, err := l.ListUnspent(ctx, c.address)
	if err != nil {
		return false, err
	}
	if len(utxos) == 0 {
		logger.Debug("contract not funded", "address", c.address.EncodeAddress())
		return false, nil
	}
	if len(utxos) > 1 {
		logger.Info("contract funded more than once, using the first output", "outputs", len(utxos))
	}
	u := utxos[0]
	tx, err := l.GetFundingEvidence(ctx, u.OutPoint)
	if err != nil {
		return false, err
	}
	ref := FundingRef{OutPoint: u.OutPoint, Output: u.Output, Tx: tx}
	if err := c.MarkFunded(ref); err != nil {
		return false, err
	}
	logger.Info("contract funded", "outpoint", u.OutPoint.String(), "value", u.Output.Value)
	return true, nil
}

// ObserveSpend marks the contract spent by the transaction if it spends the
// funding output, and returns the branch its witness follows.
func (c *Contract) ObserveSpend(ctx context.Context, tx *wire.MsgTx) (policy.Branch, error) {
	ref, ok := c.Funding()
	if !ok {
		return policy.Branch{}, errors.Wrapf(errors.ErrContractState, "contract %s is not funded", c.ID())
	}
	for _, in := range tx.TxIn {
		if in.PreviousOutPoint != ref.OutPoint {
			continue
		}
		b, err := c.script.MatchWitness(in.Witness)
		if err != nil {
			return policy.Branch{}, err
		}
		if err := c.MarkSpent(b.Name); err != nil {
			return policy.Branch{}, err
		}
		swapkit.GetLogger(ctx).Info("contract spent",
			"contract", c.ID(), "branch", b.Name, "tag", c.Tag(b.Name), "tx", tx.TxHash().String())
		return b, nil
	}
	return policy.Branch{}, errors.Wrapf(errors.ErrNotFound, "transaction does not spend contract %s", c.ID())
}
