package sigs

import (
	"context"
	"encoding/hex"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/hashlock"
)

//----------------- Controller ------------------
//
// Package level functions only. Signing holds no state between calls, the
// partial transaction carries everything.

// PreimageSource provides preimages of reveal branches.
type PreimageSource interface {
	Preimage(digest [32]byte) ([]byte, bool)
}

// Sign returns a copy of the transaction with the signatures of all keys
// found in the key source and all known preimages added. Preimages may be
// nil. A preimage that does not hash to the digest it was returned for is
// rejected. The input transaction is not modified.
func Sign(ctx context.Context, tx *partial.Tx, keys crypto.KeySource, preimages PreimageSource) (*partial.Tx, error) {
	out, err := tx.Copy()
	if err != nil {
		return nil, err
	}
	logger := swapkit.GetLogger(ctx).With("module", "sigs")

	fetcher, err := out.PrevOutFetcher()
	if err != nil {
		return nil, err
	}
	unsigned := out.UnsignedTx()
	hashes := txscript.NewTxSigHashes(unsigned, fetcher)

	for i := 0; i < out.NumInputs(); i++ {
		if out.Finalized(i) {
			continue
		}
		b, script, err := branchOf(out, i)
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}

		var added int
		for _, pub := range b.Keys {
			key, ok := keys.PrivateKey(pub)
			if !ok {
				continue
			}
			if _, ok := out.Signatures(i)[string(pub)]; ok {
				continue
			}
			ht, ok := out.SighashType(i)
			if !ok {
				return nil, errors.Wrapf(errors.ErrSignature, "input %d: no sighash type", i)
			}
			prev, err := out.WitnessUtxo(i)
			if err != nil {
				return nil, err
			}
			sig, err := txscript.RawTxInWitnessSignature(unsigned, hashes, i, prev.Value, script, ht, key)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrSignature, "input %d: %s", i, err)
			}
			if err := out.AddSignature(i, pub, sig); err != nil {
				return nil, err
			}
			added++
		}

		if preimages != nil {
			for _, d := range b.Digests {
				if _, ok := out.Preimages(i)[d]; ok {
					continue
				}
				if p, ok := preimages.Preimage(d); ok {
					if err := hashlock.Verify(p, hashlock.Commitment(d)); err != nil {
						return nil, errors.Wrapf(err, "input %d", i)
					}
					if err := out.AddPreimage(i, p); err != nil {
						return nil, err
					}
				}
			}
		}

		logger.Debug("input signed", "input", i, "branch", b.Name, "signatures", added)
	}
	return out, nil
}

// Finalize completes the witness of every input and returns the extracted
// transaction once the script engine accepts all inputs.
func Finalize(ctx context.Context, tx *partial.Tx) (*wire.MsgTx, error) {
	out, err := tx.Copy()
	if err != nil {
		return nil, err
	}
	fetcher, err := out.PrevOutFetcher()
	if err != nil {
		return nil, err
	}

	for i := 0; i < out.NumInputs(); i++ {
		if out.Finalized(i) {
			continue
		}
		b, script, err := branchOf(out, i)
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		wit, err := b.Satisfy(out.Satisfier(i), script)
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		if err := out.SetFinalWitness(i, wit); err != nil {
			return nil, err
		}
	}

	final, err := out.Extract()
	if err != nil {
		return nil, err
	}
	if err := Verify(final, fetcher); err != nil {
		return nil, err
	}
	swapkit.GetLogger(ctx).Info("transaction finalized",
		"module", "sigs",
		"txid", final.TxHash().String(),
		"inputs", len(final.TxIn))
	return final, nil
}

// Verify runs the script engine on every input of a final transaction.
func Verify(tx *wire.MsgTx, prevOuts txscript.PrevOutputFetcher) error {
	hashes := txscript.NewTxSigHashes(tx, prevOuts)
	for i, in := range tx.TxIn {
		prev := prevOuts.FetchPrevOutput(in.PreviousOutPoint)
		if prev == nil {
			return errors.Wrapf(errors.ErrNotFound, "input %d: spent output %s", i, in.PreviousOutPoint)
		}
		vm, err := txscript.NewEngine(prev.PkScript, tx, i, txscript.StandardVerifyFlags, nil, hashes, prev.Value, prevOuts)
		if err != nil {
			return errors.Wrapf(errors.ErrSignature, "input %d: %s", i, err)
		}
		if err := vm.Execute(); err != nil {
			return errors.Wrapf(errors.ErrSignature, "input %d: %s", i, err)
		}
	}
	return nil
}

// branchOf returns the selected branch of input i and its witness script.
func branchOf(tx *partial.Tx, i int) (policy.Branch, []byte, error) {
	name, ok := tx.Branch(i)
	if !ok {
		return policy.Branch{}, nil, errors.Wrap(errors.ErrMissingWitnessData, "no branch selected")
	}
	script := tx.WitnessScript(i)
	if script == nil {
		return policy.Branch{}, nil, errors.Wrap(errors.ErrMissingWitnessData, "no witness script")
	}
	cs, err := policy.FromScript(script)
	if err != nil {
		return policy.Branch{}, nil, errors.Wrapf(err, "witness script %s", hex.EncodeToString(script))
	}
	b, err := cs.Branch(name)
	if err != nil {
		return policy.Branch{}, nil, err
	}
	return b, script, nil
}
