package partial_test

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/swaptest"
	"github.com/iov-one/swapkit/swaptest/assert"
	"github.com/stretchr/testify/require"
)

const fundingValue = 100000

type fixture struct {
	cs       *policy.CompiledScript
	funding  *wire.MsgTx
	unsigned *wire.MsgTx
}

func newFixture(t *testing.T, text string) fixture {
	t.Helper()
	e, err := policy.Parse(text)
	require.NoError(t, err)
	cs, err := policy.Compile(e)
	require.NoError(t, err)
	require.NoError(t, policy.SanityCheck(cs))

	fundingTx, op := swaptest.FundingTx(text, cs.PkScript(), fundingValue)
	tx := wire.NewMsgTx(2)
	in := wire.NewTxIn(&op, nil, nil)
	in.Sequence = wire.MaxTxInSequenceNum - 1
	tx.AddTxIn(in)
	tx.AddTxOut(wire.NewTxOut(fundingValue-1000, []byte{txscript.OP_TRUE}))
	return fixture{cs: cs, funding: fundingTx, unsigned: tx}
}

func (f fixture) packet(t *testing.T) *partial.Tx {
	t.Helper()
	p, err := partial.New(f.unsigned)
	require.NoError(t, err)
	require.NoError(t, p.SetFunding(0, partial.Funding{
		Tx:            f.funding,
		Output:        f.funding.TxOut[0],
		WitnessScript: f.cs.Script(),
	}))
	require.NoError(t, p.SetSighashType(0, txscript.SigHashAll))
	return p
}

func (f fixture) sign(t *testing.T, p *partial.Tx, name string) {
	t.Helper()
	fetcher, err := p.PrevOutFetcher()
	require.NoError(t, err)
	tx := p.UnsignedTx()
	hashes := txscript.NewTxSigHashes(tx, fetcher)
	sig, err := txscript.RawTxInWitnessSignature(tx, hashes, 0, fundingValue, f.cs.Script(), txscript.SigHashAll, swaptest.Key(name))
	require.NoError(t, err)
	require.NoError(t, p.AddSignature(0, swaptest.PubKey(name), sig))
}

func (f fixture) finalizeAndRun(t *testing.T, p *partial.Tx, b policy.Branch) error {
	t.Helper()
	wit, err := b.Satisfy(p.Satisfier(0), f.cs.Script())
	if err != nil {
		return err
	}
	require.NoError(t, p.SetFinalWitness(0, wit))
	assert.Equal(t, true, p.IsComplete())
	tx, err := p.Extract()
	require.NoError(t, err)

	fetcher := txscript.NewCannedPrevOutputFetcher(f.cs.PkScript(), fundingValue)
	vm, err := txscript.NewEngine(f.cs.PkScript(), tx, 0, txscript.StandardVerifyFlags, nil,
		txscript.NewTxSigHashes(tx, fetcher), fundingValue, fetcher)
	require.NoError(t, err)
	return vm.Execute()
}

func TestEncodingRoundTrip(t *testing.T) {
	preimage, commitment := swaptest.Secret("roundtrip")
	f := newFixture(t, fmt.Sprintf("and(pk(%x),sha256(%s))", swaptest.PubKey("bob"), commitment))
	p := f.packet(t)
	require.NoError(t, p.SetBranch(0, "reveal"))
	require.NoError(t, p.AddPreimage(0, preimage[:]))
	f.sign(t, p, "bob")

	b64, err := p.B64()
	require.NoError(t, err)
	fromB64, err := partial.FromBase64(b64 + "\n")
	require.NoError(t, err)
	raw, err := p.Encode()
	require.NoError(t, err)
	fromRaw, err := partial.Decode(raw)
	require.NoError(t, err)
	fromText, err := partial.Decode([]byte(b64))
	require.NoError(t, err)

	for name, got := range map[string]*partial.Tx{"base64": fromB64, "binary": fromRaw, "text": fromText} {
		t.Run(name, func(t *testing.T) {
			branch, ok := got.Branch(0)
			assert.Equal(t, true, ok)
			assert.Equal(t, "reveal", branch)
			assert.Equal(t, map[[32]byte][]byte{[32]byte(commitment): preimage[:]}, got.Preimages(0))
			sigs := got.Signatures(0)
			require.Len(t, sigs, 1)
			_, ok = sigs[string(swaptest.PubKey("bob"))]
			assert.Equal(t, true, ok)
			ht, ok := got.SighashType(0)
			assert.Equal(t, true, ok)
			assert.Equal(t, txscript.SigHashAll, ht)
			assert.Equal(t, f.cs.Script(), got.WitnessScript(0))
			fee, err := got.Fee()
			assert.Nil(t, err)
			assert.Equal(t, int64(1000), int64(fee))
		})
	}

	_, err = partial.FromBase64("not a packet")
	assert.IsErr(t, errors.ErrInput, err)
}

func TestSetFunding(t *testing.T) {
	f := newFixture(t, fmt.Sprintf("pk(%x)", swaptest.PubKey("alice")))
	other := newFixture(t, fmt.Sprintf("pk(%x)", swaptest.PubKey("bob")))

	cases := map[string]struct {
		index   int
		funding partial.Funding
		wantErr *errors.Error
	}{
		"complete": {
			funding: partial.Funding{Tx: f.funding, Output: f.funding.TxOut[0], WitnessScript: f.cs.Script()},
		},
		"witness output only": {
			funding: partial.Funding{Output: f.funding.TxOut[0], WitnessScript: f.cs.Script()},
		},
		"missing output": {
			funding: partial.Funding{Tx: f.funding},
			wantErr: errors.ErrEmpty,
		},
		"transaction not creating the outpoint": {
			funding: partial.Funding{Tx: other.funding, Output: f.funding.TxOut[0]},
			wantErr: errors.ErrInput,
		},
		"witness script of another output": {
			funding: partial.Funding{Output: f.funding.TxOut[0], WitnessScript: other.cs.Script()},
			wantErr: errors.ErrInput,
		},
		"input out of range": {
			index:   1,
			funding: partial.Funding{Output: f.funding.TxOut[0]},
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			p, err := partial.New(f.unsigned)
			require.NoError(t, err)
			err = p.SetFunding(tc.index, tc.funding)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}
			out, err := p.WitnessUtxo(0)
			assert.Nil(t, err)
			assert.Equal(t, f.funding.TxOut[0].PkScript, out.PkScript)
		})
	}
}

func TestAddSignature(t *testing.T) {
	f := newFixture(t, fmt.Sprintf("pk(%x)", swaptest.PubKey("alice")))

	p, err := partial.New(f.unsigned)
	require.NoError(t, err)
	err = p.AddSignature(0, swaptest.PubKey("alice"), []byte{0x30, 0x01})
	assert.IsErr(t, errors.ErrSignature, err)

	p = f.packet(t)
	err = p.AddSignature(0, swaptest.PubKey("alice"), []byte{0x30, 0x01, byte(txscript.SigHashSingle)})
	assert.IsErr(t, errors.ErrSignature, err)
	err = p.AddSignature(0, swaptest.PubKey("alice"), []byte{0x30, 0x01, byte(txscript.SigHashAll)})
	assert.IsErr(t, errors.ErrSignature, err)

	f.sign(t, p, "alice")
	// The same signature again is a no-op.
	f.sign(t, p, "alice")
	assert.Equal(t, 1, len(p.Signatures(0)))

	b, err := f.cs.Branch(f.cs.Branches()[0].Name)
	require.NoError(t, err)
	assert.Nil(t, f.finalizeAndRun(t, p, b))
	assert.Equal(t, 0, len(p.Signatures(0)))
}

func TestTwoPartySigning(t *testing.T) {
	preimage, commitment := swaptest.Secret("two party")
	f := newFixture(t, fmt.Sprintf("and(pk(%x),pk(%x),sha256(%s))",
		swaptest.PubKey("alice"), swaptest.PubKey("bob"), commitment))
	b := f.cs.Branches()[0]

	alice := f.packet(t)
	f.sign(t, alice, "alice")

	// The counterparty only sees the encoded packet.
	b64, err := alice.B64()
	require.NoError(t, err)
	bob, err := partial.FromBase64(b64)
	require.NoError(t, err)
	f.sign(t, bob, "bob")
	require.NoError(t, bob.AddPreimage(0, preimage[:]))

	_, err = b.Satisfy(alice.Satisfier(0), f.cs.Script())
	assert.IsErr(t, errors.ErrMissingWitnessData, err)

	combined, err := partial.Combine(alice, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, len(combined.Signatures(0)))
	// Combining does not touch the inputs.
	assert.Equal(t, 1, len(alice.Signatures(0)))

	assert.Nil(t, f.finalizeAndRun(t, combined, b))
}

func TestCombineConflicts(t *testing.T) {
	f := newFixture(t, fmt.Sprintf("pk(%x)", swaptest.PubKey("alice")))
	other := newFixture(t, fmt.Sprintf("pk(%x)", swaptest.PubKey("bob")))

	cases := map[string]struct {
		b       func(t *testing.T) *partial.Tx
		wantErr *errors.Error
	}{
		"compatible": {
			b: func(t *testing.T) *partial.Tx {
				p := f.packet(t)
				require.NoError(t, p.SetBranch(0, "spend"))
				return p
			},
		},
		"different transaction": {
			b:       func(t *testing.T) *partial.Tx { return other.packet(t) },
			wantErr: errors.ErrInput,
		},
		"conflicting sighash type": {
			b: func(t *testing.T) *partial.Tx {
				p := f.packet(t)
				require.NoError(t, p.SetSighashType(0, txscript.SigHashSingle))
				return p
			},
			wantErr: errors.ErrInput,
		},
		"conflicting branch": {
			b: func(t *testing.T) *partial.Tx {
				p := f.packet(t)
				require.NoError(t, p.SetBranch(0, "other"))
				return p
			},
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			a := f.packet(t)
			require.NoError(t, a.SetBranch(0, "spend"))
			_, err := partial.Combine(a, tc.b(t))
			assert.IsErr(t, tc.wantErr, err)
		})
	}
}
