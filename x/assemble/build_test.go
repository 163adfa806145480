package assemble_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/ledger/memledger"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/swaptest"
	"github.com/iov-one/swapkit/swaptest/assert"
	"github.com/iov-one/swapkit/x/assemble"
	"github.com/iov-one/swapkit/x/aswap"
	"github.com/iov-one/swapkit/x/hashlock"
	"github.com/stretchr/testify/require"
)

func atHeight(h uint32) context.Context {
	return swapkit.WithChainTip(context.Background(), swapkit.ChainTip{Height: h})
}

// funded returns a funded contract for the policy. The seed makes the
// funding transaction unique.
func funded(t *testing.T, text, seed string, value int64) *aswap.Contract {
	t.Helper()
	cs, err := policy.Compile(policy.MustParse(text))
	require.NoError(t, err)
	require.NoError(t, policy.SanityCheck(cs))
	c, err := aswap.NewContract(cs, swapkit.RegTest)
	require.NoError(t, err)
	tx, op := swaptest.FundingTx(seed, cs.PkScript(), value)
	require.NoError(t, c.MarkFunded(aswap.FundingRef{OutPoint: op, Output: tx.TxOut[0], Tx: tx}))
	return c
}

func fundedHTLC(t *testing.T, owner, counterparty string, deadline swapkit.LockTime) *aswap.Contract {
	t.Helper()
	_, commitment := swaptest.Secret("session")
	c, err := aswap.NewHTLC(aswap.HTLCParams{
		Owner:        swaptest.PubKey(owner),
		Counterparty: swaptest.PubKey(counterparty),
		Deadline:     deadline,
		Commitment:   commitment,
		Network:      swapkit.RegTest,
	})
	require.NoError(t, err)
	tx, op := swaptest.FundingTx(fmt.Sprintf("%s/%d", owner, deadline), c.Script().PkScript(), 100000)
	require.NoError(t, c.MarkFunded(aswap.FundingRef{OutPoint: op, Output: tx.TxOut[0], Tx: tx}))
	return c
}

func wallet(name string) string {
	return fmt.Sprintf("pk(%x)", swaptest.PubKey(name))
}

func address(t *testing.T, name string) btcutil.Address {
	t.Helper()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(swaptest.PubKey(name)), swapkit.RegTest.Params())
	require.NoError(t, err)
	return addr
}

func payTo(t *testing.T, name string, value int64) *wire.TxOut {
	t.Helper()
	pkScript, err := txscript.PayToAddrScript(address(t, name))
	require.NoError(t, err)
	return wire.NewTxOut(value, pkScript)
}

func config(t *testing.T) assemble.Config {
	return assemble.Config{
		Ordering:      assemble.Untouched,
		FeeRate:       1000,
		SighashType:   txscript.SigHashAll,
		Network:       swapkit.RegTest,
		ChangeAddress: address(t, "change"),
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*assemble.Config)
		field  string
		want   *errors.Error
	}{
		"valid": {
			mutate: func(*assemble.Config) {},
		},
		"implicit ordering": {
			mutate: func(c *assemble.Config) { c.Ordering = 0 },
			field:  "Ordering",
			want:   errors.ErrEmpty,
		},
		"implicit fee rate": {
			mutate: func(c *assemble.Config) { c.FeeRate = 0 },
			field:  "FeeRate",
			want:   errors.ErrEmpty,
		},
		"fee rate below relay fee": {
			mutate: func(c *assemble.Config) { c.FeeRate = 10 },
			field:  "FeeRate",
			want:   errors.ErrInput,
		},
		"implicit sighash type": {
			mutate: func(c *assemble.Config) { c.SighashType = 0 },
			field:  "SighashType",
			want:   errors.ErrEmpty,
		},
		"unknown sighash type": {
			mutate: func(c *assemble.Config) { c.SighashType = 0x42 },
			field:  "SighashType",
			want:   errors.ErrInput,
		},
		"unknown network": {
			mutate: func(c *assemble.Config) { c.Network = "signet" },
			field:  "Network",
			want:   errors.ErrInput,
		},
		"change address of another network": {
			mutate: func(c *assemble.Config) { c.Network = swapkit.MainNet },
			field:  "ChangeAddress",
			want:   errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			c := config(t)
			tc.mutate(&c)
			err := c.Validate()
			if tc.want == nil {
				assert.Nil(t, err)
				return
			}
			assert.FieldError(t, err, tc.field, tc.want)
		})
	}
}

func TestRefundOrderingOfDeadlines(t *testing.T) {
	early := fundedHTLC(t, "alice", "bob", 150)
	late := fundedHTLC(t, "alice", "bob", 200)
	assert.Nil(t, hashlock.BindToContracts(hashlock.Commitment(early.HashLocks()[0]), early, late))

	cfg := config(t)
	cfg.PolicyPath = map[string]string{early.ID(): aswap.TagRefund, late.ID(): aswap.TagRefund}
	outputs := []*wire.TxOut{payTo(t, "alice", 90000)}

	cases := map[string]struct {
		height   uint32
		contract *aswap.Contract
		wantErr  *errors.Error
	}{
		"early refund before its deadline":     {height: 149, contract: early, wantErr: errors.ErrContractState},
		"early refund at its deadline":         {height: 150, contract: early},
		"late refund once the early passed":    {height: 170, contract: late, wantErr: errors.ErrContractState},
		"late refund just before its deadline": {height: 199, contract: late, wantErr: errors.ErrContractState},
		"late refund at its deadline":          {height: 200, contract: late},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			p, err := assemble.Build(atHeight(tc.height), cfg, []assemble.LocalInput{{Contract: tc.contract}}, nil, outputs)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}
			htlc, _ := tc.contract.HTLC()
			assert.Equal(t, uint32(htlc.Deadline), p.UnsignedTx().LockTime)
			assert.Equal(t, wire.MaxTxInSequenceNum-1, p.UnsignedTx().TxIn[0].Sequence)
		})
	}
}

func TestOrdering(t *testing.T) {
	a := funded(t, wallet("alice"), "a", 70000)
	b := funded(t, wallet("alice"), "b", 30000)
	c := funded(t, wallet("alice"), "c", 50000)
	locals := []assemble.LocalInput{{Contract: a}, {Contract: b}, {Contract: c}}
	outputs := []*wire.TxOut{payTo(t, "carol", 60000), payTo(t, "bob", 20000), payTo(t, "dave", 40000)}

	reversed := func() ([]assemble.LocalInput, []*wire.TxOut) {
		var l []assemble.LocalInput
		var o []*wire.TxOut
		for i := len(locals) - 1; i >= 0; i-- {
			l = append(l, locals[i])
		}
		for i := len(outputs) - 1; i >= 0; i-- {
			o = append(o, outputs[i])
		}
		return l, o
	}

	untouched, err := assemble.Build(atHeight(10), config(t), locals, nil, outputs)
	require.NoError(t, err)
	tx := untouched.UnsignedTx()
	for i, l := range locals {
		ref, _ := l.Contract.Funding()
		assert.Equal(t, ref.OutPoint, tx.TxIn[i].PreviousOutPoint)
	}
	for i, out := range outputs {
		assert.Equal(t, out.Value, tx.TxOut[i].Value)
	}
	require.Len(t, tx.TxOut, 4)

	cfg := config(t)
	cfg.Ordering = assemble.Canonical
	first, err := assemble.Build(atHeight(10), cfg, locals, nil, outputs)
	require.NoError(t, err)
	l, o := reversed()
	second, err := assemble.Build(atHeight(10), cfg, l, nil, o)
	require.NoError(t, err)
	assert.Equal(t, first.UnsignedTx().TxHash(), second.UnsignedTx().TxHash())

	// Metadata follows its input through the sort.
	p := first
	for i, in := range p.UnsignedTx().TxIn {
		prev, err := p.WitnessUtxo(i)
		require.NoError(t, err)
		for _, l := range locals {
			ref, _ := l.Contract.Funding()
			if ref.OutPoint == in.PreviousOutPoint {
				assert.Equal(t, ref.Output.Value, prev.Value)
			}
		}
	}
}

func TestPolicyPath(t *testing.T) {
	c := fundedHTLC(t, "alice", "bob", 100)
	outputs := []*wire.TxOut{payTo(t, "alice", 90000)}

	cases := map[string]struct {
		height  uint32
		path    string
		want    string
		wantErr *errors.Error
	}{
		"single satisfiable branch is inferred": {height: 50, want: aswap.TagReveal},
		"ambiguity requires a path":             {height: 100, wantErr: errors.ErrAmbiguousPolicyPath},
		"path by tag":                           {height: 100, path: aswap.TagRefund, want: aswap.TagRefund},
		"path to a locked branch":               {height: 99, path: aswap.TagRefund, wantErr: errors.ErrContractState},
		"unknown path":                          {height: 100, path: "escape", wantErr: errors.ErrNotFound},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			cfg := config(t)
			if tc.path != "" {
				cfg.PolicyPath = map[string]string{c.ID(): tc.path}
			}
			p, err := assemble.Build(atHeight(tc.height), cfg, []assemble.LocalInput{{Contract: c}}, nil, outputs)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}
			name, ok := p.Branch(0)
			assert.Equal(t, true, ok)
			assert.Equal(t, tc.want, c.Tag(name))
		})
	}

	_, err := assemble.Build(atHeight(100), config(t), []assemble.LocalInput{{Contract: c}}, nil, outputs)
	assert.Equal(t, true, errors.IsRecoverable(err))
}

func TestFunds(t *testing.T) {
	cases := map[string]struct {
		cfg     func(assemble.Config) assemble.Config
		outputs []*wire.TxOut
		wantErr *errors.Error
		wantOut int
	}{
		"change returned": {
			outputs: []*wire.TxOut{payTo(t, "bob", 50000)},
			wantOut: 2,
		},
		"dust change left as fee": {
			outputs: []*wire.TxOut{payTo(t, "bob", 99700)},
			wantOut: 1,
		},
		"dust remainder without a change address": {
			cfg: func(c assemble.Config) assemble.Config {
				c.ChangeAddress = nil
				return c
			},
			outputs: []*wire.TxOut{payTo(t, "bob", 99700)},
			wantOut: 1,
		},
		"change without an address": {
			cfg: func(c assemble.Config) assemble.Config {
				c.ChangeAddress = nil
				return c
			},
			outputs: []*wire.TxOut{payTo(t, "bob", 50000)},
			wantErr: errors.ErrEmpty,
		},
		"outputs above inputs": {
			outputs: []*wire.TxOut{payTo(t, "bob", 100000)},
			wantErr: errors.ErrInsufficientFunds,
		},
		"fee above the remainder": {
			outputs: []*wire.TxOut{payTo(t, "bob", 99990)},
			wantErr: errors.ErrInsufficientFunds,
		},
		"dust output": {
			outputs: []*wire.TxOut{payTo(t, "bob", 100)},
			wantErr: errors.ErrInput,
		},
		"single recipient": {
			cfg: func(c assemble.Config) assemble.Config {
				c.SingleRecipient = address(t, "bob")
				return c
			},
			wantOut: 1,
		},
		"single recipient with outputs": {
			cfg: func(c assemble.Config) assemble.Config {
				c.SingleRecipient = address(t, "bob")
				return c
			},
			outputs: []*wire.TxOut{payTo(t, "bob", 50000)},
			wantErr: errors.ErrInput,
		},
		"no outputs": {
			wantErr: errors.ErrEmpty,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			c := funded(t, wallet("alice"), testName, 100000)
			cfg := config(t)
			if tc.cfg != nil {
				cfg = tc.cfg(cfg)
			}
			p, err := assemble.Build(atHeight(10), cfg, []assemble.LocalInput{{Contract: c}}, nil, tc.outputs)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}
			assert.Equal(t, tc.wantOut, len(p.UnsignedTx().TxOut))
			fee, err := p.Fee()
			assert.Nil(t, err)
			assert.Equal(t, true, fee > 0 && fee < 1000)
			ht, ok := p.SighashType(0)
			assert.Equal(t, true, ok)
			assert.Equal(t, txscript.SigHashAll, ht)
		})
	}
}

func TestMixedLockUnits(t *testing.T) {
	height := funded(t, fmt.Sprintf("and(%s,after(10))", wallet("alice")), "height", 50000)
	timed := funded(t, fmt.Sprintf("and(%s,after(600000000))", wallet("alice")), "time", 50000)
	ctx := swapkit.WithChainTip(context.Background(), swapkit.ChainTip{Height: 20, MedianTime: 700000000})

	_, err := assemble.Build(ctx, config(t), []assemble.LocalInput{{Contract: height}, {Contract: timed}}, nil,
		[]*wire.TxOut{payTo(t, "bob", 90000)})
	assert.IsErr(t, errors.ErrMixedTimelockUnits, err)
}

func TestForeignInputs(t *testing.T) {
	preimage, _ := swaptest.Secret("session")
	_, otherCommitment := swaptest.Secret("other")
	l := memledger.New(swapkit.ChainTip{Height: 10})
	c := fundedHTLC(t, "alice", "bob", 100)
	u, fundingTx := l.Fund(c.Script().PkScript(), 100000)
	ref := aswap.FundingRef{OutPoint: u.OutPoint, Output: u.Output, Tx: fundingTx}
	wrongScript := fundedHTLC(t, "carol", "bob", 100).Script().Script()

	valid := func() assemble.ForeignInput {
		return assemble.ForeignInput{
			Funding:       ref,
			WitnessScript: c.Script().Script(),
			Preimages:     hashlock.Preimages{hashlock.ForCommitment(preimage): preimage},
		}
	}

	cases := map[string]struct {
		input   func() assemble.ForeignInput
		ledger  swapkit.Ledger
		wantErr *errors.Error
	}{
		"valid": {
			input: valid,
		},
		"valid and unspent": {
			input:  valid,
			ledger: l,
		},
		"missing script": {
			input: func() assemble.ForeignInput {
				in := valid()
				in.WitnessScript = nil
				return in
			},
			wantErr: errors.ErrEmpty,
		},
		"script of another output": {
			input: func() assemble.ForeignInput {
				in := valid()
				in.WitnessScript = wrongScript
				return in
			},
			wantErr: errors.ErrInput,
		},
		"preimage under a wrong commitment": {
			input: func() assemble.ForeignInput {
				in := valid()
				in.Preimages = hashlock.Preimages{otherCommitment: preimage}
				return in
			},
			wantErr: errors.ErrInvalidPreimage,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			cfg := config(t)
			cfg.Ledger = tc.ledger
			p, err := assemble.Build(atHeight(10), cfg, nil, []assemble.ForeignInput{tc.input()},
				[]*wire.TxOut{payTo(t, "bob", 90000)})
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr != nil {
				return
			}
			assert.Equal(t, c.Script().Script(), p.WitnessScript(0))
			assert.Equal(t, map[[32]byte][]byte{hashlock.ForCommitment(preimage): preimage[:]}, p.Preimages(0))
			name, _ := p.Branch(0)
			assert.Equal(t, c.Script().Branches()[1].Name, name)
		})
	}

	// Once the output is spent on the ledger the record is stale.
	cfg := config(t)
	cfg.Ledger = staleLedger{Ledger: l, spent: u.OutPoint}
	_, err := assemble.Build(atHeight(10), cfg, nil, []assemble.ForeignInput{valid()}, []*wire.TxOut{payTo(t, "bob", 90000)})
	assert.IsErr(t, errors.ErrForeignUtxoSpent, err)
	assert.Equal(t, true, errors.IsRecoverable(err))
}

// staleLedger reports a single output as spent.
type staleLedger struct {
	*memledger.Ledger
	spent wire.OutPoint
}

func (l staleLedger) IsUnspent(ctx context.Context, op wire.OutPoint) (bool, error) {
	if op == l.spent {
		return false, nil
	}
	return l.Ledger.IsUnspent(ctx, op)
}

func TestChainTipFromLedger(t *testing.T) {
	c := funded(t, wallet("alice"), "tip", 100000)
	cfg := config(t)
	outputs := []*wire.TxOut{payTo(t, "bob", 90000)}

	_, err := assemble.Build(context.Background(), cfg, []assemble.LocalInput{{Contract: c}}, nil, outputs)
	assert.IsErr(t, errors.ErrInput, err)

	cfg.Ledger = memledger.New(swapkit.ChainTip{Height: 10})
	_, err = assemble.Build(context.Background(), cfg, []assemble.LocalInput{{Contract: c}}, nil, outputs)
	assert.Nil(t, err)

	_, err = assemble.Build(atHeight(10), cfg, []assemble.LocalInput{{Contract: c}, {Contract: c}}, nil, outputs)
	assert.IsErr(t, errors.ErrDuplicate, err)
}
