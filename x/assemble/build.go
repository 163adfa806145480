package assemble

import (
	"bytes"
	"context"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/txsort"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/x/hashlock"
)

// Build assembles a transaction spending given inputs into given outputs.
// The chain tip is taken from the context and, if missing there, from the
// configured ledger.
func Build(ctx context.Context, cfg Config, local []LocalInput, foreign []ForeignInput, outputs []*wire.TxOut) (*partial.Tx, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(local)+len(foreign) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "inputs")
	}
	if cfg.SingleRecipient != nil && len(outputs) != 0 {
		return nil, errors.Wrap(errors.ErrInput, "a single recipient excludes other outputs")
	}
	if cfg.SingleRecipient == nil && len(outputs) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "outputs")
	}
	tip, err := chainTip(ctx, cfg.Ledger)
	if err != nil {
		return nil, err
	}
	logger := swapkit.GetLogger(ctx).With("module", "assemble")

	spends := make([]spend, 0, len(local)+len(foreign))
	for i, in := range local {
		s, err := cfg.local(tip, in)
		if err != nil {
			return nil, errors.Wrapf(err, "local input %d", i)
		}
		spends = append(spends, s)
	}
	for i, in := range foreign {
		s, err := cfg.foreign(tip, in)
		if err != nil {
			return nil, errors.Wrapf(err, "foreign input %d", i)
		}
		spends = append(spends, s)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	seen := make(map[wire.OutPoint]struct{}, len(spends))
	var total btcutil.Amount
	for _, s := range spends {
		if _, ok := seen[s.funding.OutPoint]; ok {
			return nil, errors.Wrapf(errors.ErrDuplicate, "output %s spent twice", s.funding.OutPoint)
		}
		seen[s.funding.OutPoint] = struct{}{}
		tx.AddTxIn(s.txIn())
		total += btcutil.Amount(s.funding.Output.Value)
	}
	if tx.LockTime, err = lockTime(spends); err != nil {
		return nil, err
	}

	if err := checkUnspent(ctx, cfg.Ledger, spends); err != nil {
		return nil, err
	}

	var requested btcutil.Amount
	for i, out := range outputs {
		if out == nil {
			return nil, errors.Wrapf(errors.ErrEmpty, "output %d", i)
		}
		if txrules.IsDustOutput(out, txrules.DefaultRelayFeePerKb) {
			return nil, errors.Wrapf(errors.ErrInput, "output %d of %s is dust", i, btcutil.Amount(out.Value))
		}
		tx.AddTxOut(wire.NewTxOut(out.Value, append([]byte(nil), out.PkScript...)))
		requested += btcutil.Amount(out.Value)
	}

	remainder := cfg.SingleRecipient
	if remainder == nil {
		remainder = cfg.ChangeAddress
	}
	fee, err := cfg.settle(tx, spends, total, requested, remainder)
	if err != nil {
		return nil, err
	}

	if cfg.Ordering == Canonical {
		txsort.InPlaceSort(tx)
	}

	byOutPoint := make(map[wire.OutPoint]spend, len(spends))
	for _, s := range spends {
		byOutPoint[s.funding.OutPoint] = s
	}
	p, err := partial.New(tx)
	if err != nil {
		return nil, err
	}
	for i, in := range tx.TxIn {
		s := byOutPoint[in.PreviousOutPoint]
		if err := attach(p, i, s, cfg.SighashType); err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		logger.Debug("input assembled",
			"contract", s.contract.ID(),
			"branch", s.branch.Name,
			"foreign", s.foreign,
			"value", btcutil.Amount(s.funding.Output.Value))
	}

	logger.Info("transaction assembled",
		"txid", tx.TxHash().String(),
		"inputs", len(tx.TxIn),
		"outputs", len(tx.TxOut),
		"fee", fee,
		"locktime", tx.LockTime,
		"ordering", cfg.Ordering)
	return p, nil
}

func chainTip(ctx context.Context, l swapkit.Ledger) (swapkit.ChainTip, error) {
	if tip, ok := swapkit.GetChainTip(ctx); ok {
		return tip, nil
	}
	if l == nil {
		return swapkit.ChainTip{}, errors.Wrap(errors.ErrInput, "no chain tip in context and no ledger")
	}
	return l.Tip(ctx)
}

// lockTime returns the largest lock of all selected branches. All locks must
// share a unit.
func lockTime(spends []spend) (uint32, error) {
	var max swapkit.LockTime
	for _, s := range spends {
		lock := s.branch.LockTime
		if lock == 0 {
			continue
		}
		if max != 0 && !max.SameUnit(lock) {
			return 0, errors.Wrapf(errors.ErrMixedTimelockUnits,
				"branch %s locks until %s while another until %s", s.branch.Name, lock, max)
		}
		if lock > max {
			max = lock
		}
	}
	return uint32(max), nil
}

func checkUnspent(ctx context.Context, l swapkit.Ledger, spends []spend) error {
	if l == nil {
		return nil
	}
	for _, s := range spends {
		if !s.foreign {
			continue
		}
		ok, err := l.IsUnspent(ctx, s.funding.OutPoint)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(errors.ErrForeignUtxoSpent, "output %s", s.funding.OutPoint)
		}
	}
	return nil
}

// changeTemplate has the size of an output paying to a witness script hash.
// It stands in for a change output that was not requested.
var changeTemplate = append([]byte{txscript.OP_0, txscript.OP_DATA_32}, make([]byte, 32)...)

// settle adds the remainder output, if any, and returns the fee paid. The
// fee covers the transaction with the largest expected witnesses.
func (c Config) settle(tx *wire.MsgTx, spends []spend, total, requested btcutil.Amount, remainder btcutil.Address) (btcutil.Amount, error) {
	feeFor := func(tx *wire.MsgTx) btcutil.Amount {
		return txrules.FeeForSerializeSize(c.FeeRate, virtualSize(tx, spends))
	}

	if remainder == nil {
		fee := feeFor(tx)
		if total < requested+fee {
			return 0, errors.Wrapf(errors.ErrInsufficientFunds, "inputs %s, outputs %s, fee %s", total, requested, fee)
		}
		change := total - requested - fee
		if change != 0 && !txrules.IsDustOutput(wire.NewTxOut(int64(change), changeTemplate), txrules.DefaultRelayFeePerKb) {
			return 0, errors.Field("ChangeAddress", errors.ErrEmpty, "required for a change of %s", change)
		}
		return total - requested, nil
	}

	pkScript, err := txscript.PayToAddrScript(remainder)
	if err != nil {
		return 0, errors.Wrap(errors.ErrInput, err.Error())
	}
	out := wire.NewTxOut(0, pkScript)
	tx.AddTxOut(out)
	fee := feeFor(tx)
	if total < requested+fee {
		return 0, errors.Wrapf(errors.ErrInsufficientFunds, "inputs %s, outputs %s, fee %s", total, requested, fee)
	}
	out.Value = int64(total - requested - fee)
	if !txrules.IsDustOutput(out, txrules.DefaultRelayFeePerKb) {
		return fee, nil
	}
	if c.SingleRecipient != nil {
		return 0, errors.Wrapf(errors.ErrInsufficientFunds, "recipient would receive dust %s", btcutil.Amount(out.Value))
	}
	tx.TxOut = tx.TxOut[:len(tx.TxOut)-1]
	return total - requested, nil
}

// virtualSize returns the virtual size of the transaction once every input
// carries its expected witness.
func virtualSize(tx *wire.MsgTx, spends []spend) int {
	// Segregated witness marker and flag.
	witness := int64(2)
	for _, s := range spends {
		witness += s.weight
	}
	weight := int64(tx.SerializeSizeStripped())*4 + witness
	return int((weight + 3) / 4)
}

func attach(p *partial.Tx, i int, s spend, ht txscript.SigHashType) error {
	err := p.SetFunding(i, partial.Funding{
		Tx:            s.funding.Tx,
		Output:        s.funding.Output,
		WitnessScript: s.script,
	})
	if err != nil {
		return err
	}
	if err := p.SetSighashType(i, ht); err != nil {
		return err
	}
	if err := p.SetBranch(i, s.branch.Name); err != nil {
		return err
	}
	digests := make([]hashlock.Commitment, 0, len(s.preimages))
	for d := range s.preimages {
		digests = append(digests, d)
	}
	sort.Slice(digests, func(a, b int) bool {
		return bytes.Compare(digests[a][:], digests[b][:]) < 0
	})
	for _, d := range digests {
		pre := s.preimages[d]
		if err := p.AddPreimage(i, pre[:]); err != nil {
			return err
		}
	}
	return nil
}
