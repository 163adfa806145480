package memledger

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/btree"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
)

// blockInterval is the median time added for every mined block.
const blockInterval = 10 * time.Minute

var _ swapkit.Ledger = (*Ledger)(nil)

// Ledger is an in memory chain. It is safe for concurrent use.
type Ledger struct {
	mu    sync.RWMutex
	tip   swapkit.ChainTip
	utxos *btree.BTree
	// keys indexes the btree key of every unspent output.
	keys    map[wire.OutPoint][]byte
	txs     map[chainhash.Hash]*wire.MsgTx
	pending []wire.OutPoint
	funded  uint32
}

// New returns an empty ledger at given tip.
func New(tip swapkit.ChainTip) *Ledger {
	return &Ledger{
		tip:   tip,
		utxos: btree.New(2),
		keys:  make(map[wire.OutPoint][]byte),
		txs:   make(map[chainhash.Hash]*wire.MsgTx),
	}
}

// Fund creates a confirmed output paying value to given script and returns
// it together with the transaction that created it.
func (l *Ledger) Fund(pkScript []byte, value btcutil.Amount) (swapkit.UTXO, *wire.MsgTx) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.funded++
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: l.funded}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(value), pkScript))

	u := swapkit.UTXO{
		OutPoint: wire.OutPoint{Hash: tx.TxHash(), Index: 0},
		Output:   tx.TxOut[0],
		Height:   l.tip.Height,
	}
	l.txs[u.OutPoint.Hash] = tx
	l.insert(u)
	return u, tx.Copy()
}

// Mine advances the tip by n blocks, confirming all broadcast outputs in
// the first of them.
func (l *Ledger) Mine(n uint32) swapkit.ChainTip {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n == 0 {
		return l.tip
	}
	for _, op := range l.pending {
		key, ok := l.keys[op]
		if !ok {
			// Spent before it was mined.
			continue
		}
		if item := l.utxos.Get(bkey{key}); item != nil {
			u := item.(utxoItem).utxo
			u.Height = l.tip.Height + 1
			l.utxos.ReplaceOrInsert(newUTXOItem(u))
		}
	}
	l.pending = nil

	l.tip.Height += n
	if !l.tip.MedianTime.IsZero() {
		l.tip.MedianTime = l.tip.MedianTime.Add(time.Duration(n) * blockInterval)
	}
	return l.tip
}

// Tip returns the current chain tip.
func (l *Ledger) Tip(ctx context.Context) (swapkit.ChainTip, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tip, nil
}

// GetBalance returns the total value of all unspent outputs paying to given
// address.
func (l *Ledger) GetBalance(ctx context.Context, addr btcutil.Address) (btcutil.Amount, error) {
	utxos, err := l.ListUnspent(ctx, addr)
	if err != nil {
		return 0, err
	}
	var total btcutil.Amount
	for _, u := range utxos {
		total += btcutil.Amount(u.Output.Value)
	}
	return total, nil
}

// ListUnspent returns all unspent outputs paying to given address, ordered
// by outpoint.
func (l *Ledger) ListUnspent(ctx context.Context, addr btcutil.Address) ([]swapkit.UTXO, error) {
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	prefix := scriptPrefix(pkScript)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []swapkit.UTXO
	l.utxos.AscendGreaterOrEqual(bkey{prefix}, func(i btree.Item) bool {
		item := i.(utxoItem)
		if !bytes.HasPrefix(item.Key(), prefix) {
			return false
		}
		out = append(out, copyUTXO(item.utxo))
		return true
	})
	return out, nil
}

// GetFundingEvidence returns the transaction that created given output.
func (l *Ledger) GetFundingEvidence(ctx context.Context, op wire.OutPoint) (*wire.MsgTx, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.txs[op.Hash]
	if !ok || int(op.Index) >= len(tx.TxOut) {
		return nil, errors.Wrapf(errors.ErrNotFound, "output %s", op)
	}
	return tx.Copy(), nil
}

// IsUnspent returns true if given output exists and was not spent.
func (l *Ledger) IsUnspent(ctx context.Context, op wire.OutPoint) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.keys[op]
	return ok, nil
}

// Broadcast validates the transaction against the current state and
// applies it. Its outputs are unconfirmed until the next Mine call.
func (l *Ledger) Broadcast(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validate(tx); err != nil {
		return chainhash.Hash{}, err
	}

	for _, in := range tx.TxIn {
		key := l.keys[in.PreviousOutPoint]
		l.utxos.Delete(bkey{key})
		delete(l.keys, in.PreviousOutPoint)
	}
	tx = tx.Copy()
	hash := tx.TxHash()
	l.txs[hash] = tx
	for i, out := range tx.TxOut {
		u := swapkit.UTXO{OutPoint: wire.OutPoint{Hash: hash, Index: uint32(i)}, Output: out}
		l.insert(u)
		l.pending = append(l.pending, u.OutPoint)
	}
	return hash, nil
}

func (l *Ledger) validate(tx *wire.MsgTx) error {
	if len(tx.TxIn) == 0 || len(tx.TxOut) == 0 {
		return errors.Wrap(errors.ErrLedger, "transaction has no inputs or no outputs")
	}
	if _, ok := l.txs[tx.TxHash()]; ok {
		return errors.Wrapf(errors.ErrLedger, "transaction %s already known", tx.TxHash())
	}
	if !l.isFinal(tx) {
		return errors.Wrapf(errors.ErrLedger, "transaction lock time %d is not final at %s", tx.LockTime, l.tip)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	var in, out int64
	for _, txIn := range tx.TxIn {
		key, ok := l.keys[txIn.PreviousOutPoint]
		if !ok {
			return errors.Wrapf(errors.ErrLedger, "input %s is missing or spent", txIn.PreviousOutPoint)
		}
		prev := l.utxos.Get(bkey{key}).(utxoItem).utxo.Output
		fetcher.AddPrevOut(txIn.PreviousOutPoint, prev)
		in += prev.Value
	}
	for _, txOut := range tx.TxOut {
		out += txOut.Value
	}
	if out > in {
		return errors.Wrapf(errors.ErrLedger, "outputs %d exceed inputs %d", out, in)
	}

	hashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, txIn := range tx.TxIn {
		prev := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)
		vm, err := txscript.NewEngine(prev.PkScript, tx, i, txscript.StandardVerifyFlags, nil, hashes, prev.Value, fetcher)
		if err != nil {
			return errors.Wrapf(errors.ErrLedger, "input %d: %s", i, err)
		}
		if err := vm.Execute(); err != nil {
			return errors.Wrapf(errors.ErrLedger, "input %d: %s", i, err)
		}
	}
	return nil
}

// isFinal reports whether the transaction may be included in the block on
// top of the current tip.
func (l *Ledger) isFinal(tx *wire.MsgTx) bool {
	if tx.LockTime == 0 {
		return true
	}
	lock := swapkit.LockTime(tx.LockTime)
	if l.tip.Reached(lock) {
		return true
	}
	for _, in := range tx.TxIn {
		if in.Sequence != wire.MaxTxInSequenceNum {
			return false
		}
	}
	return true
}

func (l *Ledger) insert(u swapkit.UTXO) {
	item := newUTXOItem(u)
	l.utxos.ReplaceOrInsert(item)
	l.keys[u.OutPoint] = item.Key()
}

func copyUTXO(u swapkit.UTXO) swapkit.UTXO {
	out := *u.Output
	out.PkScript = append([]byte(nil), u.Output.PkScript...)
	u.Output = &out
	return u
}
