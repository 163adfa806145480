package rpcledger

import (
	"context"
	"math"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
)

// Conn is the part of the node RPC interface the ledger uses. It is
// implemented by *rpcclient.Client.
type Conn interface {
	GetBlockChainInfo() (*btcjson.GetBlockChainInfoResult, error)
	ListUnspentMinMaxAddresses(minConf, maxConf int, addrs []btcutil.Address) ([]btcjson.ListUnspentResult, error)
	GetRawTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error)
	GetTxOut(txHash *chainhash.Hash, index uint32, mempool bool) (*btcjson.GetTxOutResult, error)
	SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error)
}

var _ Conn = (*rpcclient.Client)(nil)

var _ swapkit.Ledger = (*Ledger)(nil)

// Config describes how to reach the node.
type Config struct {
	Host       string `toml:"host"`
	User       string `toml:"user"`
	Pass       string `toml:"pass"`
	DisableTLS bool   `toml:"disable_tls"`
}

// Ledger is a swapkit.Ledger backed by a node.
type Ledger struct {
	conn Conn
	net  swapkit.Network
	// closer is set when the ledger owns the connection.
	closer func()
}

// Dial connects to the node in HTTP POST mode.
func Dial(cfg Config, net swapkit.Network) (*Ledger, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		return nil, errors.Field("Host", errors.ErrEmpty, "node address")
	}
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		DisableTLS:   cfg.DisableTLS,
		HTTPPostMode: true,
	}, nil)
	if err != nil {
		return nil, errors.WithCause(errors.ErrLedger, err, "rpc connect")
	}
	l := NewLedger(client, net)
	l.closer = func() {
		client.Shutdown()
		client.WaitForShutdown()
	}
	return l, nil
}

// NewLedger wraps an existing connection.
func NewLedger(conn Conn, net swapkit.Network) *Ledger {
	return &Ledger{conn: conn, net: net}
}

// Close releases the connection opened by Dial.
func (l *Ledger) Close() {
	if l.closer != nil {
		l.closer()
	}
}

// Tip returns the best block height and its median time past.
func (l *Ledger) Tip(ctx context.Context) (swapkit.ChainTip, error) {
	if err := ctx.Err(); err != nil {
		return swapkit.ChainTip{}, errors.WithCause(errors.ErrLedger, err, "request aborted")
	}
	info, err := l.conn.GetBlockChainInfo()
	if err != nil {
		return swapkit.ChainTip{}, errors.WithCause(errors.ErrLedger, err, "getblockchaininfo")
	}
	if info.Blocks < 0 {
		return swapkit.ChainTip{}, errors.Wrapf(errors.ErrLedger, "negative height %d", info.Blocks)
	}
	return swapkit.ChainTip{Height: uint32(info.Blocks), MedianTime: swapkit.UnixTime(info.MedianTime)}, nil
}

// GetBalance sums all outputs paying to the address.
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

// ListUnspent returns confirmed and mempool outputs paying to the address.
func (l *Ledger) ListUnspent(ctx context.Context, addr btcutil.Address) ([]swapkit.UTXO, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithCause(errors.ErrLedger, err, "request aborted")
	}
	tip, err := l.Tip(ctx)
	if err != nil {
		return nil, err
	}
	res, err := l.conn.ListUnspentMinMaxAddresses(0, math.MaxInt32, []btcutil.Address{addr})
	if err != nil {
		return nil, errors.WithCause(errors.ErrLedger, err, "listunspent")
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}

	out := make([]swapkit.UTXO, 0, len(res))
	for _, r := range res {
		hash, err := chainhash.NewHashFromStr(r.TxID)
		if err != nil {
			return nil, errors.WithCause(errors.ErrLedger, err, "listunspent txid %q", r.TxID)
		}
		value, err := btcutil.NewAmount(r.Amount)
		if err != nil {
			return nil, errors.WithCause(errors.ErrLedger, err, "listunspent amount %v", r.Amount)
		}
		u := swapkit.UTXO{
			OutPoint: wire.OutPoint{Hash: *hash, Index: r.Vout},
			Output:   wire.NewTxOut(int64(value), pkScript),
		}
		if r.Confirmations > 0 {
			u.Height = tip.Height - uint32(r.Confirmations) + 1
		}
		out = append(out, u)
	}
	return out, nil
}

// GetFundingEvidence returns the transaction creating the output.
func (l *Ledger) GetFundingEvidence(ctx context.Context, op wire.OutPoint) (*wire.MsgTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithCause(errors.ErrLedger, err, "request aborted")
	}
	tx, err := l.conn.GetRawTransaction(&op.Hash)
	if err != nil {
		return nil, errors.WithCause(errors.ErrLedger, err, "getrawtransaction %s", op.Hash)
	}
	msg := tx.MsgTx()
	if int(op.Index) >= len(msg.TxOut) {
		return nil, errors.Wrapf(errors.ErrNotFound, "transaction %s has no output %d", op.Hash, op.Index)
	}
	return msg.Copy(), nil
}

// IsUnspent asks the node whether the output is in its UTXO set, mempool
// included.
func (l *Ledger) IsUnspent(ctx context.Context, op wire.OutPoint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.WithCause(errors.ErrLedger, err, "request aborted")
	}
	res, err := l.conn.GetTxOut(&op.Hash, op.Index, true)
	if err != nil {
		return false, errors.WithCause(errors.ErrLedger, err, "gettxout %s", op)
	}
	return res != nil, nil
}

// Broadcast submits the transaction to the node mempool.
func (l *Ledger) Broadcast(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash, error) {
	if err := ctx.Err(); err != nil {
		return chainhash.Hash{}, errors.WithCause(errors.ErrLedger, err, "request aborted")
	}
	hash, err := l.conn.SendRawTransaction(tx, false)
	if err != nil {
		return chainhash.Hash{}, errors.WithCause(errors.ErrLedger, err, "sendrawtransaction %s", tx.TxHash())
	}
	swapkit.GetLogger(ctx).Info("transaction broadcast", "module", "rpcledger", "txid", hash.String(), "network", string(l.net))
	return *hash, nil
}
