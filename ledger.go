package swapkit

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// UTXO is an unspent transaction output as reported by a ledger.
type UTXO struct {
	OutPoint wire.OutPoint
	Output   *wire.TxOut
	// Height is the height of the block including the output or zero if
	// the output is not confirmed yet.
	Height uint32
}

// Ledger is the chain collaborator. Implementations must be safe for
// concurrent use. Errors returned by a ledger are passed to the caller
// unchanged.
type Ledger interface {
	// Tip returns the current chain tip.
	Tip(ctx context.Context) (ChainTip, error)

	// GetBalance returns the total value of all unspent outputs paying to
	// given address.
	GetBalance(ctx context.Context, addr btcutil.Address) (btcutil.Amount, error)

	// ListUnspent returns all unspent outputs paying to given address.
	ListUnspent(ctx context.Context, addr btcutil.Address) ([]UTXO, error)

	// GetFundingEvidence returns the full transaction that created given
	// output.
	GetFundingEvidence(ctx context.Context, op wire.OutPoint) (*wire.MsgTx, error)

	// IsUnspent returns true if given output exists and was not spent.
	IsUnspent(ctx context.Context, op wire.OutPoint) (bool, error)

	// Broadcast submits a finalized transaction.
	Broadcast(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash, error)
}
