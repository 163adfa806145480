package swaptest

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/wire"
)

func crypto32(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

// FundingTx returns a transaction with a single output paying value to
// given script and the outpoint of that output. The input is derived from
// the seed so that different seeds produce different transactions.
func FundingTx(seed string, pkScript []byte, value int64) (*wire.MsgTx, wire.OutPoint) {
	tx := wire.NewMsgTx(wire.TxVersion)
	prev := wire.OutPoint{Hash: crypto32("swaptest/funding/" + seed)}
	tx.AddTxIn(wire.NewTxIn(&prev, nil, nil))
	tx.AddTxOut(wire.NewTxOut(value, pkScript))
	return tx, wire.OutPoint{Hash: tx.TxHash(), Index: 0}
}
