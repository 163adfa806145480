package memledger

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"
	"github.com/google/btree"
	"github.com/iov-one/swapkit"
)

// keyer is implemented by all btree items so that they can be compared.
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item. It is used for queries and embedded
// in stored items.
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff second argument is greater than first
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

type utxoItem struct {
	bkey
	utxo swapkit.UTXO
}

func newUTXOItem(u swapkit.UTXO) utxoItem {
	return utxoItem{bkey{utxoKey(u.Output.PkScript, u.OutPoint)}, u}
}

// scriptPrefix is the common key prefix of all outputs paying to given
// script. The length prefix keeps a script from matching the outputs of a
// longer script it is a prefix of.
func scriptPrefix(pkScript []byte) []byte {
	k := make([]byte, 2, 2+len(pkScript))
	binary.BigEndian.PutUint16(k, uint16(len(pkScript)))
	return append(k, pkScript...)
}

func utxoKey(pkScript []byte, op wire.OutPoint) []byte {
	k := scriptPrefix(pkScript)
	k = append(k, op.Hash[:]...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], op.Index)
	return append(k, idx[:]...)
}
