package partial

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit/errors"
)

// magic starts every binary encoded packet.
var magic = []byte{0x70, 0x73, 0x62, 0x74, 0xff}

// Tx is a partially signed swap transaction.
type Tx struct {
	p *psbt.Packet
}

// New returns a packet for an unsigned transaction. The transaction must
// not carry any signature script or witness.
func New(tx *wire.MsgTx) (*Tx, error) {
	p, err := psbt.NewFromUnsignedTx(tx.Copy())
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return &Tx{p: p}, nil
}

// Decode reads a packet in its binary or base64 encoding.
func Decode(raw []byte) (*Tx, error) {
	b64 := !bytes.HasPrefix(raw, magic)
	if b64 {
		raw = bytes.TrimSpace(raw)
	}
	p, err := psbt.NewFromRawBytes(bytes.NewReader(raw), b64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return &Tx{p: p}, nil
}

// FromBase64 reads a base64 encoded packet.
func FromBase64(s string) (*Tx, error) {
	p, err := psbt.NewFromRawBytes(strings.NewReader(strings.TrimSpace(s)), true)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return &Tx{p: p}, nil
}

// Encode returns the binary encoding of the packet.
func (t *Tx) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.p.Serialize(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return buf.Bytes(), nil
}

// B64 returns the base64 encoding of the packet.
func (t *Tx) B64() (string, error) {
	s, err := t.p.B64Encode()
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, err.Error())
	}
	return s, nil
}

// Packet returns the underlying packet.
func (t *Tx) Packet() *psbt.Packet { return t.p }

// UnsignedTx returns a copy of the unsigned transaction.
func (t *Tx) UnsignedTx() *wire.MsgTx { return t.p.UnsignedTx.Copy() }

// NumInputs returns the number of inputs.
func (t *Tx) NumInputs() int { return len(t.p.Inputs) }

// IsComplete returns true once every input has its final witness.
func (t *Tx) IsComplete() bool { return t.p.IsComplete() }

func (t *Tx) input(i int) (*psbt.PInput, error) {
	if i < 0 || i >= len(t.p.Inputs) {
		return nil, errors.Wrapf(errors.ErrInput, "input %d out of range, %d inputs", i, len(t.p.Inputs))
	}
	return &t.p.Inputs[i], nil
}

// PrevOutFetcher returns the outputs spent by the transaction. Every input
// must carry its witness output.
func (t *Tx) PrevOutFetcher() (*txscript.MultiPrevOutFetcher, error) {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range t.p.UnsignedTx.TxIn {
		out, err := t.WitnessUtxo(i)
		if err != nil {
			return nil, err
		}
		fetcher.AddPrevOut(in.PreviousOutPoint, out)
	}
	return fetcher, nil
}

// Fee returns the difference between the values spent and created.
func (t *Tx) Fee() (btcutil.Amount, error) {
	var in, out int64
	for i := range t.p.Inputs {
		prev, err := t.WitnessUtxo(i)
		if err != nil {
			return 0, err
		}
		in += prev.Value
	}
	for _, o := range t.p.UnsignedTx.TxOut {
		out += o.Value
	}
	return btcutil.Amount(in - out), nil
}

// Extract returns the final transaction. All inputs must be finalized.
func (t *Tx) Extract() (*wire.MsgTx, error) {
	tx, err := psbt.Extract(t.p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrMissingWitnessData, err.Error())
	}
	return tx, nil
}
