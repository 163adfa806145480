package partial

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit/errors"
)

// sha256Type is the PSBT_IN_SHA256 input key type. Its key data is the
// digest, its value the preimage.
const sha256Type = 0x0b

// branchKey is the proprietary input key holding the selected branch name:
// type 0xfc, the length prefixed identifier and subtype 0.
var branchKey = []byte{0xfc, 0x07, 's', 'w', 'a', 'p', 'k', 'i', 't', 0x00}

// Funding describes the output spent by an input.
type Funding struct {
	// Tx is the transaction that created the output. It may be nil when
	// only the witness output is known.
	Tx *wire.MsgTx
	// Output is the spent output.
	Output *wire.TxOut
	// WitnessScript is the script the output commits to.
	WitnessScript []byte
}

// SetFunding attaches the spent output of input i. The funding transaction
// and the witness script must match the outpoint and output.
func (t *Tx) SetFunding(i int, f Funding) error {
	in, err := t.input(i)
	if err != nil {
		return err
	}
	if f.Output == nil {
		return errors.Wrapf(errors.ErrEmpty, "input %d: funding output", i)
	}
	op := t.p.UnsignedTx.TxIn[i].PreviousOutPoint
	if f.Tx != nil {
		if f.Tx.TxHash() != op.Hash || int(op.Index) >= len(f.Tx.TxOut) {
			return errors.Wrapf(errors.ErrInput, "input %d: funding transaction does not create %s", i, op)
		}
		created := f.Tx.TxOut[op.Index]
		if created.Value != f.Output.Value || !bytes.Equal(created.PkScript, f.Output.PkScript) {
			return errors.Wrapf(errors.ErrInput, "input %d: funding output differs from the transaction", i)
		}
	}
	if f.WitnessScript != nil {
		program := sha256.Sum256(f.WitnessScript)
		want := append([]byte{txscript.OP_0, txscript.OP_DATA_32}, program[:]...)
		if !bytes.Equal(want, f.Output.PkScript) {
			return errors.Wrapf(errors.ErrInput, "input %d: witness script does not hash to the spent output", i)
		}
	}

	if f.Tx != nil {
		in.NonWitnessUtxo = f.Tx.Copy()
	}
	out := *f.Output
	out.PkScript = append([]byte(nil), f.Output.PkScript...)
	in.WitnessUtxo = &out
	if f.WitnessScript != nil {
		in.WitnessScript = append([]byte(nil), f.WitnessScript...)
	}
	return nil
}

// WitnessUtxo returns the output spent by input i.
func (t *Tx) WitnessUtxo(i int) (*wire.TxOut, error) {
	in, err := t.input(i)
	if err != nil {
		return nil, err
	}
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo, nil
	}
	if in.NonWitnessUtxo != nil {
		idx := t.p.UnsignedTx.TxIn[i].PreviousOutPoint.Index
		if int(idx) < len(in.NonWitnessUtxo.TxOut) {
			return in.NonWitnessUtxo.TxOut[idx], nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "input %d: spent output", i)
}

// WitnessScript returns the witness script of input i or nil.
func (t *Tx) WitnessScript(i int) []byte {
	in, err := t.input(i)
	if err != nil {
		return nil
	}
	return in.WitnessScript
}

// SetSighashType sets the sighash type signatures of input i commit to.
func (t *Tx) SetSighashType(i int, ht txscript.SigHashType) error {
	in, err := t.input(i)
	if err != nil {
		return err
	}
	if ht == 0 {
		return errors.Wrapf(errors.ErrInput, "input %d: sighash type must be explicit", i)
	}
	in.SighashType = ht
	return nil
}

// SighashType returns the sighash type of input i. It is false when none
// was set.
func (t *Tx) SighashType(i int) (txscript.SigHashType, bool) {
	in, err := t.input(i)
	if err != nil || in.SighashType == 0 {
		return 0, false
	}
	return in.SighashType, true
}

// SetBranch records the branch input i is spent through.
func (t *Tx) SetBranch(i int, name string) error {
	in, err := t.input(i)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.Wrapf(errors.ErrEmpty, "input %d: branch", i)
	}
	setUnknown(in, branchKey, []byte(name))
	return nil
}

// Branch returns the branch input i is spent through.
func (t *Tx) Branch(i int) (string, bool) {
	in, err := t.input(i)
	if err != nil {
		return "", false
	}
	v, ok := getUnknown(in, branchKey)
	return string(v), ok
}

// AddPreimage attaches a preimage to input i.
func (t *Tx) AddPreimage(i int, preimage []byte) error {
	in, err := t.input(i)
	if err != nil {
		return err
	}
	if len(preimage) == 0 {
		return errors.Wrapf(errors.ErrEmpty, "input %d: preimage", i)
	}
	digest := sha256.Sum256(preimage)
	setUnknown(in, append([]byte{sha256Type}, digest[:]...), append([]byte(nil), preimage...))
	return nil
}

// Preimages returns the preimages attached to input i by digest.
func (t *Tx) Preimages(i int) map[[32]byte][]byte {
	out := make(map[[32]byte][]byte)
	in, err := t.input(i)
	if err != nil {
		return out
	}
	for _, u := range in.Unknowns {
		if len(u.Key) != 33 || u.Key[0] != sha256Type {
			continue
		}
		var d [32]byte
		copy(d[:], u.Key[1:])
		out[d] = u.Value
	}
	return out
}

// AddSignature adds the partial signature of a compressed key to input i.
// The signature must carry the sighash type of the input.
func (t *Tx) AddSignature(i int, pub, sig []byte) error {
	in, err := t.input(i)
	if err != nil {
		return err
	}
	if in.WitnessScript == nil {
		return errors.Wrapf(errors.ErrSignature, "input %d: no witness script", i)
	}
	if len(sig) == 0 || in.SighashType == 0 || txscript.SigHashType(sig[len(sig)-1]) != in.SighashType {
		return errors.Wrapf(errors.ErrSignature, "input %d: signature does not commit to the input sighash type", i)
	}
	for _, ps := range in.PartialSigs {
		if bytes.Equal(ps.PubKey, pub) {
			if bytes.Equal(ps.Signature, sig) {
				return nil
			}
			return errors.Wrapf(errors.ErrDuplicate, "input %d: key %x already signed", i, pub)
		}
	}

	u, err := psbt.NewUpdater(t.p)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	outcome, err := u.Sign(i, sig, pub, nil, nil)
	if err != nil {
		return errors.Wrapf(errors.ErrSignature, "input %d: %s", i, err)
	}
	if outcome != psbt.SignSuccesful {
		return errors.Wrapf(errors.ErrSignature, "input %d: cannot add signature, outcome %d", i, outcome)
	}
	return nil
}

// Signatures returns the partial signatures of input i keyed by the
// compressed public key.
func (t *Tx) Signatures(i int) map[string][]byte {
	out := make(map[string][]byte)
	in, err := t.input(i)
	if err != nil {
		return out
	}
	for _, ps := range in.PartialSigs {
		out[string(ps.PubKey)] = ps.Signature
	}
	return out
}

// Satisfier returns the signatures and preimages of input i in the form a
// branch witness is built from.
func (t *Tx) Satisfier(i int) InputSatisfier {
	return InputSatisfier{sigs: t.Signatures(i), preimages: t.Preimages(i)}
}

// InputSatisfier provides the collected data of one input.
type InputSatisfier struct {
	sigs      map[string][]byte
	preimages map[[32]byte][]byte
}

// Signature returns the signature of a compressed key.
func (s InputSatisfier) Signature(pub []byte) ([]byte, bool) {
	sig, ok := s.sigs[string(pub)]
	return sig, ok
}

// Preimage returns the preimage of a digest.
func (s InputSatisfier) Preimage(digest [32]byte) ([]byte, bool) {
	p, ok := s.preimages[digest]
	return p, ok
}

// SetFinalWitness stores the complete witness of input i. Signing data
// that is no longer needed is dropped.
func (t *Tx) SetFinalWitness(i int, wit wire.TxWitness) error {
	in, err := t.input(i)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(wit))); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	for _, item := range wit {
		if err := wire.WriteVarBytes(&buf, 0, item); err != nil {
			return errors.Wrap(errors.ErrInput, err.Error())
		}
	}
	in.FinalScriptWitness = buf.Bytes()
	in.PartialSigs = nil
	in.SighashType = 0
	in.WitnessScript = nil
	var kept []*psbt.Unknown
	for _, u := range in.Unknowns {
		if bytes.Equal(u.Key, branchKey) {
			kept = append(kept, u)
		}
	}
	in.Unknowns = kept
	return nil
}

func setUnknown(in *psbt.PInput, key, value []byte) {
	for _, u := range in.Unknowns {
		if bytes.Equal(u.Key, key) {
			u.Value = value
			return
		}
	}
	in.Unknowns = append(in.Unknowns, &psbt.Unknown{Key: append([]byte(nil), key...), Value: value})
}

func getUnknown(in *psbt.PInput, key []byte) ([]byte, bool) {
	for _, u := range in.Unknowns {
		if bytes.Equal(u.Key, key) {
			return u.Value, true
		}
	}
	return nil, false
}

// Finalized returns true once input i carries its final witness.
func (t *Tx) Finalized(i int) bool {
	in, err := t.input(i)
	return err == nil && len(in.FinalScriptWitness) != 0
}

// Copy returns a deep copy of the packet.
func (t *Tx) Copy() (*Tx, error) {
	raw, err := t.Encode()
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}
