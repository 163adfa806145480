package partial

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/iov-one/swapkit/errors"
)

// Combine merges the data two parties collected for the same unsigned
// transaction. Fields missing on a are taken from b. Signatures and
// preimages are united. Conflicting values are rejected and a is left
// untouched in that case.
func Combine(a, b *Tx) (*Tx, error) {
	if a == nil || b == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "packet")
	}
	if a.p.UnsignedTx.TxHash() != b.p.UnsignedTx.TxHash() {
		return nil, errors.Wrap(errors.ErrInput, "packets spend different transactions")
	}
	out, err := a.Copy()
	if err != nil {
		return nil, err
	}

	for i := range out.p.Inputs {
		if err := mergeInput(&out.p.Inputs[i], &b.p.Inputs[i]); err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
	}
	return out, nil
}

func mergeInput(dst, src *psbt.PInput) error {
	if dst.FinalScriptWitness == nil && src.FinalScriptWitness != nil {
		*dst = *src
		return nil
	}
	if dst.FinalScriptWitness != nil {
		return nil
	}

	if dst.NonWitnessUtxo == nil {
		dst.NonWitnessUtxo = src.NonWitnessUtxo
	}
	if dst.WitnessUtxo == nil {
		dst.WitnessUtxo = src.WitnessUtxo
	}
	switch {
	case dst.WitnessScript == nil:
		dst.WitnessScript = src.WitnessScript
	case src.WitnessScript != nil && !bytes.Equal(dst.WitnessScript, src.WitnessScript):
		return errors.Wrap(errors.ErrInput, "conflicting witness script")
	}
	switch {
	case dst.SighashType == 0:
		dst.SighashType = src.SighashType
	case src.SighashType != 0 && src.SighashType != dst.SighashType:
		return errors.Wrap(errors.ErrInput, "conflicting sighash type")
	}

	for _, sig := range src.PartialSigs {
		var found bool
		for _, have := range dst.PartialSigs {
			if bytes.Equal(have.PubKey, sig.PubKey) {
				found = true
				if !bytes.Equal(have.Signature, sig.Signature) {
					return errors.Wrapf(errors.ErrDuplicate, "conflicting signature of %x", sig.PubKey)
				}
			}
		}
		if !found {
			dst.PartialSigs = append(dst.PartialSigs, sig)
		}
	}
	for _, u := range src.Unknowns {
		v, ok := getUnknown(dst, u.Key)
		switch {
		case !ok:
			dst.Unknowns = append(dst.Unknowns, u)
		case !bytes.Equal(v, u.Value):
			return errors.Wrapf(errors.ErrInput, "conflicting value for key %x", u.Key)
		}
	}
	return nil
}
