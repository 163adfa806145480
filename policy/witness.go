package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit/errors"
)

// Satisfier provides the data a branch witness is built from.
type Satisfier interface {
	// Signature returns the signature, sighash type included, of given
	// compressed key.
	Signature(pub []byte) ([]byte, bool)
	// Preimage returns the preimage of given digest.
	Preimage(digest [32]byte) ([]byte, bool)
}

// Satisfy builds the full witness of the branch: the stack items followed by
// the script.
func (b Branch) Satisfy(s Satisfier, script []byte) (wire.TxWitness, error) {
	wit := make(wire.TxWitness, 0, len(b.Witness)+1)
	for _, it := range b.Witness {
		switch it.Kind {
		case ItemSignature:
			sig, ok := s.Signature(it.PubKey)
			if !ok {
				return nil, errors.Wrapf(errors.ErrMissingWitnessData,
					"branch %s: signature of %s", b.Name, hex.EncodeToString(it.PubKey))
			}
			wit = append(wit, sig)
		case ItemPreimage:
			p, ok := s.Preimage(it.Digest)
			if !ok {
				return nil, errors.Wrapf(errors.ErrMissingWitnessData,
					"branch %s: preimage of %s", b.Name, hex.EncodeToString(it.Digest[:]))
			}
			if len(p) != PreimageSize || sha256.Sum256(p) != it.Digest {
				return nil, errors.Wrapf(errors.ErrInvalidPreimage,
					"branch %s: preimage does not hash to %s", b.Name, hex.EncodeToString(it.Digest[:]))
			}
			wit = append(wit, p)
		case ItemTrue:
			wit = append(wit, []byte{1})
		case ItemFalse:
			wit = append(wit, []byte{})
		}
	}
	return append(wit, script), nil
}

// MatchWitness returns the branch a witness spending this script follows.
func (cs *CompiledScript) MatchWitness(wit wire.TxWitness) (Branch, error) {
	if len(wit) == 0 || !bytes.Equal(wit[len(wit)-1], cs.script) {
		return Branch{}, errors.Wrap(errors.ErrInput, "witness does not reveal this script")
	}
	items := wit[:len(wit)-1]
	for _, b := range cs.branches {
		if matches(b, items) {
			return b, nil
		}
	}
	return Branch{}, errors.Wrap(errors.ErrInput, "witness does not follow any branch")
}

func matches(b Branch, items [][]byte) bool {
	if len(items) != len(b.Witness) {
		return false
	}
	for i, it := range b.Witness {
		x := items[i]
		switch it.Kind {
		case ItemTrue:
			if !bytes.Equal(x, []byte{1}) {
				return false
			}
		case ItemFalse:
			if len(x) != 0 {
				return false
			}
		case ItemPreimage:
			if len(x) != PreimageSize || sha256.Sum256(x) != it.Digest {
				return false
			}
		case ItemSignature:
			if len(x) == 0 || len(x) > MaxSignatureSize {
				return false
			}
		}
	}
	return true
}

// PreimageOf returns the preimage of given digest revealed by a witness that
// follows branch b.
func (b Branch) PreimageOf(wit wire.TxWitness, digest [32]byte) ([]byte, bool) {
	if len(wit) != len(b.Witness)+1 {
		return nil, false
	}
	for i, it := range b.Witness {
		if it.Kind == ItemPreimage && it.Digest == digest && sha256.Sum256(wit[i]) == digest {
			return append([]byte(nil), wit[i]...), true
		}
	}
	return nil, false
}
