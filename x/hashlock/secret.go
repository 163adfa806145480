package hashlock

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit/errors"
)

// Size is the length of both a preimage and a commitment.
const Size = 32

// Preimage is the secret of a swap session.
type Preimage [Size]byte

// Commitment is the sha256 digest of a preimage.
type Commitment [Size]byte

// NewSecret returns a random preimage and its commitment.
func NewSecret() (Preimage, Commitment, error) {
	var p Preimage
	if _, err := rand.Read(p[:]); err != nil {
		return Preimage{}, Commitment{}, errors.Wrap(err, "read random")
	}
	return p, ForCommitment(p), nil
}

// ForCommitment returns the commitment of given preimage.
func ForCommitment(p Preimage) Commitment {
	return sha256.Sum256(p[:])
}

// ParsePreimage converts raw bytes into a preimage.
func ParsePreimage(raw []byte) (Preimage, error) {
	var p Preimage
	if len(raw) != Size {
		return p, errors.Wrapf(errors.ErrInvalidPreimage, "preimage must be %d bytes, got %d", Size, len(raw))
	}
	copy(p[:], raw)
	return p, nil
}

// ParseCommitment decodes a hex encoded commitment.
func ParseCommitment(s string) (Commitment, error) {
	var c Commitment
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != Size {
		return c, errors.Wrapf(errors.ErrInput, "commitment must be %d hex encoded bytes", Size)
	}
	copy(c[:], raw)
	return c, nil
}

// Verify returns an error if the preimage does not hash to the commitment.
func Verify(preimage []byte, c Commitment) error {
	if len(preimage) != Size {
		return errors.Wrapf(errors.ErrInvalidPreimage, "preimage must be %d bytes, got %d", Size, len(preimage))
	}
	if sha256.Sum256(preimage) != c {
		return errors.Wrapf(errors.ErrInvalidPreimage, "preimage does not hash to %s", c)
	}
	return nil
}

func (p Preimage) String() string {
	return hex.EncodeToString(p[:])
}

func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// HashLocked is implemented by contracts that embed hash locks in their
// script.
type HashLocked interface {
	ID() string
	HashLocks() [][32]byte
}

// BindToContracts ensures every contract locks its reveal path with the
// given commitment and no other. It must be called before contracts are
// used together in one session.
func BindToContracts(c Commitment, contracts ...HashLocked) error {
	if len(contracts) == 0 {
		return errors.Wrap(errors.ErrEmpty, "no contracts to bind")
	}
	for _, ct := range contracts {
		locks := ct.HashLocks()
		if len(locks) == 0 {
			return errors.Wrapf(errors.ErrSecretMismatch, "contract %s has no hash lock", ct.ID())
		}
		for _, l := range locks {
			if Commitment(l) != c {
				return errors.Wrapf(errors.ErrSecretMismatch,
					"contract %s commits to %x, session to %s", ct.ID(), l, c)
			}
		}
	}
	return nil
}

// ExtractPreimage returns the preimage of given commitment revealed by a
// spending witness.
func ExtractPreimage(wit wire.TxWitness, c Commitment) (Preimage, error) {
	for _, item := range wit {
		if len(item) == Size && sha256.Sum256(item) == c {
			var p Preimage
			copy(p[:], item)
			return p, nil
		}
	}
	return Preimage{}, errors.Wrapf(errors.ErrNotFound, "witness reveals no preimage of %s", c)
}
