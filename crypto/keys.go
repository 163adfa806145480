package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/iov-one/swapkit/errors"
)

// PubKeySize is the size of a compressed secp256k1 public key.
const PubKeySize = btcec.PubKeyBytesLenCompressed

// GenPrivKey returns a random new private key.
func GenPrivKey() (*btcec.PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(errors.ErrHuman, err.Error())
	}
	return key, nil
}

// PrivKeyFromSeed will deterministically generate a private key from a given
// seed. Use if you have a strong source of external randomness, or for
// deterministic keys in test cases.
func PrivKeyFromSeed(seed []byte) *btcec.PrivateKey {
	h := sha256.Sum256(seed)
	key, _ := btcec.PrivKeyFromBytes(h[:])
	return key
}

// ParsePubKey parses a compressed public key. Uncompressed keys are rejected
// because witness scripts must only contain compressed keys.
func ParsePubKey(raw []byte) (*btcec.PublicKey, error) {
	if len(raw) != PubKeySize {
		return nil, errors.Wrapf(errors.ErrInput, "public key must be %d bytes, got %d", PubKeySize, len(raw))
	}
	if raw[0] != 0x02 && raw[0] != 0x03 {
		return nil, errors.Wrap(errors.ErrInput, "public key is not compressed")
	}
	key, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return key, nil
}

// ParsePubKeyHex parses a hex encoded compressed public key.
func ParsePubKeyHex(s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "public key is not hex encoded")
	}
	return ParsePubKey(raw)
}

// ParsePrivKeyHex parses a hex encoded 32 byte private key.
func ParsePrivKeyHex(s string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "private key is not hex encoded")
	}
	if len(raw) != btcec.PrivKeyBytesLen {
		return nil, errors.Wrapf(errors.ErrInput, "private key must be %d bytes, got %d", btcec.PrivKeyBytesLen, len(raw))
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	return key, nil
}

// Sha256 returns the sha256 digest of given data.
func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}
