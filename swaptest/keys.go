package swaptest

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/iov-one/swapkit/crypto"
)

// NewKey returns a random private key.
func NewKey(t testing.TB) *btcec.PrivateKey {
	t.Helper()
	k, err := crypto.GenPrivKey()
	if err != nil {
		t.Fatalf("cannot generate a key: %s", err)
	}
	return k
}

// Key returns the private key derived from given name. The same name always
// returns the same key.
func Key(name string) *btcec.PrivateKey {
	return crypto.PrivKeyFromSeed([]byte("swaptest/" + name))
}

// PubKey returns the compressed public key of Key(name).
func PubKey(name string) []byte {
	return Key(name).PubKey().SerializeCompressed()
}
