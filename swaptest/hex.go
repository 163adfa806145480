package swaptest

import (
	"encoding/hex"
	"testing"

	"github.com/iov-one/swapkit/x/hashlock"
)

// DecodeHex returns the raw bytes of a hex encoded string.
func DecodeHex(t testing.TB, encoded string) []byte {
	t.Helper()
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		t.Fatalf("cannot decode hex string: %s", err)
	}
	return raw
}

// Secret returns the preimage derived from given name and its commitment.
func Secret(name string) (hashlock.Preimage, hashlock.Commitment) {
	p := hashlock.Preimage(crypto32("swaptest/secret/" + name))
	return p, hashlock.ForCommitment(p)
}
