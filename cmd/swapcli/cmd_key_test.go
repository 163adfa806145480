package main

import (
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/swaptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeygen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")

	pub := strings.TrimSpace(mustRun(t, cmdKeygen, "", "-key", path))
	_, err := crypto.ParsePubKeyHex(pub)
	require.NoError(t, err)

	_, err = run(cmdKeygen, "", "-key", path)
	assert.Error(t, err, "existing key must not be overwritten")

	assert.Equal(t, pub, strings.TrimSpace(mustRun(t, cmdKeyaddr, "", "-key", path)))
}

func TestKeyaddr(t *testing.T) {
	path := writeKey(t, "alice")

	cases := map[string]struct {
		args []string
		want string
	}{
		"public key": {
			args: []string{"-key", path},
			want: hex.EncodeToString(swaptest.PubKey("alice")),
		},
		"segwit address": {
			args: []string{"-key", path, "-segwit"},
			want: segwitAddress(t, "alice"),
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got := mustRun(t, cmdKeyaddr, "", tc.args...)
			assert.Equal(t, tc.want+"\n", got)
		})
	}

	_, err := run(cmdKeyaddr, "", "-key", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
