package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/ledger/memledger"
	"github.com/iov-one/swapkit/swaptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type swapFixture struct {
	ledger     *memledger.Ledger
	aliceKey   string
	bobKey     string
	aliceDesc  string
	bobDesc    string
	preimage   string
	commitment string
}

// newSwap funds an HTLC of alice with deadline 256 and an HTLC of bob with
// deadline 128 at height 100. Bob redeems with the preimage.
func newSwap(t *testing.T) swapFixture {
	t.Helper()
	preimage, commitment := swaptest.Secret("swap")
	l := memledger.New(swapkit.ChainTip{Height: 100})
	useLedger(t, l)

	f := swapFixture{
		ledger:     l,
		aliceKey:   writeKey(t, "alice"),
		bobKey:     writeKey(t, "bob"),
		aliceDesc:  htlc(t, "alice", "bob", 256, commitment),
		bobDesc:    htlc(t, "bob", "alice", 128, commitment),
		preimage:   preimage.String(),
		commitment: commitment.String(),
	}
	fund(t, l, f.aliceDesc, 100000)
	fund(t, l, f.bobDesc, 90000)
	return f
}

func TestBuildRequiresOrderingAndSighash(t *testing.T) {
	f := newSwap(t)
	base := []string{"-foreign", f.aliceDesc, "-preimage", f.preimage, "-path", "reveal", "-drain", segwitAddress(t, "bob")}

	cases := map[string]struct {
		flags   []string
		wantErr string
	}{
		"no ordering": {
			flags:   []string{"-sighash", "all"},
			wantErr: "ordering",
		},
		"no sighash": {
			flags:   []string{"-ordering", "untouched"},
			wantErr: "sighash",
		},
		"empty sighash": {
			flags:   []string{"-ordering", "canonical", "-sighash", ""},
			wantErr: "sighash",
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			_, err := run(cmdBuild, "", append(tc.flags, base...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSwapPipeline(t *testing.T) {
	f := newSwap(t)
	bobAddr, aliceAddr := segwitAddress(t, "bob"), segwitAddress(t, "alice")

	_, err := run(cmdBuild, "", "-ordering", "untouched", "-sighash", "all", "-local", f.bobDesc, "-path", "refund", "-drain", bobAddr)
	require.Error(t, err, "refund before the deadline")

	claim := mustRun(t, cmdBuild, "", "-ordering", "untouched", "-sighash", "all",
		"-foreign", f.aliceDesc,
		"-preimage", f.preimage,
		"-path", "reveal",
		"-drain", bobAddr)
	signed := mustRun(t, cmdSign, claim, "-key", f.bobKey)
	raw := mustRun(t, cmdFinalize, signed)
	txid := strings.TrimSpace(mustRun(t, cmdSubmit, raw))
	tx, err := readRawTx(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, tx.TxHash().String(), txid)

	revealed := mustRun(t, cmdExtract, raw, "-commitment", f.commitment)
	assert.Equal(t, f.preimage, strings.TrimSpace(revealed))

	counter := mustRun(t, cmdBuild, "", "-ordering", "untouched", "-sighash", "all",
		"-foreign", f.bobDesc,
		"-preimage", strings.TrimSpace(revealed),
		"-path", "reveal",
		"-drain", aliceAddr)
	signed = mustRun(t, cmdSign, counter, "-key", f.aliceKey)
	raw = mustRun(t, cmdFinalize, signed)
	mustRun(t, cmdSubmit, raw)

	balances := strings.Split(strings.TrimSpace(
		mustRun(t, cmdBalance, f.aliceDesc+"\n"+f.bobDesc+"\n")), "\n")
	require.Len(t, balances, 2)
	assert.True(t, strings.HasSuffix(balances[0], "\t0"), balances[0])
	assert.True(t, strings.HasSuffix(balances[1], "\t0"), balances[1])
}

func TestSignWithoutKeyLeavesInputs(t *testing.T) {
	f := newSwap(t)
	claim := mustRun(t, cmdBuild, "", "-ordering", "untouched", "-sighash", "all",
		"-foreign", f.aliceDesc,
		"-preimage", f.preimage,
		"-path", "reveal",
		"-drain", segwitAddress(t, "bob"))

	signed := mustRun(t, cmdSign, claim, "-key", f.aliceKey)
	_, err := run(cmdFinalize, signed)
	assert.Error(t, err)
}

func TestCombineRefunds(t *testing.T) {
	f := newSwap(t)
	f.ledger.Mine(200)

	unsigned := mustRun(t, cmdBuild, "", "-sighash", "all",
		"-local", f.aliceDesc,
		"-local", f.bobDesc,
		"-path", "refund",
		"-ordering", "canonical",
		"-drain", segwitAddress(t, "alice"))
	byAlice := mustRun(t, cmdSign, unsigned, "-key", f.aliceKey)
	byBob := mustRun(t, cmdSign, unsigned, "-key", f.bobKey)

	_, err := run(cmdFinalize, byAlice)
	require.Error(t, err, "bob did not sign yet")

	combined := mustRun(t, cmdCombine, byAlice+byBob)
	raw := mustRun(t, cmdFinalize, combined)
	mustRun(t, cmdSubmit, raw)

	_, err = run(cmdCombine, "")
	assert.Error(t, err)
}

func TestViewPacket(t *testing.T) {
	f := newSwap(t)
	aliceAddr := segwitAddress(t, "alice")
	unsigned := mustRun(t, cmdBuild, "", "-ordering", "untouched", "-sighash", "all",
		"-foreign", f.bobDesc,
		"-preimage", f.preimage,
		"-path", "reveal",
		"-drain", aliceAddr)
	signed := mustRun(t, cmdSign, unsigned, "-key", f.aliceKey)

	var v packetView
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cmdView, signed)), &v))
	assert.False(t, v.Complete)
	assert.NotZero(t, v.Fee)
	require.Len(t, v.Inputs, 1)
	assert.Equal(t, int64(90000), v.Inputs[0].Value)
	assert.NotEmpty(t, v.Inputs[0].Branch)
	assert.Equal(t, "0x1", v.Inputs[0].Sighash)
	assert.Len(t, v.Inputs[0].Signers, 1)
	assert.Len(t, v.Inputs[0].Preimages, 1)
	require.Len(t, v.Outputs, 1)
	assert.Equal(t, aliceAddr, v.Outputs[0].Address)
	assert.Equal(t, int64(90000)-v.Fee, v.Outputs[0].Value)
}

func TestOfferAccept(t *testing.T) {
	f := newSwap(t)
	unsigned := mustRun(t, cmdBuild, "", "-ordering", "untouched", "-sighash", "all",
		"-foreign", f.bobDesc,
		"-preimage", f.preimage,
		"-path", "reveal",
		"-drain", segwitAddress(t, "alice"))

	offer := mustRun(t, cmdOffer, unsigned, "-observe", "-commitment", f.commitment, f.aliceDesc, f.bobDesc)
	accepted := mustRun(t, cmdAccept, offer, "-observe")
	assert.Contains(t, accepted, "commitment\t"+f.commitment+"\n")
	assert.Contains(t, accepted, "descriptor\t"+f.aliceDesc+"\n")
	assert.Contains(t, accepted, "descriptor\t"+f.bobDesc+"\n")
	assert.Contains(t, accepted, "psbt\t"+unsigned)
	assert.NotContains(t, accepted, "\t-\n", "every contract is funded")

	_, other := swaptest.Secret("other")
	offer = mustRun(t, cmdOffer, "", "-commitment", other.String(), f.aliceDesc)
	_, err := run(cmdAccept, offer)
	assert.Error(t, err, "contract does not commit to the offer commitment")
}
