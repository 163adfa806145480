package envelope

import (
	"bytes"
	"io"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/swaptest"
	"github.com/iov-one/swapkit/swaptest/assert"
	"github.com/iov-one/swapkit/x/aswap"
	"github.com/stretchr/testify/require"
)

func swapContracts(t *testing.T) (*aswap.Contract, *aswap.Contract) {
	t.Helper()
	_, commitment := swaptest.Secret("envelope")
	a, err := aswap.NewHTLC(aswap.HTLCParams{
		Owner:        swaptest.PubKey("alice"),
		Counterparty: swaptest.PubKey("bob"),
		Deadline:     256,
		Commitment:   commitment,
		Network:      swapkit.RegTest,
	})
	require.NoError(t, err)
	b, err := aswap.NewHTLC(aswap.HTLCParams{
		Owner:        swaptest.PubKey("bob"),
		Counterparty: swaptest.PubKey("alice"),
		Deadline:     128,
		Commitment:   commitment,
		Network:      swapkit.RegTest,
	})
	require.NoError(t, err)
	return a, b
}

func TestOfferRoundTrip(t *testing.T) {
	a, b := swapContracts(t)
	tx, op := swaptest.FundingTx("envelope", a.Script().PkScript(), 100000)
	require.NoError(t, a.MarkFunded(aswap.FundingRef{OutPoint: op, Output: tx.TxOut[0], Tx: tx}))

	spend := wire.NewMsgTx(2)
	spend.AddTxIn(wire.NewTxIn(&op, nil, nil))
	spend.AddTxOut(wire.NewTxOut(99000, b.Script().PkScript()))
	p, err := partial.New(spend)
	require.NoError(t, err)

	commitment, _ := a.Commitment()
	offer, err := NewOffer(swapkit.RegTest, commitment, []*aswap.Contract{a, b}, p)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, offer))
	require.NoError(t, WriteFrame(&buf, offer))

	for i := 0; i < 2; i++ {
		var got Offer
		require.NoError(t, ReadFrame(&buf, &got))
		assert.Equal(t, offer.String(), got.String())

		contracts, err := got.Contracts()
		require.NoError(t, err)
		require.Len(t, contracts, 2)
		assert.Equal(t, a.ID(), contracts[0].ID())
		assert.Equal(t, b.ID(), contracts[1].ID())
		params, ok := contracts[1].HTLC()
		assert.Equal(t, true, ok)
		assert.Equal(t, swapkit.LockTime(128), params.Deadline)

		funding, ok, err := got.FundingOutPoint(0)
		assert.Nil(t, err)
		assert.Equal(t, true, ok)
		assert.Equal(t, op, funding)
		_, ok, err = got.FundingOutPoint(1)
		assert.Nil(t, err)
		assert.Equal(t, false, ok)

		packet, ok, err := got.Packet()
		assert.Nil(t, err)
		assert.Equal(t, true, ok)
		assert.Equal(t, spend.TxHash(), packet.UnsignedTx().TxHash())
	}

	var empty Offer
	assert.Equal(t, io.EOF, ReadFrame(&buf, &empty))
}

func TestOfferWireFormat(t *testing.T) {
	o := &Offer{Version: 1, Network: "regtest"}
	raw, err := proto.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x08, 0x01, 0x12, 0x07}, "regtest"...), raw)

	var got Offer
	require.NoError(t, proto.Unmarshal(raw, &got))
	assert.Equal(t, uint32(1), got.Version)
	assert.Equal(t, "regtest", got.Network)
}

func TestOfferValidate(t *testing.T) {
	a, b := swapContracts(t)
	commitment, _ := a.Commitment()

	cases := map[string]struct {
		mutate func(*Offer)
		field  string
		want   *errors.Error
	}{
		"valid": {
			mutate: func(*Offer) {},
		},
		"future version": {
			mutate: func(o *Offer) { o.Version = 2 },
			field:  "Version",
			want:   errors.ErrInput,
		},
		"unknown network": {
			mutate: func(o *Offer) { o.Network = "signet" },
			field:  "Network",
			want:   errors.ErrInput,
		},
		"no descriptors": {
			mutate: func(o *Offer) { o.Descriptors = nil; o.Fundings = nil },
			field:  "Descriptors",
			want:   errors.ErrEmpty,
		},
		"short commitment": {
			mutate: func(o *Offer) { o.Commitment = o.Commitment[:31] },
			field:  "Commitment",
			want:   errors.ErrInput,
		},
		"fundings not matching descriptors": {
			mutate: func(o *Offer) { o.Fundings = o.Fundings[:1] },
			field:  "Fundings",
			want:   errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			o, err := NewOffer(swapkit.RegTest, commitment, []*aswap.Contract{a, b}, nil)
			require.NoError(t, err)
			tc.mutate(o)
			err = o.Validate()
			if tc.want == nil {
				assert.Nil(t, err)
				return
			}
			assert.FieldError(t, err, tc.field, tc.want)
		})
	}
}

func TestOfferCommitmentMismatch(t *testing.T) {
	a, b := swapContracts(t)
	_, other := swaptest.Secret("another session")
	o, err := NewOffer(swapkit.RegTest, other, []*aswap.Contract{a, b}, nil)
	require.NoError(t, err)
	_, err = o.Contracts()
	assert.IsErr(t, errors.ErrSecretMismatch, err)
}

func TestReadFrameLimits(t *testing.T) {
	cases := map[string][]byte{
		"truncated size":  {0, 0},
		"oversized frame": {0xff, 0xff, 0xff, 0xff},
		"truncated body":  {0, 0, 0, 9, 1, 2},
		"invalid message": {0, 0, 0, 2, 0xff, 0xff},
	}
	for testName, raw := range cases {
		t.Run(testName, func(t *testing.T) {
			var o Offer
			assert.IsErr(t, errors.ErrInput, ReadFrame(bytes.NewReader(raw), &o))
		})
	}
}
