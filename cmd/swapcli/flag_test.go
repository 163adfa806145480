package main

import (
	"flag"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/iov-one/swapkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyPath(t *testing.T) {
	ids := []string{"aa", "bb"}
	cases := map[string]struct {
		entries []string
		want    map[string]string
		wantErr bool
	}{
		"no path": {
			entries: nil,
			want:    map[string]string{},
		},
		"default for all": {
			entries: []string{"refund"},
			want:    map[string]string{"aa": "refund", "bb": "refund"},
		},
		"explicit wins over default": {
			entries: []string{"refund", "bb=reveal"},
			want:    map[string]string{"aa": "refund", "bb": "reveal"},
		},
		"branch policy containing parentheses": {
			entries: []string{"aa=and(pk(02),after(5))"},
			want:    map[string]string{"aa": "and(pk(02),after(5))"},
		},
		"two defaults": {
			entries: []string{"refund", "reveal"},
			wantErr: true,
		},
		"unknown contract": {
			entries: []string{"cc=refund"},
			wantErr: true,
		},
		"empty choice": {
			entries: []string{"aa="},
			wantErr: true,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := policyPath(tc.entries, ids)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSighash(t *testing.T) {
	cases := map[string]struct {
		want    txscript.SigHashType
		wantErr bool
	}{
		"all":               {want: txscript.SigHashAll},
		"single":            {want: txscript.SigHashSingle},
		"none|anyonecanpay": {want: txscript.SigHashNone | txscript.SigHashAnyOneCanPay},
		"all|anyone":        {wantErr: true},
		"default":           {wantErr: true},
		"":                  {wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := parseSighash(name)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseOutputs(t *testing.T) {
	addr := segwitAddress(t, "carol")

	outs, err := parseOutputs([]string{addr + "=5000"}, swapkit.RegTest)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, int64(5000), outs[0].Value)

	for _, bad := range []string{addr, addr + "=0", addr + "=x", "bc1qnotanaddress=10"} {
		_, err := parseOutputs([]string{bad}, swapkit.RegTest)
		assert.Error(t, err, bad)
	}

	_, err = parseOutputs([]string{addr + "=5000"}, swapkit.MainNet)
	assert.Error(t, err, "regtest address on mainnet")
}

func TestFlList(t *testing.T) {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	l := flList(fl, "x", "")
	b := flHex(fl, "h", "ff", "")
	require.NoError(t, fl.Parse([]string{"-x", "a", "-x", "b", "-h", "0011"}))
	assert.Equal(t, []string{"a", "b"}, *l)
	assert.Equal(t, []byte{0x00, 0x11}, *b)
}
