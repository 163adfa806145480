package bech32

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/iov-one/swapkit/errors"
)

func TestBench32EncodeDecode(t *testing.T) {
	// bech32  -e -h tiov 746573742d7061796c6f6164
	const enc = `tiov1w3jhxapdwpshjmr0v9jqymqq4y`

	want, err := hex.DecodeString("746573742d7061796c6f6164")
	if err != nil {
		t.Fatal(err)
	}

	hrp, payload, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(want, payload) {
		t.Logf("want %d", want)
		t.Logf("got  %d", payload)
		t.Fatal("invalid decode")
	}

	raw, err := Encode(hrp, payload)
	if err != nil {
		t.Fatalf("cannot encode: %s", err)
	}

	if string(raw) != enc {
		t.Fatalf("invalid encoding: %q", raw)
	}
}

func TestSegwit(t *testing.T) {
	program, err := hex.DecodeString("1863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262")
	if err != nil {
		t.Fatal(err)
	}
	const addr = "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7"

	got, err := EncodeSegwit("tb", program)
	if err != nil {
		t.Fatalf("cannot encode: %s", err)
	}
	if got != addr {
		t.Fatalf("want %q, got %q", addr, got)
	}

	cases := map[string]struct {
		hrp     string
		addr    string
		want    []byte
		wantErr *errors.Error
	}{
		"round trip": {
			hrp:  "tb",
			addr: addr,
			want: program,
		},
		"wrong network prefix": {
			hrp:     "bc",
			addr:    addr,
			wantErr: errors.ErrInput,
		},
		"broken checksum": {
			hrp:     "tb",
			addr:    addr[:len(addr)-1] + "8",
			wantErr: errors.ErrInput,
		},
		"not an address": {
			hrp:     "tb",
			addr:    "tb1",
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := DecodeSegwit(tc.hrp, tc.addr)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(tc.want, got) {
				t.Fatalf("want %x, got %x", tc.want, got)
			}
		})
	}
}
