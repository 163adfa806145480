package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/x/hashlock"
)

// readPacket reads a single partial transaction, base64 or binary encoded.
func readPacket(r io.Reader) (*partial.Tx, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %s", err)
	}
	p, err := partial.Decode(bytes.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("cannot decode partial transaction: %s", err)
	}
	return p, nil
}

// readPackets reads any number of base64 encoded partial transactions, one
// per line.
func readPackets(r io.Reader) ([]*partial.Tx, error) {
	var packets []*partial.Tx
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		p, err := partial.FromBase64(line)
		if err != nil {
			return nil, fmt.Errorf("cannot decode partial transaction %d: %s", len(packets)+1, err)
		}
		packets = append(packets, p)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("cannot read input: %s", err)
	}
	return packets, nil
}

// writePacket writes the partial transaction base64 encoded, followed by a
// new line.
func writePacket(w io.Writer, p *partial.Tx) error {
	s, err := p.B64()
	if err != nil {
		return fmt.Errorf("cannot encode partial transaction: %s", err)
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

// readRawTx reads a hex encoded network serialized transaction.
func readRawTx(r io.Reader) (*wire.MsgTx, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %s", err)
	}
	b, err := hex.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("transaction is not hex encoded: %s", err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("cannot deserialize transaction: %s", err)
	}
	return &tx, nil
}

func writeRawTx(w io.Writer, tx *wire.MsgTx) error {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return fmt.Errorf("cannot serialize transaction: %s", err)
	}
	_, err := fmt.Fprintln(w, hex.EncodeToString(buf.Bytes()))
	return err
}

// readKey reads a hex encoded private key file as written by keygen.
func readKey(path string) (*btcec.PrivateKey, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read private key file: %s", err)
	}
	key, err := crypto.ParsePrivKeyHex(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid private key file %q: %s", path, err)
	}
	return key, nil
}

// parsePreimages decodes hex encoded preimages.
func parsePreimages(values []string) (hashlock.Preimages, error) {
	preimages := make(hashlock.Preimages, len(values))
	for _, v := range values {
		raw, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("preimage is not hex encoded: %s", err)
		}
		p, err := hashlock.ParsePreimage(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid preimage: %s", err)
		}
		preimages.Add(p)
	}
	return preimages, nil
}

// readLines returns all non empty lines of the input.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("cannot read input: %s", err)
	}
	return lines, nil
}
