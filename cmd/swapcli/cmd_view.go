package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/btcsuite/btcd/txscript"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/partial"
)

func cmdView(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a partial transaction from standard input and print it in a human
readable form.
`)
		fl.PrintDefaults()
	}
	var (
		settings = flSettings(fl)
	)
	fl.Parse(args)

	_, net, err := settings.load()
	if err != nil {
		return err
	}
	p, err := readPacket(input)
	if err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(describe(p, net), "", "\t")
	if err != nil {
		return fmt.Errorf("cannot JSON serialize: %s", err)
	}
	_, err = output.Write(pretty)
	return err
}

type packetView struct {
	TxID     string       `json:"txid"`
	LockTime uint32       `json:"locktime"`
	Fee      int64        `json:"fee,omitempty"`
	Complete bool         `json:"complete"`
	Inputs   []inputView  `json:"inputs"`
	Outputs  []outputView `json:"outputs"`
}

type inputView struct {
	OutPoint  string `json:"outpoint"`
	Value     int64  `json:"value,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Sighash   string `json:"sighash,omitempty"`
	Finalized bool   `json:"finalized"`
	// Signers are the hex encoded public keys that signed.
	Signers []string `json:"signers,omitempty"`
	// Preimages are the hex encoded digests a preimage is attached for.
	Preimages []string `json:"preimages,omitempty"`
}

type outputView struct {
	Address string `json:"address,omitempty"`
	Script  string `json:"script,omitempty"`
	Value   int64  `json:"value"`
}

func describe(p *partial.Tx, net swapkit.Network) packetView {
	tx := p.UnsignedTx()
	v := packetView{
		TxID:     tx.TxHash().String(),
		LockTime: tx.LockTime,
		Complete: p.IsComplete(),
	}
	if fee, err := p.Fee(); err == nil {
		v.Fee = int64(fee)
	}
	for i, in := range tx.TxIn {
		iv := inputView{
			OutPoint:  in.PreviousOutPoint.String(),
			Finalized: p.Finalized(i),
		}
		if utxo, err := p.WitnessUtxo(i); err == nil {
			iv.Value = utxo.Value
		}
		iv.Branch, _ = p.Branch(i)
		if ht, ok := p.SighashType(i); ok {
			iv.Sighash = fmt.Sprintf("%#x", uint32(ht))
		}
		for pub := range p.Signatures(i) {
			iv.Signers = append(iv.Signers, hex.EncodeToString([]byte(pub)))
		}
		sort.Strings(iv.Signers)
		for digest := range p.Preimages(i) {
			iv.Preimages = append(iv.Preimages, hex.EncodeToString(digest[:]))
		}
		sort.Strings(iv.Preimages)
		v.Inputs = append(v.Inputs, iv)
	}
	for _, out := range tx.TxOut {
		ov := outputView{Value: out.Value}
		_, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, net.Params())
		if err == nil && len(addrs) == 1 {
			ov.Address = addrs[0].EncodeAddress()
		} else {
			ov.Script = hex.EncodeToString(out.PkScript)
		}
		v.Outputs = append(v.Outputs, ov)
	}
	return v
}
