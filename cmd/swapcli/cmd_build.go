package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/assemble"
	"github.com/iov-one/swapkit/x/aswap"
)

func cmdBuild(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Build an unsigned partial transaction spending funded contracts and write it
base64 encoded to standard output.

Local contracts are the ones you hold a key of. Foreign contracts are locked
by the counterparty and need their preimages attached. Funding of every
contract is looked up on the ledger.

Every spent contract needs exactly one branch. Use -path refund or
-path reveal to choose the branch of all contracts, or -path <id>=<branch>
for a single one. A branch is a tag or the full branch policy.

Outputs are given with -pay <address>=<satoshi>. Use -drain <address> to send
everything to a single recipient instead.

Input and output ordering (-ordering) and the signature hash type (-sighash)
have no default and must always be given.
`)
		fl.PrintDefaults()
	}
	var (
		localFl    = flList(fl, "local", "Descriptor of a local contract. Can be repeated.")
		foreignFl  = flList(fl, "foreign", "Descriptor of a foreign contract. Can be repeated.")
		preimageFl = flList(fl, "preimage", "Hex encoded preimage attached to foreign inputs. Can be repeated.")
		pathFl     = flList(fl, "path", "Branch to spend through, as <branch> or <contract id>=<branch>. Can be repeated.")
		payFl      = flList(fl, "pay", "Output as <address>=<satoshi>. Can be repeated.")
		drainFl    = fl.String("drain", "", "Send all input value minus the fee to this address.")
		changeFl   = fl.String("change", "", "Address receiving the change.")
		feeRateFl  = fl.Int64("fee-rate", 0, "Fee in satoshi per 1000 virtual bytes. Defaults to the configured rate.")
		orderingFl = fl.String("ordering", "", "Required. Order of inputs and outputs: untouched or canonical.")
		sighashFl  = fl.String("sighash", "", "Required. Signature hash type of every input: all, none or single, with an optional |anyonecanpay suffix.")
		settings   = flSettings(fl)
	)
	fl.Parse(args)

	conf, net, err := settings.load()
	if err != nil {
		return err
	}
	if *orderingFl == "" {
		return errors.Field("ordering", errors.ErrEmpty, "flag is required")
	}
	if *sighashFl == "" {
		return errors.Field("sighash", errors.ErrEmpty, "flag is required")
	}
	ordering, err := assemble.ParseOrdering(*orderingFl)
	if err != nil {
		return err
	}
	sighash, err := parseSighash(*sighashFl)
	if err != nil {
		return err
	}
	preimages, err := parsePreimages(*preimageFl)
	if err != nil {
		return err
	}
	outputs, err := parseOutputs(*payFl, net)
	if err != nil {
		return err
	}
	cfg := assemble.Config{
		Ordering:    ordering,
		FeeRate:     conf.feeRate(*feeRateFl),
		SighashType: sighash,
		Network:     net,
	}
	if *drainFl != "" {
		if cfg.SingleRecipient, err = decodeAddress(*drainFl, net); err != nil {
			return err
		}
	}
	if *changeFl != "" {
		if cfg.ChangeAddress, err = decodeAddress(*changeFl, net); err != nil {
			return err
		}
	}

	ctx, err := commandContext(conf, "build")
	if err != nil {
		return err
	}
	ledger, closeLedger, err := dialLedger(conf, net)
	if err != nil {
		return fmt.Errorf("cannot connect to the ledger: %s", err)
	}
	defer closeLedger()
	cfg.Ledger = ledger

	tip, err := ledger.Tip(ctx)
	if err != nil {
		return fmt.Errorf("cannot read chain tip: %s", err)
	}
	ctx = swapkit.WithChainTip(ctx, tip)

	var (
		ids     []string
		local   []assemble.LocalInput
		foreign []assemble.ForeignInput
	)
	for _, desc := range *localFl {
		c, err := fundedContract(ctx, ledger, desc, net)
		if err != nil {
			return err
		}
		ids = append(ids, c.ID())
		local = append(local, assemble.LocalInput{Contract: c})
	}
	for _, desc := range *foreignFl {
		c, err := fundedContract(ctx, ledger, desc, net)
		if err != nil {
			return err
		}
		funding, _ := c.Funding()
		ids = append(ids, c.ID())
		foreign = append(foreign, assemble.ForeignInput{
			Funding:       funding,
			WitnessScript: c.Script().Script(),
			Preimages:     preimages,
		})
	}
	if cfg.PolicyPath, err = policyPath(*pathFl, ids); err != nil {
		return err
	}

	p, err := assemble.Build(ctx, cfg, local, foreign, outputs)
	if err != nil {
		return fmt.Errorf("cannot build transaction: %s", err)
	}
	return writePacket(output, p)
}

// fundedContract rebuilds the contract of a descriptor and looks up its
// funding on the ledger.
func fundedContract(ctx context.Context, l swapkit.Ledger, desc string, net swapkit.Network) (*aswap.Contract, error) {
	cs, err := policy.ParseDescriptor(desc)
	if err != nil {
		return nil, fmt.Errorf("invalid descriptor %q: %s", desc, err)
	}
	c, err := aswap.ContractFromScript(cs.Script(), net)
	if err != nil {
		return nil, err
	}
	funded, err := c.ObserveFunding(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("cannot look up funding of %s: %s", c.ID(), err)
	}
	if !funded {
		return nil, fmt.Errorf("contract %s at %s is not funded", c.ID(), c.Address())
	}
	return c, nil
}

func decodeAddress(s string, net swapkit.Network) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(s, net.Params())
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %s", s, err)
	}
	if !addr.IsForNet(net.Params()) {
		return nil, fmt.Errorf("address %q is not a %s address", s, net)
	}
	return addr, nil
}

// parseOutputs reads <address>=<satoshi> entries.
func parseOutputs(entries []string, net swapkit.Network) ([]*wire.TxOut, error) {
	outputs := make([]*wire.TxOut, 0, len(entries))
	for _, e := range entries {
		i := strings.LastIndexByte(e, '=')
		if i < 0 {
			return nil, fmt.Errorf("invalid output %q, want <address>=<satoshi>", e)
		}
		addr, err := decodeAddress(e[:i], net)
		if err != nil {
			return nil, err
		}
		value, err := strconv.ParseInt(e[i+1:], 10, 64)
		if err != nil || value <= 0 {
			return nil, fmt.Errorf("invalid output value %q", e[i+1:])
		}
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, fmt.Errorf("cannot pay to %s: %s", addr, err)
		}
		outputs = append(outputs, wire.NewTxOut(value, pkScript))
	}
	return outputs, nil
}

var sighashTypes = map[string]txscript.SigHashType{
	"all":    txscript.SigHashAll,
	"none":   txscript.SigHashNone,
	"single": txscript.SigHashSingle,
}

func parseSighash(name string) (txscript.SigHashType, error) {
	base, anyone := name, false
	if i := strings.IndexByte(name, '|'); i >= 0 {
		if name[i+1:] != "anyonecanpay" {
			return 0, fmt.Errorf("unknown signature hash modifier %q", name[i+1:])
		}
		base, anyone = name[:i], true
	}
	ht, ok := sighashTypes[base]
	if !ok {
		return 0, fmt.Errorf("unknown signature hash type %q", base)
	}
	if anyone {
		ht |= txscript.SigHashAnyOneCanPay
	}
	return ht, nil
}
