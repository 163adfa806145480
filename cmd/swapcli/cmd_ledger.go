package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/aswap"
)

func cmdSubmit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a hex encoded transaction from standard input and submit it. The
transaction id is written out.
`)
		fl.PrintDefaults()
	}
	var (
		settings = flSettings(fl)
	)
	fl.Parse(args)

	conf, net, err := settings.load()
	if err != nil {
		return err
	}
	tx, err := readRawTx(input)
	if err != nil {
		return err
	}
	ctx, err := commandContext(conf, "submit")
	if err != nil {
		return err
	}
	ledger, closeLedger, err := dialLedger(conf, net)
	if err != nil {
		return fmt.Errorf("cannot connect to the ledger: %s", err)
	}
	defer closeLedger()

	txid, err := ledger.Broadcast(ctx, tx)
	if err != nil {
		return fmt.Errorf("cannot broadcast transaction: %s", err)
	}
	_, err = fmt.Fprintln(output, txid)
	return err
}

func cmdBalance(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read contract descriptors, one per line, from standard input and print the
value locked in each contract, in satoshi.
`)
		fl.PrintDefaults()
	}
	var (
		settings = flSettings(fl)
	)
	fl.Parse(args)

	conf, net, err := settings.load()
	if err != nil {
		return err
	}
	descriptors, err := readLines(input)
	if err != nil {
		return err
	}
	ctx, err := commandContext(conf, "balance")
	if err != nil {
		return err
	}
	ledger, closeLedger, err := dialLedger(conf, net)
	if err != nil {
		return fmt.Errorf("cannot connect to the ledger: %s", err)
	}
	defer closeLedger()

	for _, desc := range descriptors {
		cs, err := policy.ParseDescriptor(desc)
		if err != nil {
			return fmt.Errorf("invalid descriptor %q: %s", desc, err)
		}
		c, err := aswap.NewContract(cs, net)
		if err != nil {
			return err
		}
		balance, err := ledger.GetBalance(ctx, c.Address())
		if err != nil {
			return fmt.Errorf("cannot read balance of %s: %s", c.Address(), err)
		}
		if _, err := fmt.Fprintf(output, "%s\t%d\n", c.Address(), int64(balance)); err != nil {
			return err
		}
	}
	return nil
}
