package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/x/sigs"
)

func cmdSign(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Sign given partial transaction. This is decoding a partial transaction from
standard input, adds a signature to every input whose branch requires your
key and writes the partial transaction back to standard output.

Inputs that cannot be signed with your key are left untouched so that the
other party can sign them in turn.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", env("SWAPCLI_PRIV_KEY", ""),
			"Path to the private key file that transaction should be signed with. You can use SWAPCLI_PRIV_KEY environment variable to set it. Defaults to the configured key.")
		preimageFl = flList(fl, "preimage", "Hex encoded preimage to add to inputs revealing it. Can be repeated.")
		settings   = flSettings(fl)
	)
	fl.Parse(args)

	conf, _, err := settings.load()
	if err != nil {
		return err
	}
	if *keyPathFl == "" {
		*keyPathFl = conf.KeyPath
	}
	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	preimages, err := parsePreimages(*preimageFl)
	if err != nil {
		return err
	}
	p, err := readPacket(input)
	if err != nil {
		return err
	}
	ctx, err := commandContext(conf, "sign")
	if err != nil {
		return err
	}
	signed, err := sigs.Sign(ctx, p, crypto.NewKeyring(key), preimages)
	if err != nil {
		return fmt.Errorf("cannot sign: %s", err)
	}
	return writePacket(output, signed)
}

func cmdCombine(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read base64 encoded partial transactions, one per line, from standard input
and merge them into one. All of them must spend and create the same outputs.
`)
		fl.PrintDefaults()
	}
	fl.Parse(args)

	packets, err := readPackets(input)
	if err != nil {
		return err
	}
	if len(packets) == 0 {
		return fmt.Errorf("no partial transaction given")
	}
	combined := packets[0]
	for i, p := range packets[1:] {
		if combined, err = partial.Combine(combined, p); err != nil {
			return fmt.Errorf("cannot combine partial transaction %d: %s", i+2, err)
		}
	}
	return writePacket(output, combined)
}

func cmdFinalize(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a fully signed partial transaction from standard input, build the
witness of every input, verify it and write the hex encoded transaction to
standard output.
`)
		fl.PrintDefaults()
	}
	var (
		settings = flSettings(fl)
	)
	fl.Parse(args)

	conf, _, err := settings.load()
	if err != nil {
		return err
	}
	p, err := readPacket(input)
	if err != nil {
		return err
	}
	ctx, err := commandContext(conf, "finalize")
	if err != nil {
		return err
	}
	tx, err := sigs.Finalize(ctx, p)
	if err != nil {
		return fmt.Errorf("cannot finalize: %s", err)
	}
	return writeRawTx(output, tx)
}
