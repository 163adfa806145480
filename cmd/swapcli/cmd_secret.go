package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/x/hashlock"
)

func cmdSecret(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Create the secret of a new swap session and print its commitment and
preimage, one per line.

The preimage is random unless a seed is given. The same seed and index always
produce the same secret. Keep the preimage private until you claim the
counterparty's contract.
`)
		fl.PrintDefaults()
	}
	var (
		redeemerFl = flHex(fl, "redeemer", "", "Hex encoded compressed public key of the party redeeming with the preimage. Required.")
		seedFl     = flHex(fl, "seed", env("SWAPCLI_SEED", ""), "Hex encoded seed for deterministic secrets. You can use SWAPCLI_SEED environment variable to set it.")
		indexFl    = fl.Uint("index", 0, "Index of the session derived from the seed.")
	)
	fl.Parse(args)

	if len(*redeemerFl) == 0 {
		flagDie("redeemer is required")
	}
	if _, err := crypto.ParsePubKey(*redeemerFl); err != nil {
		return fmt.Errorf("invalid redeemer: %s", err)
	}

	var (
		c       = hashlock.NewCoordinator()
		session hashlock.Session
		err     error
	)
	if len(*seedFl) != 0 {
		c, err = hashlock.NewDeterministicCoordinator(*seedFl)
		if err != nil {
			return fmt.Errorf("invalid seed: %s", err)
		}
		session, err = c.Derive(uint32(*indexFl), *redeemerFl)
	} else {
		session, err = c.NewSession(*redeemerFl)
	}
	if err != nil {
		return fmt.Errorf("cannot create session: %s", err)
	}
	preimage, err := c.Reveal(session.Commitment, *redeemerFl)
	if err != nil {
		return fmt.Errorf("cannot reveal preimage: %s", err)
	}
	_, err = fmt.Fprintf(output, "commitment\t%s\npreimage\t%s\n", session.Commitment, preimage)
	return err
}

func cmdExtract(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a hex encoded transaction from standard input and print the preimage of
given commitment revealed by any of its input witnesses.

Use it on the counterparty's claim to learn the preimage needed to claim
your side of the swap.
`)
		fl.PrintDefaults()
	}
	var (
		commitmentFl = fl.String("commitment", "", "Hex encoded sha256 commitment of the swap. Required.")
	)
	fl.Parse(args)

	if *commitmentFl == "" {
		flagDie("commitment is required")
	}
	commitment, err := hashlock.ParseCommitment(*commitmentFl)
	if err != nil {
		return err
	}
	tx, err := readRawTx(input)
	if err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		p, err := hashlock.ExtractPreimage(in.Witness, commitment)
		if err != nil {
			continue
		}
		_, err = fmt.Fprintln(output, p)
		return err
	}
	return fmt.Errorf("transaction %s reveals no preimage of %s", tx.TxHash(), commitment)
}
