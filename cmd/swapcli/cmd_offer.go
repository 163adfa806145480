package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/iov-one/swapkit/envelope"
	"github.com/iov-one/swapkit/partial"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/aswap"
	"github.com/iov-one/swapkit/x/hashlock"
)

func cmdOffer(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Write a binary swap offer for the counterparty. The offer carries the
commitment and the descriptors of the contracts given as arguments. A
partial transaction read from standard input, if any, is attached.

	swapcli offer -commitment <hex> <descriptor>... < tx.psbt > offer.bin
`)
		fl.PrintDefaults()
	}
	var (
		commitmentFl = fl.String("commitment", "", "Hex encoded sha256 commitment of the swap. Required.")
		observeFl    = fl.Bool("observe", false, "Look up the funding of every contract on the ledger and include it.")
		settings     = flSettings(fl)
	)
	fl.Parse(args)

	conf, net, err := settings.load()
	if err != nil {
		return err
	}
	commitment, err := hashlock.ParseCommitment(*commitmentFl)
	if err != nil {
		return err
	}
	if fl.NArg() == 0 {
		flagDie("at least one descriptor is required")
	}

	contracts := make([]*aswap.Contract, 0, fl.NArg())
	for _, desc := range fl.Args() {
		cs, err := policy.ParseDescriptor(desc)
		if err != nil {
			return fmt.Errorf("invalid descriptor %q: %s", desc, err)
		}
		c, err := aswap.ContractFromScript(cs.Script(), net)
		if err != nil {
			return err
		}
		contracts = append(contracts, c)
	}

	if *observeFl {
		ctx, err := commandContext(conf, "offer")
		if err != nil {
			return err
		}
		ledger, closeLedger, err := dialLedger(conf, net)
		if err != nil {
			return fmt.Errorf("cannot connect to the ledger: %s", err)
		}
		defer closeLedger()
		for _, c := range contracts {
			if _, err := c.ObserveFunding(ctx, ledger); err != nil {
				return fmt.Errorf("cannot look up funding of %s: %s", c.ID(), err)
			}
		}
	}

	raw, err := ioutil.ReadAll(input)
	if err != nil {
		return fmt.Errorf("cannot read input: %s", err)
	}
	var p *partial.Tx
	if raw = bytes.TrimSpace(raw); len(raw) != 0 {
		if p, err = partial.Decode(raw); err != nil {
			return fmt.Errorf("cannot decode partial transaction: %s", err)
		}
	}

	offer, err := envelope.NewOffer(net, commitment, contracts, p)
	if err != nil {
		return fmt.Errorf("cannot create offer: %s", err)
	}
	return envelope.WriteFrame(output, offer)
}

func cmdAccept(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a binary swap offer from standard input, check that every contract
commits to the offer commitment and print the offer content.

With -observe every announced funding must be unspent on the ledger.
`)
		fl.PrintDefaults()
	}
	var (
		observeFl = fl.Bool("observe", false, "Check the announced fundings on the ledger.")
		settings  = flSettings(fl)
	)
	fl.Parse(args)

	conf, _, err := settings.load()
	if err != nil {
		return err
	}
	var offer envelope.Offer
	if err := envelope.ReadFrame(input, &offer); err != nil {
		return fmt.Errorf("cannot read offer: %s", err)
	}
	contracts, err := offer.Contracts()
	if err != nil {
		return fmt.Errorf("invalid offer: %s", err)
	}

	ctx, err := commandContext(conf, "accept")
	if err != nil {
		return err
	}
	var checkUnspent func(i int) error
	if *observeFl {
		ledger, closeLedger, err := dialLedger(conf, contracts[0].Network())
		if err != nil {
			return fmt.Errorf("cannot connect to the ledger: %s", err)
		}
		defer closeLedger()
		checkUnspent = func(i int) error {
			op, ok, err := offer.FundingOutPoint(i)
			if err != nil || !ok {
				return err
			}
			unspent, err := ledger.IsUnspent(ctx, op)
			if err != nil {
				return fmt.Errorf("cannot look up %s: %s", op, err)
			}
			if !unspent {
				return fmt.Errorf("funding %s of contract %s is spent", op, contracts[i].ID())
			}
			return nil
		}
	}

	fmt.Fprintf(output, "network\t%s\ncommitment\t%x\n", offer.Network, offer.Commitment)
	for i, c := range contracts {
		if checkUnspent != nil {
			if err := checkUnspent(i); err != nil {
				return err
			}
		}
		funding := "-"
		if op, ok, err := offer.FundingOutPoint(i); err != nil {
			return err
		} else if ok {
			funding = op.String()
		}
		fmt.Fprintf(output, "contract\t%s\t%s\t%s\n", c.ID(), c.Address(), funding)
		fmt.Fprintf(output, "descriptor\t%s\n", offer.Descriptors[i])
	}
	p, ok, err := offer.Packet()
	if err != nil {
		return fmt.Errorf("invalid partial transaction: %s", err)
	}
	if !ok {
		return nil
	}
	fmt.Fprint(output, "psbt\t")
	return writePacket(output, p)
}
