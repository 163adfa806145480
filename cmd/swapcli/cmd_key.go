package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/iov-one/swapkit/crypto"
)

func cmdKeygen(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Generate a new secp256k1 private key.

When successful a new file with the hex encoded private key is created and
the compressed public key is written out. This command fails if the private
key file already exists.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", env("SWAPCLI_PRIV_KEY", DefaultConfig().KeyPath),
			"Path to the private key file. You can use SWAPCLI_PRIV_KEY environment variable to set it.")
	)
	fl.Parse(args)

	if _, err := os.Stat(*keyPathFl); !os.IsNotExist(err) {
		// Do not allow to overwrite already existing private key. User
		// must manually delete it first.
		return fmt.Errorf("private key file %q already exists, delete this file and try again", *keyPathFl)
	}

	key, err := crypto.GenPrivKey()
	if err != nil {
		return fmt.Errorf("cannot generate secp256k1 key: %s", err)
	}

	fd, err := os.OpenFile(*keyPathFl, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("cannot create private key file: %s", err)
	}
	defer fd.Close()

	if _, err := fmt.Fprintln(fd, hex.EncodeToString(key.Serialize())); err != nil {
		return fmt.Errorf("cannot write private key: %s", err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("cannot close private key file: %s", err)
	}
	_, err = fmt.Fprintln(output, hex.EncodeToString(key.PubKey().SerializeCompressed()))
	return err
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print out the hex encoded compressed public key of your private key. With
-segwit the pay to witness public key hash address is printed instead, to be
used as a change or recipient address.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", env("SWAPCLI_PRIV_KEY", ""),
			"Path to the private key file. You can use SWAPCLI_PRIV_KEY environment variable to set it. Defaults to the configured key.")
		segwitFl = fl.Bool("segwit", false, "Print the segwit address of the key.")
		settings = flSettings(fl)
	)
	fl.Parse(args)

	conf, net, err := settings.load()
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
	pub := key.PubKey().SerializeCompressed()
	if !*segwitFl {
		_, err = fmt.Fprintln(output, hex.EncodeToString(pub))
		return err
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub), net.Params())
	if err != nil {
		return fmt.Errorf("cannot derive address: %s", err)
	}
	_, err = fmt.Fprintln(output, addr.EncodeAddress())
	return err
}
