package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/policy"
	"github.com/iov-one/swapkit/x/aswap"
	"github.com/iov-one/swapkit/x/hashlock"
)

func cmdHTLC(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Create a hashed timelock contract and print its descriptor.

The owner funds the contract and can take the funds back once the deadline
is reached. The counterparty can claim the funds at any time by revealing
the preimage of the commitment.

A deadline below 500000000 is a block height, otherwise a unix time.
`)
		fl.PrintDefaults()
	}
	var (
		ownerFl        = flHex(fl, "owner", "", "Hex encoded compressed public key of the owner. Required.")
		counterpartyFl = flHex(fl, "counterparty", "", "Hex encoded compressed public key of the counterparty. Required.")
		deadlineFl     = fl.Uint("deadline", 0, "Block height or unix time of the refund deadline. Required.")
		commitmentFl   = fl.String("commitment", "", "Hex encoded sha256 commitment of the swap. Required.")
		settings       = flSettings(fl)
	)
	fl.Parse(args)

	_, net, err := settings.load()
	if err != nil {
		return err
	}
	commitment, err := hashlock.ParseCommitment(*commitmentFl)
	if err != nil {
		return err
	}
	contract, err := aswap.NewHTLC(aswap.HTLCParams{
		Owner:        *ownerFl,
		Counterparty: *counterpartyFl,
		Deadline:     swapkit.LockTime(*deadlineFl),
		Commitment:   commitment,
		Network:      net,
	})
	if err != nil {
		return fmt.Errorf("cannot create contract: %s", err)
	}
	_, err = fmt.Fprintln(output, contract.Script().Descriptor())
	return err
}

func cmdCompile(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a policy or a wsh(<policy>) descriptor from standard input, compile and
check it. Print the contract id, the witness script, the output script, the
address, the largest satisfaction weight and the descriptor.

	pk(<key>), after(<lock>), sha256(<digest>)
	and(a,b,...), or(a,b,...), thresh(k,a,b,...)
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
	raw, err := ioutil.ReadAll(input)
	if err != nil {
		return fmt.Errorf("cannot read input: %s", err)
	}
	cs, err := compile(string(raw))
	if err != nil {
		return err
	}
	addr, err := cs.Address(net)
	if err != nil {
		return err
	}
	weight, err := cs.MaxSatisfactionWeight()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(output, "id\t%s\nscript\t%s\npkscript\t%s\naddress\t%s\nweight\t%d\ndescriptor\t%s\n",
		cs.ID(),
		hex.EncodeToString(cs.Script()),
		hex.EncodeToString(cs.PkScript()),
		addr.EncodeAddress(),
		weight,
		cs.Descriptor())
	return err
}

// compile accepts a policy or a descriptor.
func compile(text string) (*policy.CompiledScript, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "wsh(") {
		return policy.ParseDescriptor(text)
	}
	e, err := policy.Parse(text)
	if err != nil {
		return nil, err
	}
	cs, err := policy.Compile(e)
	if err != nil {
		return nil, err
	}
	if err := policy.SanityCheck(cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func cmdAudit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a descriptor, or with -script a hex encoded witness script, from
standard input. Lift the script back into its policy and print every branch
that can spend it.

Use it to check a contract received from the counterparty before funding
your side of the swap.
`)
		fl.PrintDefaults()
	}
	var (
		scriptFl = fl.Bool("script", false, "Input is a hex encoded witness script.")
		heightFl = fl.Uint("height", 0, "When given, mark the branches satisfiable at this block height.")
		settings = flSettings(fl)
	)
	fl.Parse(args)

	_, net, err := settings.load()
	if err != nil {
		return err
	}
	raw, err := ioutil.ReadAll(input)
	if err != nil {
		return fmt.Errorf("cannot read input: %s", err)
	}
	var script []byte
	if *scriptFl {
		script, err = hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return fmt.Errorf("script is not hex encoded: %s", err)
		}
	} else {
		cs, err := policy.ParseDescriptor(string(raw))
		if err != nil {
			return err
		}
		script = cs.Script()
	}

	lifted, err := policy.Lift(script)
	if err != nil {
		return fmt.Errorf("cannot lift script: %s", err)
	}
	contract, err := aswap.ContractFromScript(script, net)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "policy\t%s\n", lifted)
	fmt.Fprintf(output, "address\t%s\n", contract.Address().EncodeAddress())
	if p, ok := contract.HTLC(); ok {
		fmt.Fprintf(output, "owner\t%s\n", hex.EncodeToString(p.Owner))
		fmt.Fprintf(output, "counterparty\t%s\n", hex.EncodeToString(p.Counterparty))
		fmt.Fprintf(output, "deadline\t%s\n", p.Deadline)
		fmt.Fprintf(output, "commitment\t%s\n", p.Commitment)
	}
	for _, b := range contract.Script().Branches() {
		tag := contract.Tag(b.Name)
		if tag == "" {
			tag = "-"
		}
		line := fmt.Sprintf("branch\t%d\t%s\t%s", b.Index, tag, b.Name)
		if *heightFl != 0 {
			tip := swapkit.ChainTip{Height: uint32(*heightFl)}
			line += fmt.Sprintf("\t%v", b.SatisfiableAt(tip))
		}
		if _, err := fmt.Fprintln(output, line); err != nil {
			return err
		}
	}
	return nil
}
