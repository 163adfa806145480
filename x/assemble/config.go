package assemble

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
)

// Ordering decides the order of inputs and outputs.
type Ordering int

const (
	// Untouched keeps local inputs, then foreign inputs, in the order
	// given and the outputs as given followed by change.
	Untouched Ordering = iota + 1
	// Canonical sorts inputs and outputs as defined by BIP69.
	Canonical
)

func (o Ordering) String() string {
	switch o {
	case Untouched:
		return "untouched"
	case Canonical:
		return "canonical"
	default:
		return "unset"
	}
}

// ParseOrdering returns the ordering of given name.
func ParseOrdering(name string) (Ordering, error) {
	switch name {
	case "untouched":
		return Untouched, nil
	case "canonical":
		return Canonical, nil
	default:
		return 0, errors.Wrapf(errors.ErrInput, "unknown ordering %q", name)
	}
}

// Config controls how a transaction is assembled. Ordering, FeeRate,
// SighashType and Network have no defaults.
type Config struct {
	Ordering Ordering
	// PolicyPath maps a contract id to the tag or name of the branch it
	// is spent through.
	PolicyPath map[string]string
	// SingleRecipient receives all input value minus the fee. No other
	// output is allowed when it is set.
	SingleRecipient btcutil.Address
	// FeeRate is the fee per 1000 virtual bytes.
	FeeRate     btcutil.Amount
	SighashType txscript.SigHashType
	Network     swapkit.Network
	// ChangeAddress receives the remainder. It is required unless the
	// remainder is dust or a single recipient is set.
	ChangeAddress btcutil.Address
	// Ledger is optional. When set, foreign inputs are checked to be
	// unspent.
	Ledger swapkit.Ledger
}

// Validate returns all configuration problems, each attached to its field.
func (c Config) Validate() error {
	var errs error
	if c.Ordering != Untouched && c.Ordering != Canonical {
		errs = errors.AppendField(errs, "Ordering", errors.Wrap(errors.ErrEmpty, "must be explicit"))
	}
	switch {
	case c.FeeRate == 0:
		errs = errors.AppendField(errs, "FeeRate", errors.Wrap(errors.ErrEmpty, "must be explicit"))
	case c.FeeRate < txrules.DefaultRelayFeePerKb:
		errs = errors.AppendField(errs, "FeeRate", errors.Wrapf(errors.ErrInput, "below the relay fee of %s", txrules.DefaultRelayFeePerKb))
	}
	switch c.SighashType {
	case 0:
		errs = errors.AppendField(errs, "SighashType", errors.Wrap(errors.ErrEmpty, "must be explicit"))
	case txscript.SigHashAll, txscript.SigHashNone, txscript.SigHashSingle,
		txscript.SigHashAll | txscript.SigHashAnyOneCanPay,
		txscript.SigHashNone | txscript.SigHashAnyOneCanPay,
		txscript.SigHashSingle | txscript.SigHashAnyOneCanPay:
	default:
		errs = errors.AppendField(errs, "SighashType", errors.Wrapf(errors.ErrInput, "unknown type %#x", uint32(c.SighashType)))
	}
	errs = errors.AppendField(errs, "Network", c.Network.Validate())
	if err := c.Network.Validate(); err == nil {
		errs = errors.AppendField(errs, "SingleRecipient", checkAddress(c.SingleRecipient, c.Network))
		errs = errors.AppendField(errs, "ChangeAddress", checkAddress(c.ChangeAddress, c.Network))
	}
	return errs
}

func checkAddress(addr btcutil.Address, net swapkit.Network) error {
	if addr == nil {
		return nil
	}
	if !addr.IsForNet(net.Params()) {
		return errors.Wrapf(errors.ErrInput, "%s is not a %s address", addr, net)
	}
	return nil
}
