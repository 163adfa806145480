package swapkit

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/iov-one/swapkit/errors"
)

// Network names a chain. Each network has a distinct bech32 prefix so that an
// address never decodes on a different network.
type Network string

const (
	MainNet Network = "mainnet"
	TestNet Network = "testnet"
	RegTest Network = "regtest"
	SimNet  Network = "simnet"
)

var networkParams = map[Network]*chaincfg.Params{
	MainNet: &chaincfg.MainNetParams,
	TestNet: &chaincfg.TestNet3Params,
	RegTest: &chaincfg.RegressionNetParams,
	SimNet:  &chaincfg.SimNetParams,
}

// ParseNetwork returns the network with given name.
func ParseNetwork(name string) (Network, error) {
	n := Network(name)
	if err := n.Validate(); err != nil {
		return "", err
	}
	return n, nil
}

// Validate returns an error if this network is not supported.
func (n Network) Validate() error {
	if _, ok := networkParams[n]; !ok {
		return errors.Wrapf(errors.ErrInput, "unknown network %q", string(n))
	}
	return nil
}

// Params returns the chain parameters of this network. It panics for an
// unsupported network, so call Validate first on untrusted values.
func (n Network) Params() *chaincfg.Params {
	p, ok := networkParams[n]
	if !ok {
		panic("unknown network " + string(n))
	}
	return p
}

// HRP returns the bech32 human readable part used for segwit addresses.
func (n Network) HRP() string {
	return n.Params().Bech32HRPSegwit
}
