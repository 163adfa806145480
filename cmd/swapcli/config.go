package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/ledger/instrumented"
	"github.com/iov-one/swapkit/ledger/rpcledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

// Config is the content of the optional configuration file. Command line
// flags take precedence over it.
//
//	network = "regtest"
//	fee_rate = 2000
//	key = "/home/alice/.swapcli.key"
//	log_level = "info"
//
//	[rpc]
//	host = "localhost:18443"
//	user = "alice"
//	pass = "secret"
//	disable_tls = true
type Config struct {
	Network string `toml:"network"`
	// FeeRate is in satoshi per 1000 bytes of virtual size.
	FeeRate  int64            `toml:"fee_rate"`
	KeyPath  string           `toml:"key"`
	LogLevel string           `toml:"log_level"`
	RPC      rpcledger.Config `toml:"rpc"`
}

// DefaultConfig is used when no configuration file is given.
func DefaultConfig() Config {
	return Config{
		Network:  string(swapkit.RegTest),
		FeeRate:  int64(txrules.DefaultRelayFeePerKb) * 2,
		KeyPath:  os.Getenv("HOME") + "/.swapcli.key",
		LogLevel: "info",
	}
}

// loadConfig reads the configuration file at given path on top of the
// defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}
	md, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return conf, fmt.Errorf("cannot read configuration %q: %s", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return conf, fmt.Errorf("unknown configuration keys in %q: %v", path, keys)
	}
	return conf, nil
}

// settings are the flags shared by all commands that read the
// configuration.
type settings struct {
	config  *string
	network *string
}

func flSettings(fl *flag.FlagSet) *settings {
	return &settings{
		config: fl.String("config", env("SWAPCLI_CONFIG", ""),
			"Path to the TOML configuration file. You can use SWAPCLI_CONFIG environment variable to set it."),
		network: fl.String("network", env("SWAPCLI_NETWORK", ""),
			"Network name: mainnet, testnet, regtest or simnet. Overrides the configuration. You can use SWAPCLI_NETWORK environment variable to set it."),
	}
}

// load returns the configuration with the network flag applied.
func (s *settings) load() (Config, swapkit.Network, error) {
	conf, err := loadConfig(*s.config)
	if err != nil {
		return conf, "", err
	}
	if *s.network != "" {
		conf.Network = *s.network
	}
	net, err := swapkit.ParseNetwork(conf.Network)
	if err != nil {
		return conf, "", fmt.Errorf("invalid network: %s", err)
	}
	return conf, net, nil
}

// feeRate returns given rate or the configured one.
func (c Config) feeRate(flagValue int64) btcutil.Amount {
	if flagValue != 0 {
		return btcutil.Amount(flagValue)
	}
	return btcutil.Amount(c.FeeRate)
}

// logOutput is where all commands log to.
var logOutput io.Writer = os.Stderr

// newLogger returns a logger writing to logOutput at given level.
func newLogger(level string) (log.Logger, error) {
	if level == "" {
		level = "info"
	}
	allowed, err := log.AllowLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewFilter(log.NewTMLogger(log.NewSyncWriter(logOutput)), allowed), nil
}

// commandContext returns a context carrying the configured logger.
func commandContext(conf Config, command string) (context.Context, error) {
	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s", err)
	}
	return swapkit.WithLogger(context.Background(), logger.With("cmd", command)), nil
}

// dialLedger connects to the ledger described by the configuration. The
// returned function releases the connection.
var dialLedger = func(conf Config, net swapkit.Network) (swapkit.Ledger, func(), error) {
	l, err := rpcledger.Dial(conf.RPC, net)
	if err != nil {
		return nil, nil, err
	}
	metrics := instrumented.NewMetrics(prometheus.NewRegistry())
	return instrumented.New(l, metrics), l.Close, nil
}
