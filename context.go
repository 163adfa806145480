package swapkit

import (
	"context"

	"github.com/tendermint/tendermint/libs/log"
)

// DefaultLogger is used for all context that have not set anything
// themselves.
var DefaultLogger = log.NewNopLogger()

type contextKey int

const (
	contextKeyLogger contextKey = iota
	contextKeyChainTip
)

// WithLogger returns a context that carries given logger.
func WithLogger(ctx context.Context, logger log.Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// GetLogger returns the logger carried by the context or DefaultLogger.
func GetLogger(ctx context.Context) log.Logger {
	if l, ok := ctx.Value(contextKeyLogger).(log.Logger); ok && l != nil {
		return l
	}
	return DefaultLogger
}

// WithLogInfo accepts keyvalue pairs, and returns another context like this,
// after passing all the keyvals to the Logger.
func WithLogInfo(ctx context.Context, keyvals ...interface{}) context.Context {
	return WithLogger(ctx, GetLogger(ctx).With(keyvals...))
}

// WithChainTip returns a context that carries the chain tip observed by the
// caller. Components that check timelocks read it from the context instead of
// querying a ledger themselves.
func WithChainTip(ctx context.Context, tip ChainTip) context.Context {
	return context.WithValue(ctx, contextKeyChainTip, tip)
}

// GetChainTip returns the chain tip carried by the context.
func GetChainTip(ctx context.Context) (ChainTip, bool) {
	tip, ok := ctx.Value(contextKeyChainTip).(ChainTip)
	return tip, ok
}
