package aswap

import (
	"context"

	"github.com/iov-one/swapkit"
)

// IsExpired returns true if the refund branch of an HTLC is satisfiable at
// the chain tip declared in the context. A height deadline equal to the tip
// is expired; a time deadline expires once the median time passes it.
// Contracts without a deadline never expire.
//
// This function panics if the chain tip is not provided in the context. The
// panic is here to prevent a broken setup from processing data incorrectly.
func IsExpired(ctx context.Context, c *Contract) bool {
	tip, ok := swapkit.GetChainTip(ctx)
	if !ok {
		panic("chain tip is not present")
	}
	p, ok := c.HTLC()
	if !ok {
		return false
	}
	return tip.Reached(p.Deadline)
}
