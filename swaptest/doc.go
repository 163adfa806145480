// Package swaptest provides helpers for testing swap components:
// deterministic keys and secrets, funding transactions and an HTLC pair
// ready to be spent.
package swaptest
