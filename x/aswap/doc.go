/*
Package aswap implements the contract side of an atomic swap.

Each party locks its funds in an output paying to a witness script. A hashed
timelock contract (HTLC) has two branches: the owner takes the funds back
after a deadline (refund), or the counterparty takes them by revealing the
preimage of a commitment (reveal). Both contracts of a swap commit to the same
secret, so revealing it to claim one contract discloses it for the other.

The algorithm is as follows:
1. The redeemer generates a preimage and keeps it secret.
2. Both parties build an HTLC with the sha256 hash of the preimage, the
redeemer's contract having the later deadline.
3. Each party funds its contract. A Contract moves from Compiled to Funded
once the funding output is observed on the ledger.
4. The redeemer spends the counterparty's contract through the reveal branch,
publishing the preimage.
5. The counterparty extracts the preimage from that spend and claims the
redeemer's contract the same way.
6. A contract that was not claimed before its deadline is refunded.

A spent contract is terminal. State only moves forward.
*/
package aswap
