/*
Package memledger is an in memory Ledger.

Unspent outputs are kept in a btree ordered by output script, so that all
outputs paying to an address are a single range. Broadcast transactions are
checked the way a node would: inputs must exist and be unspent, the lock
time must be final on top of the current tip and every input script must
execute. Use it in tests and for dry runs of a swap.
*/
package memledger
