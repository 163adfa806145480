/*
Package rpcledger implements the swapkit ledger on top of the JSON-RPC
interface of a bitcoind or btcd node with wallet support.

Unspent outputs are listed through the node wallet, so contract addresses
must be watched by it, for example with importaddress. Every backend
failure is returned as ErrLedger. The node error, such as a *btcjson.RPCError
with its code, stays reachable with errors.As.
*/
package rpcledger
