/*
Package swapkit defines the types shared by all swap components: lock times
and the chain tip they are compared against, the supported networks, the
ledger collaborator interface and the context helpers used to pass a logger
and the observed chain tip between components.

The components themselves live in subpackages:

	policy       compile spending policies into witness scripts
	x/hashlock   secret sessions and preimage custody
	x/aswap      swap contract state machine
	x/assemble   build partial transactions spending contracts
	x/sigs       sign, finalize and verify partial transactions
	partial      the BIP174 container exchanged between parties
	envelope     wire envelope for exchanging offers
	ledger/...   ledger implementations
*/
package swapkit
