/*
Package assemble builds the unsigned transaction of a swap.

A transaction spends local inputs, contracts the party funded itself, and
foreign inputs, outputs locked by the counterparty whose funding evidence,
witness script and preimages are supplied by the caller. Every input is
spent through a single branch of its contract. The branch is taken from the
configured policy path or, when exactly one branch is satisfiable at the
current chain tip, inferred.

The result is a partial transaction that carries, per input, everything a
signer needs: the spent output, the witness script, the sighash type, the
selected branch and the supplied preimages.
*/
package assemble
