/*
Package policy compiles spending policies into version 0 witness scripts.

A policy is a tree of the fragments

	pk(<hex compressed key>)   a signature by the key
	after(<n>)                 an absolute lock, block height below 500000000
	sha256(<hex digest>)       a 32 byte preimage of the digest
	and(a,b,...)               all children
	or(a,b,...)                exactly one child, chosen by an explicit selector
	thresh(k,a,b,...)          exactly k of the children

Every alternative in the script is chosen by an explicit IF selector pushed
in the witness, so every satisfaction path (a Branch) has a fixed witness
layout. A compiled script must pass SanityCheck before an address or a weight
can be derived from it. Lift reverses Compile so that scripts received from a
counterparty can be inspected without trusting their description.
*/
package policy
