/*
Package sigs signs and finalizes partial swap transactions.

Every input of a partial transaction names the branch it is spent through.
Sign adds the signatures of all branch keys found in a key source and the
preimages it knows. Inputs it cannot contribute to are left untouched, so a
transaction can travel between parties until each has signed.

Finalize builds the witness of every input from the collected data, extracts
the transaction and runs the script engine on each input.
*/
package sigs
