/*
Package partial holds the transaction shared between the parties of a swap
while it is being assembled and signed.

The container is a BIP174 partially signed transaction. Every input carries
its funding transaction, witness output and witness script, the sighash
type its signatures commit to, the partial signatures collected so far and
the sha256 preimages the selected branch reveals (PSBT_IN_SHA256). The
selected branch is stored in a proprietary input field so that each party
builds the same witness.

Serialization is lossless: a packet decoded, signed by the second party and
encoded again keeps everything the first party put into it.
*/
package partial
