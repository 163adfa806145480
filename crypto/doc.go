/*
Package crypto provides the secp256k1 keys used to lock and unlock swap
contracts, a keyring that signers look keys up in and the hash function
used for secret commitments.
*/
package crypto
