/*
Package hashlock manages the shared secret of a swap session.

Both contracts of a session lock their reveal branch with the same sha256
digest, so publishing the preimage to claim one contract lets the other
party claim the second one. Only the digest is ever compiled into a script.
The preimage is held by a Coordinator and handed out only to the party
entitled to redeem.
*/
package hashlock
