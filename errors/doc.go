/*
Package errors implements the error model used across swapkit.

Every error returned by this module wraps one of the root errors declared in
this package. A root error carries a unique code; the code range decides the
error class (policy, sanity, contract state, secret, assembly, signature,
ledger). Callers test for a root error with Is and for the class with ClassOf.

To create an error instance use ErrXyz.New or ErrXyz.Newf, or wrap an existing
error with Wrap and Wrapf. A stack trace is attached at the innermost wrap
only, so do not declare package level variables with ErrXyz.New.

Once you have an error, you can use fmt to get more context

	%s is just the error message
	%+v is the full stack trace
*/
package errors
