package policy

// Standardness limits of version 0 witness scripts and the complexity bounds
// of the compiler.
const (
	// MaxScriptSize is the largest standard witness script.
	MaxScriptSize = 3600

	// MaxOps is the largest number of non-push opcodes in a script.
	MaxOps = 201

	// MaxWitnessItems is the largest standard number of witness stack
	// items, not counting the witness script.
	MaxWitnessItems = 100

	// MaxDepth is the deepest allowed nesting of policy fragments.
	MaxDepth = 16

	// MaxBranches is the largest number of satisfaction paths a policy
	// may have.
	MaxBranches = 256

	// MaxSignatureSize is the size of a DER signature with the sighash
	// type byte appended, at its largest.
	MaxSignatureSize = 73

	// PreimageSize is the only preimage size accepted by a sha256
	// fragment.
	PreimageSize = 32
)
