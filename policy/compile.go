package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/errors"
)

// CompiledScript is the result of compiling a policy. It is immutable except
// for the soundness flag that SanityCheck sets once.
type CompiledScript struct {
	expr     *Expr
	script   []byte
	program  [32]byte
	branches []Branch
	depth    int
	ops      int

	sound atomic.Bool
}

// Compile translates a policy into a witness script. The result cannot be
// used to derive an address or a weight before SanityCheck accepts it.
func Compile(e *Expr) (*CompiledScript, error) {
	if e == nil {
		return nil, errors.Wrap(errors.ErrPolicySyntax, "empty policy")
	}
	depth, err := validate(e, 1, false)
	if err != nil {
		return nil, err
	}
	if n := countBranches(e); n > MaxBranches {
		return nil, errors.Wrapf(errors.ErrPolicyTooComplex, "more than %d branches", MaxBranches)
	}

	paths := enumerate(e)
	branches := make([]Branch, 0, len(paths))
	for i, p := range paths {
		b, err := p.branch(i)
		if err != nil {
			return nil, err
		}
		if len(b.Witness) > MaxWitnessItems {
			return nil, errors.Wrapf(errors.ErrResourceLimit,
				"branch %s requires %d witness items, max %d", b.Name, len(b.Witness), MaxWitnessItems)
		}
		branches = append(branches, b)
	}

	builder := txscript.NewScriptBuilder()
	emit(builder, e, false)
	script, err := builder.Script()
	if err != nil {
		return nil, errors.Wrap(errors.ErrResourceLimit, err.Error())
	}
	if len(script) > MaxScriptSize {
		return nil, errors.Wrapf(errors.ErrResourceLimit, "script is %d bytes, max %d", len(script), MaxScriptSize)
	}
	ops, err := countOps(script)
	if err != nil {
		return nil, err
	}
	if ops > MaxOps {
		return nil, errors.Wrapf(errors.ErrResourceLimit, "script has %d opcodes, max %d", ops, MaxOps)
	}

	return &CompiledScript{
		expr:     e,
		script:   script,
		program:  sha256.Sum256(script),
		branches: branches,
		depth:    depth,
		ops:      ops,
	}, nil
}

// validate checks the arguments of every fragment and returns the depth of
// the expression tree.
func validate(e *Expr, depth int, inThresh bool) (int, error) {
	if e == nil {
		return 0, errors.Wrap(errors.ErrPolicySyntax, "empty subexpression")
	}
	if depth > MaxDepth {
		return 0, errors.Wrapf(errors.ErrPolicyTooComplex, "nesting deeper than %d", MaxDepth)
	}
	switch e.kind {
	case KindKey:
		if _, err := crypto.ParsePubKey(e.key); err != nil {
			return 0, errors.Wrap(errors.ErrPolicySyntax, err.Error())
		}
		return depth, nil
	case KindAfter:
		if err := e.lock.Validate(); err != nil {
			return 0, errors.Wrap(errors.ErrPolicySyntax, err.Error())
		}
		return depth, nil
	case KindSHA256:
		return depth, nil
	case KindAnd, KindOr, KindThresh:
		if len(e.subs) < 2 {
			return 0, errors.Wrapf(errors.ErrPolicySyntax, "%s requires at least two arguments", e.kind)
		}
		if e.kind == KindThresh {
			if inThresh {
				return 0, errors.Wrap(errors.ErrPolicyTooComplex, "thresh nested in thresh")
			}
			if e.k < 1 || e.k > len(e.subs) {
				return 0, errors.Wrapf(errors.ErrPolicySyntax, "threshold %d out of range [1, %d]", e.k, len(e.subs))
			}
		}
		max := depth
		for _, s := range e.subs {
			d, err := validate(s, depth+1, inThresh || e.kind == KindThresh)
			if err != nil {
				return 0, err
			}
			if d > max {
				max = d
			}
		}
		return max, nil
	default:
		return 0, errors.Wrapf(errors.ErrPolicySyntax, "unknown fragment %s", e.kind)
	}
}

// countBranches returns the number of satisfaction paths, saturating just
// above MaxBranches so that wide policies are rejected before enumeration.
func countBranches(e *Expr) int {
	const limit = MaxBranches + 1
	switch e.kind {
	case KindAnd:
		n := 1
		for _, s := range e.subs {
			n = capMul(n, countBranches(s), limit)
		}
		return n
	case KindOr:
		n := 0
		for _, s := range e.subs {
			n = min(n+countBranches(s), limit)
		}
		return n
	case KindThresh:
		// ways[j] is the number of paths satisfying exactly j of the
		// children seen so far.
		ways := make([]int, e.k+1)
		ways[0] = 1
		for _, s := range e.subs {
			c := countBranches(s)
			for j := e.k; j >= 1; j-- {
				ways[j] = min(ways[j]+capMul(ways[j-1], c, limit), limit)
			}
		}
		return ways[e.k]
	default:
		return 1
	}
}

func capMul(a, b, limit int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > limit/b {
		return limit
	}
	return min(a*b, limit)
}

// emit writes the script of given expression. A verify form leaves nothing
// on the stack, the other form leaves a single boolean.
func emit(b *txscript.ScriptBuilder, e *Expr, verify bool) {
	switch e.kind {
	case KindKey:
		b.AddData(e.key)
		b.AddOp(pick(verify, txscript.OP_CHECKSIGVERIFY, txscript.OP_CHECKSIG))
	case KindAfter:
		b.AddInt64(int64(e.lock))
		b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
		if verify {
			b.AddOp(txscript.OP_DROP)
		}
	case KindSHA256:
		b.AddOp(txscript.OP_SIZE)
		b.AddInt64(PreimageSize)
		b.AddOp(txscript.OP_EQUALVERIFY)
		b.AddOp(txscript.OP_SHA256)
		b.AddData(e.hash[:])
		b.AddOp(pick(verify, txscript.OP_EQUALVERIFY, txscript.OP_EQUAL))
	case KindAnd:
		last := len(e.subs) - 1
		for i, s := range e.subs {
			emit(b, s, verify || i < last)
		}
	case KindOr:
		emitOr(b, e.subs, verify)
	case KindThresh:
		for j, s := range e.subs {
			b.AddOp(txscript.OP_IF)
			emit(b, s, true)
			b.AddOp(txscript.OP_1)
			b.AddOp(txscript.OP_ELSE)
			b.AddOp(txscript.OP_0)
			b.AddOp(txscript.OP_ENDIF)
			if j > 0 {
				b.AddOp(txscript.OP_FROMALTSTACK)
				b.AddOp(txscript.OP_ADD)
			}
			b.AddOp(txscript.OP_TOALTSTACK)
		}
		b.AddOp(txscript.OP_FROMALTSTACK)
		b.AddInt64(int64(e.k))
		b.AddOp(pick(verify, txscript.OP_EQUALVERIFY, txscript.OP_EQUAL))
	}
}

func emitOr(b *txscript.ScriptBuilder, subs []*Expr, verify bool) {
	b.AddOp(txscript.OP_IF)
	emit(b, subs[0], verify)
	b.AddOp(txscript.OP_ELSE)
	if len(subs) == 2 {
		emit(b, subs[1], verify)
	} else {
		emitOr(b, subs[1:], verify)
	}
	b.AddOp(txscript.OP_ENDIF)
}

func pick(verify bool, v, b byte) byte {
	if verify {
		return v
	}
	return b
}

func countOps(script []byte) (int, error) {
	n := 0
	tok := txscript.MakeScriptTokenizer(0, script)
	for tok.Next() {
		if tok.Opcode() > txscript.OP_16 {
			n++
		}
	}
	if err := tok.Err(); err != nil {
		return 0, errors.Wrap(errors.ErrPolicySyntax, err.Error())
	}
	return n, nil
}

// Policy returns the compiled policy.
func (cs *CompiledScript) Policy() *Expr { return cs.expr }

// Script returns the witness script.
func (cs *CompiledScript) Script() []byte { return append([]byte(nil), cs.script...) }

// WitnessProgram returns the sha256 digest of the witness script.
func (cs *CompiledScript) WitnessProgram() []byte { return append([]byte(nil), cs.program[:]...) }

// ID returns the hex encoded witness program. It identifies the script.
func (cs *CompiledScript) ID() string { return hex.EncodeToString(cs.program[:]) }

// PkScript returns the output script paying to the witness program.
func (cs *CompiledScript) PkScript() []byte {
	return append([]byte{txscript.OP_0, txscript.OP_DATA_32}, cs.program[:]...)
}

// Depth returns the nesting depth of the compiled policy.
func (cs *CompiledScript) Depth() int { return cs.depth }

// OpCount returns the number of non-push opcodes of the script.
func (cs *CompiledScript) OpCount() int { return cs.ops }

// Branches returns all satisfaction paths in their stable order.
func (cs *CompiledScript) Branches() []Branch {
	out := make([]Branch, len(cs.branches))
	copy(out, cs.branches)
	return out
}

// Branch returns the satisfaction path with given name.
func (cs *CompiledScript) Branch(name string) (Branch, error) {
	for _, b := range cs.branches {
		if b.Name == name {
			return b, nil
		}
	}
	return Branch{}, errors.Wrapf(errors.ErrNotFound, "branch %s", name)
}

// SatisfiableBranches returns the branches whose timelock is reached at
// given chain tip.
func (cs *CompiledScript) SatisfiableBranches(tip swapkit.ChainTip) []Branch {
	var out []Branch
	for _, b := range cs.branches {
		if b.SatisfiableAt(tip) {
			out = append(out, b)
		}
	}
	return out
}

// IsSane returns true once SanityCheck accepted this script.
func (cs *CompiledScript) IsSane() bool { return cs.sound.Load() }

func (cs *CompiledScript) requireSane() error {
	if !cs.IsSane() {
		return errors.Wrap(errors.ErrSanity, "script was not sanity checked")
	}
	return nil
}

// Address returns the pay to witness script hash address on given network.
func (cs *CompiledScript) Address(net swapkit.Network) (btcutil.Address, error) {
	if err := cs.requireSane(); err != nil {
		return nil, err
	}
	if err := net.Validate(); err != nil {
		return nil, err
	}
	addr, err := btcutil.NewAddressWitnessScriptHash(cs.program[:], net.Params())
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return addr, nil
}

// MaxSatisfactionWeight returns the largest witness, in weight units, any
// branch of this script can produce, the script itself included.
func (cs *CompiledScript) MaxSatisfactionWeight() (int64, error) {
	if err := cs.requireSane(); err != nil {
		return 0, err
	}
	var max int64
	for _, b := range cs.branches {
		if w := b.SatisfactionWeight(len(cs.script)); w > max {
			max = w
		}
	}
	return max, nil
}

// Descriptor returns the output descriptor of this script.
func (cs *CompiledScript) Descriptor() string {
	return "wsh(" + cs.expr.String() + ")"
}
