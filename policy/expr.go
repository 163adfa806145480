package policy

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/iov-one/swapkit"
)

// Kind is the fragment type of an expression node.
type Kind int

const (
	KindKey Kind = iota + 1
	KindAfter
	KindSHA256
	KindAnd
	KindOr
	KindThresh
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "pk"
	case KindAfter:
		return "after"
	case KindSHA256:
		return "sha256"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindThresh:
		return "thresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Expr is an immutable policy expression. Nested and/or expressions of the
// same kind are flattened on construction, so a policy has a single normal
// form.
type Expr struct {
	kind Kind
	key  []byte
	lock swapkit.LockTime
	hash [32]byte
	k    int
	subs []*Expr
}

// Key returns a policy satisfied by a signature of the compressed public key.
// The key is validated when the policy is compiled.
func Key(pub []byte) *Expr {
	return &Expr{kind: KindKey, key: append([]byte(nil), pub...)}
}

// PubKey is Key for a parsed public key.
func PubKey(pub *btcec.PublicKey) *Expr {
	return Key(pub.SerializeCompressed())
}

// After returns a policy satisfied once the chain reached given lock.
func After(lock swapkit.LockTime) *Expr {
	return &Expr{kind: KindAfter, lock: lock}
}

// SHA256 returns a policy satisfied by a preimage of given digest.
func SHA256(digest [32]byte) *Expr {
	return &Expr{kind: KindSHA256, hash: digest}
}

// And returns a policy satisfied when all children are.
func And(subs ...*Expr) *Expr {
	return &Expr{kind: KindAnd, subs: flatten(KindAnd, subs)}
}

// Or returns a policy satisfied when exactly one of the children is.
func Or(subs ...*Expr) *Expr {
	return &Expr{kind: KindOr, subs: flatten(KindOr, subs)}
}

// Thresh returns a policy satisfied when exactly k of the children are.
func Thresh(k int, subs ...*Expr) *Expr {
	return &Expr{kind: KindThresh, k: k, subs: append([]*Expr(nil), subs...)}
}

func flatten(kind Kind, subs []*Expr) []*Expr {
	out := make([]*Expr, 0, len(subs))
	for _, s := range subs {
		if s != nil && s.kind == kind {
			out = append(out, s.subs...)
		} else {
			out = append(out, s)
		}
	}
	return out
}

// Kind returns the fragment type.
func (e *Expr) Kind() Kind { return e.kind }

// PubKey returns the compressed key of a pk fragment.
func (e *Expr) PubKey() []byte { return append([]byte(nil), e.key...) }

// LockTime returns the lock of an after fragment.
func (e *Expr) LockTime() swapkit.LockTime { return e.lock }

// Digest returns the digest of a sha256 fragment.
func (e *Expr) Digest() [32]byte { return e.hash }

// Threshold returns k of a thresh fragment.
func (e *Expr) Threshold() int { return e.k }

// Children returns the subexpressions of and, or and thresh fragments.
func (e *Expr) Children() []*Expr { return append([]*Expr(nil), e.subs...) }

// Equal returns true if both expressions describe the same policy.
func (e *Expr) Equal(other *Expr) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.String() == other.String()
}

// String returns the canonical text form, as accepted by Parse.
func (e *Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	if e == nil {
		b.WriteString("<nil>")
		return
	}
	b.WriteString(e.kind.String())
	b.WriteByte('(')
	switch e.kind {
	case KindKey:
		b.WriteString(hex.EncodeToString(e.key))
	case KindAfter:
		fmt.Fprintf(b, "%d", uint32(e.lock))
	case KindSHA256:
		b.WriteString(hex.EncodeToString(e.hash[:]))
	case KindThresh:
		fmt.Fprintf(b, "%d", e.k)
		for _, s := range e.subs {
			b.WriteByte(',')
			s.write(b)
		}
	default:
		for i, s := range e.subs {
			if i > 0 {
				b.WriteByte(',')
			}
			s.write(b)
		}
	}
	b.WriteByte(')')
}
