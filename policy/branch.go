package policy

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
)

// ItemKind is the type of a witness stack item.
type ItemKind int

const (
	ItemSignature ItemKind = iota + 1
	ItemPreimage
	// ItemTrue is a selector choosing the IF side of a conditional.
	ItemTrue
	// ItemFalse is a selector choosing the ELSE side of a conditional.
	ItemFalse
)

// WitnessItem describes one witness stack item of a branch.
type WitnessItem struct {
	Kind   ItemKind
	PubKey []byte
	Digest [32]byte
}

// size returns the serialized size of the item, length prefix included, at
// its largest.
func (it WitnessItem) size() int {
	switch it.Kind {
	case ItemSignature:
		return 1 + MaxSignatureSize
	case ItemPreimage:
		return 1 + PreimageSize
	case ItemTrue:
		return 2
	default:
		return 1
	}
}

// Branch is one satisfaction path of a compiled script.
type Branch struct {
	// Index is the position of the branch in the stable enumeration
	// order.
	Index int
	// Name is the canonical policy text of the path. It is unique within
	// a sane script.
	Name string
	// Keys lists the keys that must sign, in script execution order.
	Keys [][]byte
	// Digests lists the digests whose preimage must be revealed.
	Digests [][32]byte
	// LockTime is the largest lock of the path or zero.
	LockTime swapkit.LockTime
	// Witness is the stack layout, bottom to top, the script excluded.
	Witness []WitnessItem
}

// SatisfiableAt returns true if the timelock of the branch is reached at
// given chain tip.
func (b Branch) SatisfiableAt(tip swapkit.ChainTip) bool {
	return tip.Reached(b.LockTime)
}

// RequiresPreimage returns true if the branch reveals a preimage.
func (b Branch) RequiresPreimage() bool {
	return len(b.Digests) > 0
}

// SatisfactionWeight returns the weight of a full witness of this branch for
// a script of given size: item count, all items and the script.
func (b Branch) SatisfactionWeight(scriptLen int) int64 {
	n := wire.VarIntSerializeSize(uint64(len(b.Witness) + 1))
	for _, it := range b.Witness {
		n += it.size()
	}
	n += wire.VarIntSerializeSize(uint64(scriptLen)) + scriptLen
	return int64(n)
}

// path is a satisfaction path collected during enumeration.
type path struct {
	expr  *Expr
	items []WitnessItem
	locks []swapkit.LockTime
}

func enumerate(e *Expr) []path {
	switch e.kind {
	case KindKey:
		return []path{{expr: e, items: []WitnessItem{{Kind: ItemSignature, PubKey: e.key}}}}
	case KindAfter:
		return []path{{expr: e, locks: []swapkit.LockTime{e.lock}}}
	case KindSHA256:
		return []path{{expr: e, items: []WitnessItem{{Kind: ItemPreimage, Digest: e.hash}}}}
	case KindAnd:
		acc := []path{{}}
		for _, s := range e.subs {
			acc = sequence(acc, enumerate(s), nil)
		}
		return acc
	case KindOr:
		var out []path
		for i, s := range e.subs {
			selectors := orSelectors(i, len(e.subs))
			for _, p := range enumerate(s) {
				out = append(out, path{
					expr:  p.expr,
					items: concat(p.items, selectors),
					locks: p.locks,
				})
			}
		}
		return out
	case KindThresh:
		children := make([][]path, len(e.subs))
		for j, s := range e.subs {
			children[j] = enumerate(s)
		}
		var out []path
		combinations(len(e.subs), e.k, func(selected []bool) {
			acc := []path{{}}
			for j := range e.subs {
				if selected[j] {
					acc = sequence(acc, children[j], []WitnessItem{{Kind: ItemTrue}})
				} else {
					acc = sequence(acc, []path{{}}, []WitnessItem{{Kind: ItemFalse}})
				}
			}
			out = append(out, acc...)
		})
		return out
	default:
		return nil
	}
}

// sequence combines paths executed one after another. The items of a later
// fragment lie below the items of the earlier ones. The suffix is placed on
// top of every next path.
func sequence(acc, next []path, suffix []WitnessItem) []path {
	out := make([]path, 0, len(acc)*len(next))
	for _, a := range acc {
		for _, n := range next {
			out = append(out, path{
				expr:  andOf(a.expr, n.expr),
				items: concat(concat(n.items, suffix), a.items),
				locks: append(append([]swapkit.LockTime(nil), a.locks...), n.locks...),
			})
		}
	}
	return out
}

func andOf(a, b *Expr) *Expr {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return And(a, b)
	}
}

// orSelectors returns the selectors, bottom to top, choosing child i of an
// or with n children compiled as a chain of IF ELSE.
func orSelectors(i, n int) []WitnessItem {
	var out []WitnessItem
	if i < n-1 {
		out = append(out, WitnessItem{Kind: ItemTrue})
	}
	for j := 0; j < i; j++ {
		out = append(out, WitnessItem{Kind: ItemFalse})
	}
	return out
}

// combinations calls fn for every selection of k out of n elements in
// lexicographic order, earlier elements preferred.
func combinations(n, k int, fn func(selected []bool)) {
	selected := make([]bool, n)
	var rec func(start, left int)
	rec = func(start, left int) {
		if left == 0 {
			fn(selected)
			return
		}
		for i := start; i <= n-left; i++ {
			selected[i] = true
			rec(i+1, left-1)
			selected[i] = false
		}
	}
	rec(0, k)
}

func concat(a, b []WitnessItem) []WitnessItem {
	out := make([]WitnessItem, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func (p path) branch(index int) (Branch, error) {
	b := Branch{
		Index:   index,
		Name:    p.expr.String(),
		Witness: p.items,
	}
	for _, l := range p.locks {
		if !b.LockTime.SameUnit(l) {
			return Branch{}, errors.Wrapf(errors.ErrMixedTimelockUnits,
				"branch %s requires a %s and a %s lock", b.Name, b.LockTime.Unit(), l.Unit())
		}
		if l > b.LockTime {
			b.LockTime = l
		}
	}
	// Items are stored bottom to top, execution consumes them top down.
	for i := len(p.items) - 1; i >= 0; i-- {
		switch it := p.items[i]; it.Kind {
		case ItemSignature:
			b.Keys = append(b.Keys, it.PubKey)
		case ItemPreimage:
			b.Digests = append(b.Digests, it.Digest)
		}
	}
	return b, nil
}
