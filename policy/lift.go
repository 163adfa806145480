package policy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/txscript"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
)

// Lift recovers the policy of a witness script produced by Compile. Scripts
// that Compile would not produce byte for byte are rejected, so
// Compile(Lift(s)) always reproduces s.
func Lift(script []byte) (*Expr, error) {
	toks, err := tokenize(script)
	if err != nil {
		return nil, err
	}
	l := lifter{toks: toks, end: len(script)}
	e, verify, err := l.seq()
	if err != nil {
		return nil, err
	}
	if l.pos != len(l.toks) {
		return nil, l.fail("unexpected %s", l.name())
	}
	if verify {
		return nil, errors.Position(errors.ErrPolicySyntax, len(script), "script must not end with a verify operation")
	}

	cs, err := Compile(e)
	if err != nil {
		return nil, errors.Wrap(err, "lifted policy")
	}
	if !bytes.Equal(cs.script, script) {
		return nil, errors.Wrap(errors.ErrPolicySyntax, "script is not in canonical form")
	}
	return e, nil
}

// FromScript lifts, compiles and sanity checks a witness script received from
// a counterparty.
func FromScript(script []byte) (*CompiledScript, error) {
	e, err := Lift(script)
	if err != nil {
		return nil, err
	}
	cs, err := Compile(e)
	if err != nil {
		return nil, err
	}
	if err := SanityCheck(cs); err != nil {
		return nil, err
	}
	return cs, nil
}

type token struct {
	op     byte
	data   []byte
	offset int
}

func tokenize(script []byte) ([]token, error) {
	var toks []token
	tok := txscript.MakeScriptTokenizer(0, script)
	offset := 0
	for tok.Next() {
		toks = append(toks, token{op: tok.Opcode(), data: tok.Data(), offset: offset})
		offset = int(tok.ByteIndex())
	}
	if err := tok.Err(); err != nil {
		return nil, errors.Position(errors.ErrPolicySyntax, offset, err.Error())
	}
	if len(toks) == 0 {
		return nil, errors.Wrap(errors.ErrPolicySyntax, "empty script")
	}
	return toks, nil
}

type lifter struct {
	toks []token
	pos  int
	end  int
}

func (l *lifter) at(i int) (token, bool) {
	if l.pos+i >= len(l.toks) {
		return token{}, false
	}
	return l.toks[l.pos+i], true
}

func (l *lifter) offset() int {
	if t, ok := l.at(0); ok {
		return t.offset
	}
	return l.end
}

func (l *lifter) name() string {
	t, ok := l.at(0)
	if !ok {
		return "end of script"
	}
	return opName(t.op)
}

func (l *lifter) fail(format string, args ...interface{}) error {
	return errors.Position(errors.ErrPolicySyntax, l.offset(), format, args...)
}

func (l *lifter) isOp(i int, op byte) bool {
	t, ok := l.at(i)
	return ok && t.op == op
}

func (l *lifter) expect(ops ...byte) error {
	for _, op := range ops {
		if !l.isOp(0, op) {
			return l.fail("want %s, got %s", opName(op), l.name())
		}
		l.pos++
	}
	return nil
}

// terminated returns true if the current token closes a sequence.
func (l *lifter) terminated() bool {
	t, ok := l.at(0)
	if !ok {
		return true
	}
	switch t.op {
	case txscript.OP_ELSE, txscript.OP_ENDIF:
		return true
	case txscript.OP_1:
		// The true branch of a thresh child ends with 1 ELSE.
		return l.isOp(1, txscript.OP_ELSE)
	}
	return false
}

// seq parses fragments executed one after another. All but the last must be
// in verify form. It returns whether the sequence leaves nothing on the
// stack.
func (l *lifter) seq() (*Expr, bool, error) {
	var (
		subs   []*Expr
		verify bool
	)
	for !l.terminated() {
		if len(subs) > 0 && !verify {
			return nil, false, l.fail("fragment leaves a value followed by %s", l.name())
		}
		e, v, err := l.fragment()
		if err != nil {
			return nil, false, err
		}
		subs = append(subs, e)
		verify = v
	}
	switch len(subs) {
	case 0:
		return nil, false, l.fail("empty fragment before %s", l.name())
	case 1:
		return subs[0], verify, nil
	default:
		return And(subs...), verify, nil
	}
}

func (l *lifter) fragment() (*Expr, bool, error) {
	t, _ := l.at(0)
	switch {
	case t.op == txscript.OP_DATA_33:
		l.pos++
		switch {
		case l.isOp(0, txscript.OP_CHECKSIG):
			l.pos++
			return Key(t.data), false, nil
		case l.isOp(0, txscript.OP_CHECKSIGVERIFY):
			l.pos++
			return Key(t.data), true, nil
		}
		return nil, false, l.fail("key followed by %s", l.name())

	case t.op == txscript.OP_SIZE:
		l.pos++
		if n, ok := l.number(); !ok || n != PreimageSize {
			return nil, false, l.fail("want preimage size check")
		}
		if err := l.expect(txscript.OP_EQUALVERIFY, txscript.OP_SHA256); err != nil {
			return nil, false, err
		}
		d, ok := l.at(0)
		if !ok || d.op != txscript.OP_DATA_32 {
			return nil, false, l.fail("want 32 byte digest, got %s", l.name())
		}
		l.pos++
		var digest [32]byte
		copy(digest[:], d.data)
		switch {
		case l.isOp(0, txscript.OP_EQUAL):
			l.pos++
			return SHA256(digest), false, nil
		case l.isOp(0, txscript.OP_EQUALVERIFY):
			l.pos++
			return SHA256(digest), true, nil
		}
		return nil, false, l.fail("digest followed by %s", l.name())

	case t.op == txscript.OP_IF:
		return l.conditional()
	}

	if n, ok := l.number(); ok {
		if err := l.expect(txscript.OP_CHECKLOCKTIMEVERIFY); err != nil {
			return nil, false, err
		}
		lock := After(swapkit.LockTime(n))
		if l.isOp(0, txscript.OP_DROP) {
			l.pos++
			return lock, true, nil
		}
		return lock, false, nil
	}
	return nil, false, l.fail("unexpected %s", l.name())
}

// conditional parses an or chain or a thresh, both starting with IF.
func (l *lifter) conditional() (*Expr, bool, error) {
	if err := l.expect(txscript.OP_IF); err != nil {
		return nil, false, err
	}
	first, verify, err := l.seq()
	if err != nil {
		return nil, false, err
	}

	if l.isOp(0, txscript.OP_1) {
		return l.thresh(first, verify)
	}

	if err := l.expect(txscript.OP_ELSE); err != nil {
		return nil, false, err
	}
	second, verify2, err := l.seq()
	if err != nil {
		return nil, false, err
	}
	if err := l.expect(txscript.OP_ENDIF); err != nil {
		return nil, false, err
	}
	if verify != verify2 {
		return nil, false, l.fail("or branches leave different results")
	}
	return Or(first, second), verify, nil
}

func (l *lifter) thresh(first *Expr, verify bool) (*Expr, bool, error) {
	if !verify {
		return nil, false, l.fail("thresh child must be in verify form")
	}
	if err := l.expect(txscript.OP_1, txscript.OP_ELSE, txscript.OP_0, txscript.OP_ENDIF, txscript.OP_TOALTSTACK); err != nil {
		return nil, false, err
	}
	subs := []*Expr{first}
	for l.isOp(0, txscript.OP_IF) {
		l.pos++
		e, v, err := l.seq()
		if err != nil {
			return nil, false, err
		}
		if !v {
			return nil, false, l.fail("thresh child must be in verify form")
		}
		err = l.expect(txscript.OP_1, txscript.OP_ELSE, txscript.OP_0, txscript.OP_ENDIF,
			txscript.OP_FROMALTSTACK, txscript.OP_ADD, txscript.OP_TOALTSTACK)
		if err != nil {
			return nil, false, err
		}
		subs = append(subs, e)
	}
	if err := l.expect(txscript.OP_FROMALTSTACK); err != nil {
		return nil, false, err
	}
	k, ok := l.number()
	if !ok {
		return nil, false, l.fail("want threshold, got %s", l.name())
	}
	if k < 1 || k > int64(len(subs)) {
		return nil, false, l.fail("threshold %d out of range [1, %d]", k, len(subs))
	}
	e := Thresh(int(k), subs...)
	switch {
	case l.isOp(0, txscript.OP_EQUAL):
		l.pos++
		return e, false, nil
	case l.isOp(0, txscript.OP_EQUALVERIFY):
		l.pos++
		return e, true, nil
	}
	return nil, false, l.fail("threshold followed by %s", l.name())
}

// number consumes a small integer or a minimally encoded positive script
// number of up to five bytes.
func (l *lifter) number() (int64, bool) {
	t, ok := l.at(0)
	if !ok {
		return 0, false
	}
	switch {
	case t.op >= txscript.OP_1 && t.op <= txscript.OP_16:
		l.pos++
		return int64(t.op - txscript.OP_1 + 1), true
	case t.op >= txscript.OP_DATA_1 && t.op <= txscript.OP_DATA_5:
		n, ok := decodeScriptNum(t.data)
		if !ok {
			return 0, false
		}
		l.pos++
		return n, true
	}
	return 0, false
}

// decodeScriptNum decodes a little endian sign magnitude number. Negative
// and non minimal encodings are rejected.
func decodeScriptNum(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 5 {
		return 0, false
	}
	last := b[len(b)-1]
	if last&0x80 != 0 {
		return 0, false
	}
	if last == 0 && (len(b) == 1 || b[len(b)-2]&0x80 == 0) {
		return 0, false
	}
	var n int64
	for i, c := range b {
		n |= int64(c) << (8 * uint(i))
	}
	return n, true
}

// opNames maps opcodes to their names, preferring the descriptive names
// over the OP_TRUE, OP_FALSE and OP_NOPx aliases.
var opNames = func() map[byte]string {
	alias := func(name string) bool {
		return name == "OP_TRUE" || name == "OP_FALSE" || strings.HasPrefix(name, "OP_NOP")
	}
	m := make(map[byte]string, len(txscript.OpcodeByName))
	for name, op := range txscript.OpcodeByName {
		cur, ok := m[op]
		switch {
		case !ok:
			m[op] = name
		case alias(cur) && !alias(name):
			m[op] = name
		case alias(cur) == alias(name) && name < cur:
			m[op] = name
		}
	}
	return m
}()

func opName(op byte) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", op)
}
