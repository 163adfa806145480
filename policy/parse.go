package policy

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/crypto"
	"github.com/iov-one/swapkit/errors"
)

// Parse reads a policy in its text form. Whitespace between tokens is
// ignored. Errors carry the offset of the offending input, see
// errors.PositionOf.
func Parse(text string) (*Expr, error) {
	p := parser{src: text}
	e, err := p.expr(1)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.fail(p.pos, "unexpected trailing input %q", p.src[p.pos:])
	}
	return e, nil
}

// MustParse is Parse that panics on error. Use it for constant policies.
func MustParse(text string) *Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(offset int, format string, args ...interface{}) error {
	return errors.Position(errors.ErrPolicySyntax, offset, format, args...)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return p.fail(p.pos, "want %q, got end of input", c)
	}
	if p.src[p.pos] != c {
		return p.fail(p.pos, "want %q, got %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

// word consumes an identifier or an argument: everything up to the next
// delimiter.
func (p *parser) word() (string, int) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("(),\t\n\r ", rune(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos], start
}

func (p *parser) expr(depth int) (*Expr, error) {
	name, start := p.word()
	if name == "" {
		if p.pos >= len(p.src) {
			return nil, p.fail(p.pos, "unexpected end of input")
		}
		return nil, p.fail(p.pos, "unexpected %q", p.src[p.pos])
	}
	if depth > MaxDepth {
		return nil, errors.Position(errors.ErrPolicyTooComplex, start, "nesting deeper than %d", MaxDepth)
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}

	var e *Expr
	switch name {
	case "pk":
		arg, at := p.word()
		raw, err := hex.DecodeString(arg)
		if err != nil {
			return nil, p.fail(at, "key is not hex encoded")
		}
		if _, err := crypto.ParsePubKey(raw); err != nil {
			return nil, errors.Position(errors.Wrap(errors.ErrPolicySyntax, err.Error()), at, "invalid key")
		}
		e = Key(raw)
	case "after":
		arg, at := p.word()
		n, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, p.fail(at, "lock %q is not a number", arg)
		}
		lock := swapkit.LockTime(n)
		if err := lock.Validate(); err != nil {
			return nil, errors.Position(errors.Wrap(errors.ErrPolicySyntax, err.Error()), at, "invalid lock")
		}
		e = After(lock)
	case "sha256":
		arg, at := p.word()
		raw, err := hex.DecodeString(arg)
		if err != nil || len(raw) != 32 {
			return nil, p.fail(at, "digest must be 32 hex encoded bytes")
		}
		var digest [32]byte
		copy(digest[:], raw)
		e = SHA256(digest)
	case "and", "or":
		subs, err := p.list(depth)
		if err != nil {
			return nil, err
		}
		if len(subs) < 2 {
			return nil, p.fail(start, "%s requires at least two arguments", name)
		}
		if name == "and" {
			e = And(subs...)
		} else {
			e = Or(subs...)
		}
	case "thresh":
		arg, at := p.word()
		k, err := strconv.Atoi(arg)
		if err != nil {
			return nil, p.fail(at, "threshold %q is not a number", arg)
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		subs, err := p.list(depth)
		if err != nil {
			return nil, err
		}
		if len(subs) < 2 {
			return nil, p.fail(start, "thresh requires at least two arguments")
		}
		if k < 1 || k > len(subs) {
			return nil, p.fail(at, "threshold %d out of range [1, %d]", k, len(subs))
		}
		e = Thresh(k, subs...)
	default:
		return nil, p.fail(start, "unknown fragment %q", name)
	}

	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return e, nil
}

// list parses comma separated expressions up to, not including, the closing
// parenthesis.
func (p *parser) list(depth int) ([]*Expr, error) {
	var subs []*Expr
	for {
		e, err := p.expr(depth + 1)
		if err != nil {
			return nil, err
		}
		subs = append(subs, e)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		return subs, nil
	}
}
