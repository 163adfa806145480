package policy

import (
	"strings"

	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/crypto/bech32"
	"github.com/iov-one/swapkit/errors"
)

// DecodeAddress returns the witness program of a pay to witness script hash
// address on given network.
func DecodeAddress(addr string, net swapkit.Network) ([]byte, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	program, err := bech32.DecodeSegwit(net.HRP(), addr)
	if err != nil {
		return nil, err
	}
	if len(program) != 32 {
		return nil, errors.Wrap(errors.ErrInput, "not a witness script hash address")
	}
	return program, nil
}

// ParseDescriptor reads a wsh(<policy>) descriptor, compiles and checks it.
func ParseDescriptor(desc string) (*CompiledScript, error) {
	desc = strings.TrimSpace(desc)
	if i := strings.IndexByte(desc, '#'); i >= 0 {
		return nil, errors.Position(errors.ErrPolicySyntax, i, "descriptor checksums are not supported")
	}
	if !strings.HasPrefix(desc, "wsh(") || !strings.HasSuffix(desc, ")") {
		return nil, errors.Position(errors.ErrPolicySyntax, 0, "want wsh(<policy>)")
	}
	const prefix = len("wsh(")
	e, err := Parse(desc[prefix : len(desc)-1])
	if err != nil {
		if pos, ok := errors.PositionOf(err); ok {
			return nil, errors.Position(err, pos+prefix, "descriptor")
		}
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
