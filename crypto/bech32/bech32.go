package bech32

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/iov-one/swapkit/errors"
)

// Decode converts given bech32 encoded representation into raw payload and a
// human readable part.
func Decode(raw string) (string, []byte, error) {
	hrp, payload, err := bech32.Decode(raw)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	payload, err = bech32.ConvertBits(payload, 5, 8, false)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInput, "convert bits")
	}
	return hrp, payload, nil
}

// Encode converts given bytes into bech32 encoded representation.
func Encode(hrp string, payload []byte) ([]byte, error) {
	payload, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "convert bits")
	}
	raw, err := bech32.Encode(hrp, payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return []byte(raw), nil
}

// EncodeSegwit returns the address of a version 0 witness program.
func EncodeSegwit(hrp string, program []byte) (string, error) {
	if err := validProgram(program); err != nil {
		return "", err
	}
	data, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, "convert bits")
	}
	raw, err := bech32.Encode(hrp, append([]byte{0}, data...))
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, err.Error())
	}
	return raw, nil
}

// DecodeSegwit returns the version 0 witness program encoded in given
// address. The address must use the expected human readable part.
func DecodeSegwit(hrp, addr string) ([]byte, error) {
	gotHRP, data, version, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	if gotHRP != strings.ToLower(hrp) {
		return nil, errors.Wrapf(errors.ErrInput, "address prefix %q, want %q", gotHRP, hrp)
	}
	if len(data) == 0 {
		return nil, errors.Wrap(errors.ErrInput, "empty address payload")
	}
	if data[0] != 0 {
		return nil, errors.Wrapf(errors.ErrInput, "witness version %d not supported", data[0])
	}
	if version != bech32.Version0 {
		return nil, errors.Wrap(errors.ErrInput, "witness version 0 requires a bech32 checksum")
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "convert bits")
	}
	if err := validProgram(program); err != nil {
		return nil, err
	}
	return program, nil
}

func validProgram(program []byte) error {
	switch len(program) {
	case 20, 32:
		return nil
	default:
		return errors.Wrapf(errors.ErrInput, "invalid witness program length %d", len(program))
	}
}
