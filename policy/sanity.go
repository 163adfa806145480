package policy

import (
	"bytes"
	"encoding/hex"

	"github.com/iov-one/swapkit/errors"
)

// SanityCheck verifies that every satisfaction path of the script is sound:
//
//	every branch requires a signature,
//	no two branches have the same requirements,
//	no branch is satisfiable whenever another one is,
//	no branch requires the same key twice,
//	the script is within the standardness limits.
//
// All problems found are reported together. On success the script is marked
// sound, which allows deriving its address and weight.
func SanityCheck(cs *CompiledScript) error {
	if cs == nil {
		return errors.Wrap(errors.ErrSanity, "no script")
	}

	var errs error
	for _, b := range cs.branches {
		if len(b.Keys) == 0 {
			errs = errors.Append(errs, errors.ErrSanity.Newf("branch %s requires no signature", b.Name))
		}
		seen := make(map[string]struct{}, len(b.Keys))
		for _, k := range b.Keys {
			h := hex.EncodeToString(k)
			if _, ok := seen[h]; ok {
				errs = errors.Append(errs, errors.ErrSanity.Newf("branch %s requires key %s twice", b.Name, h))
			}
			seen[h] = struct{}{}
		}
	}

	for i, a := range cs.branches {
		for j, b := range cs.branches {
			if i == j || !covers(a, b) {
				continue
			}
			if covers(b, a) {
				if i < j {
					errs = errors.Append(errs, errors.ErrSanity.Newf("branches %d and %d are duplicates: %s", i, j, a.Name))
				}
				continue
			}
			errs = errors.Append(errs, errors.ErrSanity.Newf("branch %s overlaps branch %s", b.Name, a.Name))
		}
	}

	if len(cs.script) > MaxScriptSize || cs.ops > MaxOps {
		errs = errors.Append(errs, errors.ErrSanity.New("script exceeds resource limits"))
	}
	if cs.depth > MaxDepth || len(cs.branches) > MaxBranches {
		errs = errors.Append(errs, errors.ErrSanity.New("policy exceeds complexity limits"))
	}
	for _, b := range cs.branches {
		if len(b.Witness) > MaxWitnessItems {
			errs = errors.Append(errs, errors.ErrSanity.Newf("branch %s exceeds witness limits", b.Name))
		}
	}

	if errs != nil {
		return errs
	}
	cs.sound.Store(true)
	return nil
}

// covers returns true if every requirement of a is also a requirement of b,
// so that whoever can satisfy b can satisfy a as well.
func covers(a, b Branch) bool {
	for _, k := range a.Keys {
		if !containsKey(b.Keys, k) {
			return false
		}
	}
	for _, d := range a.Digests {
		if !containsDigest(b.Digests, d) {
			return false
		}
	}
	if a.LockTime == 0 {
		return true
	}
	return b.LockTime != 0 && a.LockTime.SameUnit(b.LockTime) && a.LockTime <= b.LockTime
}

func containsKey(keys [][]byte, k []byte) bool {
	for _, x := range keys {
		if bytes.Equal(x, k) {
			return true
		}
	}
	return false
}

func containsDigest(digests [][32]byte, d [32]byte) bool {
	for _, x := range digests {
		if x == d {
			return true
		}
	}
	return false
}
