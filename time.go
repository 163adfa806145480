package swapkit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/txscript"
	"github.com/iov-one/swapkit/errors"
)

// LockTimeThreshold separates block height lock times (below) from unix
// timestamp lock times (at or above).
const LockTimeThreshold = LockTime(txscript.LockTimeThreshold)

// MaxLockTime is the exclusive upper bound of a lock time that can be
// expressed as a positive script number in four bytes.
const MaxLockTime = LockTime(1 << 31)

// LockTime is an absolute lock as used by CHECKLOCKTIMEVERIFY. Depending on
// the value it is either a block height or a unix timestamp.
type LockTime uint32

// LockUnit tells how a lock time is interpreted.
type LockUnit int

const (
	UnitNone LockUnit = iota
	UnitHeight
	UnitTime
)

func (u LockUnit) String() string {
	switch u {
	case UnitHeight:
		return "height"
	case UnitTime:
		return "time"
	default:
		return "none"
	}
}

// Unit returns how this lock time is interpreted. Zero means no lock.
func (t LockTime) Unit() LockUnit {
	switch {
	case t == 0:
		return UnitNone
	case t < LockTimeThreshold:
		return UnitHeight
	default:
		return UnitTime
	}
}

// Validate returns an error if this lock time cannot be used in a script.
func (t LockTime) Validate() error {
	if t == 0 {
		return errors.Wrap(errors.ErrInput, "lock time must be positive")
	}
	if t >= MaxLockTime {
		return errors.Wrapf(errors.ErrInput, "lock time %d exceeds %d", t, MaxLockTime-1)
	}
	return nil
}

// SameUnit returns true if both lock times are interpreted the same way.
// A zero lock time shares the unit with anything.
func (t LockTime) SameUnit(other LockTime) bool {
	return t == 0 || other == 0 || t.Unit() == other.Unit()
}

func (t LockTime) String() string {
	switch t.Unit() {
	case UnitHeight:
		return fmt.Sprintf("height %d", uint32(t))
	case UnitTime:
		return UnixTime(t).String()
	default:
		return "none"
	}
}

// ChainTip is the state of the chain as observed by the caller. It is the
// "now" that timelocks are compared against.
type ChainTip struct {
	Height     uint32
	MedianTime UnixTime
}

// Reached returns true if the given lock is satisfied by a transaction
// included on top of this tip. A height lock equal to the tip height is
// reached. A time lock must be strictly below the median time past of the
// tip (BIP113).
func (c ChainTip) Reached(t LockTime) bool {
	switch t.Unit() {
	case UnitHeight:
		return uint32(t) <= c.Height
	case UnitTime:
		return int64(t) < int64(c.MedianTime)
	default:
		return true
	}
}

func (c ChainTip) String() string {
	if c.MedianTime.IsZero() {
		return fmt.Sprintf("height %d", c.Height)
	}
	return fmt.Sprintf("height %d, median time %s", c.Height, c.MedianTime)
}

// UnixTime represents a point in time as POSIX time.
type UnixTime int64

// Time returns a time.Time structure that represents the same moment in time.
func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// IsZero returns true if this time represents a zero value.
func (t UnixTime) IsZero() bool {
	return t == 0
}

// Add modifies this UNIX time by given duration. This is compatible with
// time.Time.Add method.
func (t UnixTime) Add(d time.Duration) UnixTime {
	return t + UnixTime(d/time.Second)
}

// AsUnixTime converts given Time structure into its UNIX time representation.
func AsUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

// UnmarshalJSON supports unmarshaling both as time.Time and from a number.
func (t *UnixTime) UnmarshalJSON(raw []byte) error {
	var unix int64
	if err := json.Unmarshal(raw, &unix); err == nil {
		if unix < 0 {
			return errors.Wrap(errors.ErrInput, "time before epoch")
		}
		*t = UnixTime(unix)
		return nil
	}

	var stdtime time.Time
	if err := json.Unmarshal(raw, &stdtime); err == nil {
		unix := UnixTime(stdtime.Unix())
		if unix < 0 {
			return errors.Wrap(errors.ErrInput, "time before epoch")
		}
		*t = unix
		return nil
	}

	return errors.Wrap(errors.ErrInput, "invalid time format")
}

// String returns the RFC 3339 representation of this time in UTC.
func (t UnixTime) String() string {
	return t.Time().Format(time.RFC3339)
}
