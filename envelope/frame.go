package envelope

import (
	"encoding/binary"
	"io"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/swapkit/errors"
)

// MaxFrameSize bounds the size of a single framed message.
const MaxFrameSize = 1 << 20

// WriteFrame writes the message prefixed with its length as a 4 byte big
// endian integer.
func WriteFrame(w io.Writer, msg proto.Message) error {
	raw, err := proto.Marshal(msg)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if len(raw) > MaxFrameSize {
		return errors.Wrapf(errors.ErrInput, "message of %d bytes exceeds the frame limit", len(raw))
	}
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(raw)))
	if _, err := w.Write(size[:]); err != nil {
		return errors.Wrap(err, "write frame size")
	}
	if _, err := w.Write(raw); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// ReadFrame reads a single framed message into msg. It returns io.EOF when
// the stream ends before a new frame.
func ReadFrame(r io.Reader, msg proto.Message) error {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		if err == io.EOF {
			return err
		}
		return errors.Wrap(errors.ErrInput, "truncated frame size")
	}
	n := binary.BigEndian.Uint32(size[:])
	if n > MaxFrameSize {
		return errors.Wrapf(errors.ErrInput, "frame of %d bytes exceeds the limit", n)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return errors.Wrap(errors.ErrInput, "truncated frame")
	}
	if err := proto.Unmarshal(raw, msg); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	return nil
}
