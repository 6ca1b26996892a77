package classfile

import (
	"encoding/binary"

	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

// Reader is a big-endian cursor over a class file buffer. Every read
// checks bounds, returns the value and advances the position in one step.
// Slices returned by ReadSlice alias the underlying buffer.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte offset.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) need(what string, n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return jvmerrors.Truncated(jvmerrors.PhaseDecode, what, r.pos, n, len(r.data))
	}
	return nil
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8(what string) (uint8, error) {
	if err := r.need(what, 1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16(what string) (uint16, error) {
	if err := r.need(what, 2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32(what string) (uint32, error) {
	if err := r.need(what, 4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadSlice returns the next n bytes without copying. The result's capacity
// is clipped to n so appending to it can never write into the buffer.
func (r *Reader) ReadSlice(what string, n int) ([]byte, error) {
	if err := r.need(what, n); err != nil {
		return nil, err
	}
	s := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return s, nil
}
