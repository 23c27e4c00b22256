/*
Package binio holds the fixed-width little-endian codec shared by the lookup
file formats, together with random-access int32 stores backed either by
memory or by a read-only file mapping.

All integers are 32 bits wide and little-endian, regardless of host byte order.
*/
package binio

import (
	"encoding/binary"
	"errors"
)

// WordSize is the width of every integer in the file formats.
const WordSize = 4

// ErrShortBuffer is returned when a read would run past the end of a region.
var ErrShortBuffer = errors.New("binio: read past end of region")

// Uint32 decodes a little-endian uint32 from the start of b.
func Uint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// PutUint32 encodes v little-endian into the first four bytes of b.
func PutUint32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

// AppendUint32 appends v little-endian to b.
func AppendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// Uint32Pair decodes two consecutive words starting at pos.
// It returns ErrShortBuffer instead of panicking if data is too short.
func Uint32Pair(data []byte, pos uint32) (uint32, uint32, error) {
	end := uint64(pos) + 2*WordSize
	if end > uint64(len(data)) {
		return 0, 0, ErrShortBuffer
	}
	return Uint32(data[pos:]), Uint32(data[pos+WordSize:]), nil
}

// Int32At reads the i-th little-endian int32 word of b.
func Int32At(b []byte, i int) int32 {
	return int32(binary.LittleEndian.Uint32(b[i*WordSize:]))
}
