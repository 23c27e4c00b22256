package binio

// Int32Store is random read access to a sequence of int32 values,
// independent of where the values live.
type Int32Store interface {
	Len() int
	At(i int) int32
}

// --- In-memory store -------------------------------------------------------

// Int32Slice is a growable in-memory Int32Store. The zero value is an empty
// store ready to use.
type Int32Slice struct {
	v []int32
}

// NewInt32Slice returns a store holding n zero values.
func NewInt32Slice(n int) *Int32Slice {
	return &Int32Slice{v: make([]int32, n)}
}

// WrapInt32 returns a store over v without copying.
func WrapInt32(v []int32) *Int32Slice {
	return &Int32Slice{v: v}
}

func (s *Int32Slice) Len() int { return len(s.v) }

func (s *Int32Slice) At(i int) int32 { return s.v[i] }

// Set stores x at index i. i must be < Len().
func (s *Int32Slice) Set(i int, x int32) { s.v[i] = x }

// Grow extends the store to length n, preserving existing contents and
// zero-filling new slots. Shrinking is not done by Grow; see Trim.
func (s *Int32Slice) Grow(n int) {
	if n <= len(s.v) {
		return
	}
	if n <= cap(s.v) {
		old := len(s.v)
		s.v = s.v[:n]
		clear(s.v[old:])
		return
	}
	c := 2 * cap(s.v)
	if c < n {
		c = n
	}
	v := make([]int32, n, c)
	copy(v, s.v)
	s.v = v
}

// Trim cuts the store down to length n and releases spare capacity.
func (s *Int32Slice) Trim(n int) {
	if n >= len(s.v) {
		return
	}
	v := make([]int32, n)
	copy(v, s.v)
	s.v = v
}

// Values exposes the backing slice. Callers must not modify it once the
// store is shared with readers.
func (s *Int32Slice) Values() []int32 { return s.v }

// --- Mapped store ----------------------------------------------------------

// MappedInt32 is an Int32Store over a byte region, typically part of a
// memory-mapped file. Element i is the little-endian word at byte offset 4*i.
type MappedInt32 struct {
	data []byte
	n    int
}

// NewMappedInt32 views n words of data. data must hold at least 4*n bytes.
func NewMappedInt32(data []byte, n int) (MappedInt32, error) {
	if n < 0 || len(data) < n*WordSize {
		return MappedInt32{}, ErrShortBuffer
	}
	return MappedInt32{data: data[:n*WordSize], n: n}, nil
}

func (m MappedInt32) Len() int { return m.n }

func (m MappedInt32) At(i int) int32 { return Int32At(m.data, i) }
