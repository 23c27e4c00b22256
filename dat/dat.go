package dat

import (
	"errors"
	"fmt"

	"github.com/npillmayer/lexstore/binio"
)

// ErrCorrupt reports a trie file or array pair that cannot be a valid
// double array. It is a format error and not a negative lookup result.
var ErrCorrupt = errors.New("dat: corrupt double array")

// Root is the state index every search starts from.
const Root = 0

// DAT is a frozen double-array trie.
//   - States are indices into Base/Check, 0 is the root.
//   - Transition: t := Base[s] + r + 1; valid if Check[t] == Base[s].
//   - A state s accepts if p := Base[s] has Check[p] == Base[s] and Base[p] < 0.
type DAT struct {
	base  binio.Int32Store
	check binio.Int32Store
	m     *binio.Mapping // nil unless memory mapped
}

// Match is a dictionary entry found as a prefix of a query.
type Match struct {
	Value  int // value stored with the entry
	Length int // length of the entry in runes
}

// FromArrays wraps an existing base/check pair. The slices are not copied
// and must not be modified afterwards.
func FromArrays(base, check []int32) (*DAT, error) {
	if len(base) != len(check) || len(base) == 0 {
		return nil, fmt.Errorf("%w: array lengths %d and %d", ErrCorrupt, len(base), len(check))
	}
	return &DAT{base: binio.WrapInt32(base), check: binio.WrapInt32(check)}, nil
}

// NStates returns the number of allocated slots/states in the arrays.
func (d *DAT) NStates() int { return d.base.Len() }

// Mapped reports whether the arrays are read from a memory-mapped file.
func (d *DAT) Mapped() bool { return d.m != nil }

// Close releases a file mapping. The DAT must not be used afterwards.
// Closing an in-memory trie is a no-op.
func (d *DAT) Close() error {
	m := d.m
	d.m = nil
	return m.Close()
}

// slot returns base[p] if p is inside the arrays and its check equals b.
func (d *DAT) slot(p int, b int32) (int32, bool) {
	if p < 0 || p >= d.check.Len() || d.check.At(p) != b {
		return 0, false
	}
	return d.base.At(p), true
}

// Transition returns (nextState, ok) for consuming rune r in state.
func (d *DAT) Transition(state int, r rune) (int, bool) {
	if state < 0 || state >= d.base.Len() {
		return 0, false
	}
	b := d.base.At(state)
	t := int(b) + int(r) + 1
	if _, ok := d.slot(t, b); !ok {
		return 0, false
	}
	return t, true
}

// Value returns the value of the key ending in state, if any.
func (d *DAT) Value(state int) (int, bool) {
	if state < 0 || state >= d.base.Len() {
		return 0, false
	}
	b := d.base.At(state)
	n, ok := d.slot(int(b), b)
	if !ok || n >= 0 {
		return 0, false
	}
	return int(-n - 1), true
}

// ExactMatchSearch returns the value stored for key, or -1 if key is not in
// the trie.
func (d *DAT) ExactMatchSearch(key string) int {
	s := Root
	for _, r := range key {
		var ok bool
		if s, ok = d.Transition(s, r); !ok {
			return -1
		}
	}
	if v, ok := d.Value(s); ok {
		return v
	}
	return -1
}

// Contains reports whether key is in the trie.
func (d *DAT) Contains(key string) bool {
	return d.ExactMatchSearch(key) >= 0
}

// CommonPrefixSearch returns all entries which are prefixes of key,
// shortest first. The empty key matches with length 0 if it was stored.
func (d *DAT) CommonPrefixSearch(key string) []Match {
	var result []Match
	d.walkPrefixes(key, func(m Match) {
		result = append(result, m)
	})
	return result
}

// LongestCommonPrefix returns the longest entry which is a prefix of key.
func (d *DAT) LongestCommonPrefix(key string) (Match, bool) {
	var longest Match
	found := false
	d.walkPrefixes(key, func(m Match) {
		longest, found = m, true
	})
	return longest, found
}

// walkPrefixes follows key from the root and reports every accepting state
// on the way, including the one reached after the last rune.
func (d *DAT) walkPrefixes(key string, emit func(Match)) {
	s, n := Root, 0
	for _, r := range key {
		if v, ok := d.Value(s); ok {
			emit(Match{Value: v, Length: n})
		}
		var ok bool
		if s, ok = d.Transition(s, r); !ok {
			return
		}
		n++
	}
	if v, ok := d.Value(s); ok {
		emit(Match{Value: v, Length: n})
	}
}

// Iterator advances through successive prefix states for one query.
type Iterator struct {
	d     *DAT
	state int
	n     int
	dead  bool
}

// Iterator returns a prefix iterator positioned at the root.
func (d *DAT) Iterator() *Iterator {
	return &Iterator{d: d, state: Root}
}

// Next consumes r. It returns false once the input has left the trie; the
// iterator stays dead afterwards.
func (it *Iterator) Next(r rune) bool {
	if it.dead {
		return false
	}
	next, ok := it.d.Transition(it.state, r)
	if !ok {
		it.dead = true
		return false
	}
	it.state = next
	it.n++
	return true
}

// Value returns the value of the prefix consumed so far, if it is a key.
func (it *Iterator) Value() (int, bool) {
	if it.dead {
		return 0, false
	}
	return it.d.Value(it.state)
}

// Len is the number of runes consumed.
func (it *Iterator) Len() int { return it.n }

// Verify checks that every used slot points back to an in-range base and
// that the root is in range. It runs in time linear in the array size and
// is meant for validating files before serving lookups from them.
func (d *DAT) Verify() error {
	n := d.base.Len()
	if n == 0 || d.check.Len() != n {
		return fmt.Errorf("%w: %d base and %d check slots", ErrCorrupt, n, d.check.Len())
	}
	// an empty trie has its root base one past the end
	if b := d.base.At(Root); b < 0 || int(b) > n {
		return fmt.Errorf("%w: root base %d out of range", ErrCorrupt, b)
	}
	for p := 0; p < n; p++ {
		c := d.check.At(p)
		if c == 0 {
			continue
		}
		if c < 0 || int(c) > p {
			return fmt.Errorf("%w: slot %d has check %d", ErrCorrupt, p, c)
		}
		if b := d.base.At(p); b >= 0 && int(b) >= n {
			return fmt.Errorf("%w: slot %d has base %d", ErrCorrupt, p, b)
		}
	}
	return nil
}

// Stats reports density metrics for a trie.
type Stats struct {
	UsedSlots  int
	TotalSlots int
	MaxStateID int
}

// FillRatio is the share of used slots.
func (s Stats) FillRatio() float64 {
	if s.TotalSlots == 0 {
		return 0
	}
	return float64(s.UsedSlots) / float64(s.TotalSlots)
}

// Stats counts used slots. The root counts as used.
func (d *DAT) Stats() Stats {
	stats := Stats{
		TotalSlots: d.NStates(),
	}
	for i := 0; i < stats.TotalSlots; i++ {
		if i == Root || d.check.At(i) != 0 {
			stats.UsedSlots++
			stats.MaxStateID = i
		}
	}
	return stats
}

func (d *DAT) String() string {
	return fmt.Sprintf("DAT(states=%d,mapped=%v)", d.NStates(), d.Mapped())
}
